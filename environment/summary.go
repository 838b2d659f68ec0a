// Package environment condenses one cycle of traffic observations into the gaps
// around the ego vehicle: the nearest vehicle ahead and behind in the ego lane and
// in each adjacent lane.
package environment

import (
	"math"

	"highway-planner/frenet"
)

// ClearDistance marks a gap with no vehicle inside the search window. It compares
// greater than every finite distance.
var ClearDistance = math.Inf(1)

// Observation is one nearby vehicle as reported by sensor fusion. Valid for a single
// cycle.
type Observation struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
	S  float64 `json:"s"`
	D  float64 `json:"d"`
}

// Speed is the magnitude of the velocity vector (m/s).
func (o Observation) Speed() float64 { return math.Hypot(o.VX, o.VY) }

// Gap is the distance to and speed of the nearest vehicle in one direction.
// Speed is meaningless when the gap is clear.
type Gap struct {
	Distance float64 `json:"distance"`
	Speed    float64 `json:"speed"`
}

// ClearGap is a gap with nothing detected.
func ClearGap() Gap { return Gap{Distance: ClearDistance} }

// Clear reports whether no vehicle was found.
func (g Gap) Clear() bool { return math.IsInf(g.Distance, 1) }

// Summary holds the six directional gaps around the ego vehicle.
type Summary struct {
	Front      Gap `json:"front"`
	Rear       Gap `json:"rear"`
	LeftFront  Gap `json:"left_front"`
	LeftRear   Gap `json:"left_rear"`
	RightFront Gap `json:"right_front"`
	RightRear  Gap `json:"right_rear"`
}

// ClearSummary returns a summary with every gap clear.
func ClearSummary() Summary {
	return Summary{
		Front:      ClearGap(),
		Rear:       ClearGap(),
		LeftFront:  ClearGap(),
		LeftRear:   ClearGap(),
		RightFront: ClearGap(),
		RightRear:  ClearGap(),
	}
}

// Config holds the search windows.
type Config struct {
	LookAhead  float64 `json:"look_ahead"`  // same-lane forward window (m)
	LookBehind float64 `json:"look_behind"` // adjacent-lane rear window (m)
	Margin     float64 `json:"margin"`      // widening of the adjacent-lane windows (m)
	MaxS       float64 `json:"max_s"`       // track length for wrap-aware deltas; 0 disables
	Predict    bool    `json:"predict"`     // extrapolate observations at constant velocity
}

// DefaultConfig mirrors the tuned highway values. The rear window matches the
// forward one.
func DefaultConfig() Config {
	return Config{
		LookAhead:  30,
		LookBehind: 30,
		Margin:     0.265,
	}
}

// Summarizer builds gap summaries. It holds no per-cycle state.
type Summarizer struct {
	cfg   Config
	lanes frenet.Lanes
}

// NewSummarizer creates a summarizer for the given lane layout.
func NewSummarizer(cfg Config, lanes frenet.Lanes) *Summarizer {
	return &Summarizer{cfg: cfg, lanes: lanes}
}

// Summarize classifies every observation relative to the ego lane and position and
// keeps the nearest one per direction. horizon is the look-ahead time used when
// prediction is enabled; it is ignored otherwise.
func (sm *Summarizer) Summarize(egoLane int, egoS float64, obs []Observation, horizon float64) Summary {
	out := ClearSummary()

	egoValid := sm.lanes.Valid(egoLane)
	hasLeft := egoValid && !sm.lanes.Leftmost(egoLane)
	hasRight := egoValid && !sm.lanes.Rightmost(egoLane)

	aheadAdj := sm.cfg.LookAhead + sm.cfg.Margin
	behindAdj := -sm.cfg.LookBehind - sm.cfg.Margin

	for _, o := range obs {
		speed := o.Speed()
		targetS := o.S
		if sm.cfg.Predict && horizon > 0 {
			targetS += speed * horizon
		}
		if !finite(targetS) || !finite(o.D) || !finite(speed) {
			continue
		}
		delta := sm.delta(targetS, egoS)
		lane := sm.lanes.Index(o.D)

		switch {
		case lane == egoLane:
			if delta > 0 && delta < sm.cfg.LookAhead {
				keepNearest(&out.Front, delta, speed)
			}
		case hasLeft && lane == egoLane-1:
			if delta > 0 && delta < aheadAdj {
				keepNearest(&out.LeftFront, delta, speed)
			} else if delta < 0 && delta > behindAdj {
				keepNearest(&out.LeftRear, -delta, speed)
			}
		case hasRight && lane == egoLane+1:
			if delta > 0 && delta < aheadAdj {
				keepNearest(&out.RightFront, delta, speed)
			} else if delta < 0 && delta > behindAdj {
				keepNearest(&out.RightRear, -delta, speed)
			}
		}
	}
	return out
}

// delta is the signed longitudinal distance from ego to target, taking the short way
// around the track when the track length is known.
func (sm *Summarizer) delta(targetS, egoS float64) float64 {
	d := targetS - egoS
	if sm.cfg.MaxS <= 0 {
		return d
	}
	half := sm.cfg.MaxS / 2
	r := math.Mod(half-d, sm.cfg.MaxS)
	if r < 0 {
		r += sm.cfg.MaxS
	}
	return half - r
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func keepNearest(g *Gap, dist, speed float64) {
	if dist < g.Distance {
		g.Distance = dist
		g.Speed = speed
	}
}
