package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/samber/lo"

	"highway-planner/behavior"
	"highway-planner/environment"
	"highway-planner/frenet"
	"highway-planner/planner"
	"highway-planner/utils"
)

// vehicleLength is the bumper-to-bumper distance below which two cars in the same
// lane count as colliding.
const vehicleLength = 5.0

// ReplayStats summarizes one replay.
type ReplayStats struct {
	Scenario        string         `json:"scenario"`
	Cycles          int            `json:"cycles"`
	Failures        int            `json:"failures"`
	LaneChanges     int            `json:"lane_changes"`
	ManeuverCycles  map[string]int `json:"maneuver_cycles"`
	MinGapM         *float64       `json:"min_same_lane_gap_m,omitempty"` // nil when nothing was ever ahead
	MaxSpeedMPS     float64        `json:"max_speed_mps"`
	MaxSpeedStepMPS float64        `json:"max_speed_step_mps"`
	Collisions      int            `json:"collisions"`
	DistanceM       float64        `json:"distance_m"`
	FinalLane       int            `json:"final_lane"`
}

// Check compares the stats against the scenario's expectations.
func (st ReplayStats) Check(exp *ScenarioExpect) error {
	if exp == nil {
		return nil
	}
	if st.LaneChanges < exp.MinLaneChanges {
		return fmt.Errorf("expected at least %d lane changes, got %d", exp.MinLaneChanges, st.LaneChanges)
	}
	if exp.NoCollisions && st.Collisions > 0 {
		return fmt.Errorf("expected no collisions, got %d", st.Collisions)
	}
	return nil
}

// WriteJSON stores the stats at path.
func (st ReplayStats) WriteJSON(path string) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

type trafficCar struct {
	def   ScenarioCar
	s     float64
	lane  int
	speed float64
}

// Replay drives a simulated ego along the planner's paths through scripted traffic.
type Replay struct {
	scen    *Scenario
	road    *frenet.Map
	lanes   frenet.Lanes
	planner *planner.Planner
	log     *utils.Logger

	t       float64
	pos     orb.Point
	yaw     float64
	speed   float64
	path    orb.LineString // unconsumed points of the last path
	lane    int
	traffic []*trafficCar
	stats   ReplayStats
}

// NewReplay places the ego at rest on its start lane and the traffic on theirs.
func NewReplay(scen *Scenario, road *frenet.Map, cfg planner.Config, log *utils.Logger, opts ...planner.Option) (*Replay, error) {
	cfg.Speed.TimeStepS = scen.Timing.DtS
	p, err := planner.New(cfg, road, opts...)
	if err != nil {
		return nil, err
	}

	lanes := p.Config().Lanes
	if !lanes.Valid(scen.Ego.Lane) {
		return nil, fmt.Errorf("ego start lane %d outside %d lanes", scen.Ego.Lane, lanes.Count)
	}

	d := lanes.Center(scen.Ego.Lane)
	r := &Replay{
		scen:    scen,
		road:    p.Map(),
		lanes:   lanes,
		planner: p,
		log:     log.Component("replay"),
		pos:     road.ToCartesian(scen.Ego.S, d),
		yaw:     laneHeading(road, scen.Ego.S, d),
		lane:    scen.Ego.Lane,
		stats: ReplayStats{
			Scenario:       scen.Meta.Name,
			ManeuverCycles: map[string]int{},
			FinalLane:      scen.Ego.Lane,
		},
	}
	r.traffic = lo.Map(scen.Traffic, func(c ScenarioCar, _ int) *trafficCar {
		return &trafficCar{def: c, s: road.WrapS(c.S), lane: c.Lane, speed: c.SpeedMPS}
	})
	return r, nil
}

// Run replays the whole scenario, one planning cycle per cycle_points points.
func (r *Replay) Run() ReplayStats {
	cycleS := float64(r.scen.Timing.CyclePoints) * r.scen.Timing.DtS
	logEvery := 1
	if r.scen.Timing.LogHz > 0 {
		logEvery = max(1, int(math.Round(1/(r.scen.Timing.LogHz*cycleS))))
	}

	cycles := max(1, int(math.Round(r.scen.Timing.DurationS/cycleS)))
	for range cycles {
		r.Step()
		if r.stats.Cycles%logEvery == 0 {
			r.log.Info("t=%.2f s=%.1f lane=%d v=%.2f ref=%.2f", r.t, r.egoS(), r.lane, r.speed, r.planner.RefSpeed())
		}
	}
	return r.stats
}

// Step plans once and drives one cycle.
func (r *Replay) Step() {
	tel := r.telemetry()
	path := r.path

	plan, err := r.planner.Cycle(tel)
	if err != nil {
		r.stats.Failures++
		r.log.Warn("t=%.2f cycle failed, keeping previous path: %v", r.t, err)
	} else {
		path = plan.Path
		r.stats.ManeuverCycles[plan.Decision.Maneuver.State().String()]++
		if _, ok := plan.Decision.Maneuver.(behavior.Cruise); !ok {
			r.log.Debug("t=%.2f %s", r.t, plan.Decision)
		}
	}
	r.stats.Cycles++

	r.drive(path)
	r.advanceTraffic()
	r.evaluate()
}

func (r *Replay) egoS() float64 {
	s, _ := r.road.ToFrenet(r.pos)
	return s
}

func (r *Replay) telemetry() planner.Telemetry {
	s, d := r.road.ToFrenet(r.pos)
	t := planner.Telemetry{
		Ego:      planner.Ego{X: r.pos[0], Y: r.pos[1], S: s, D: d, Yaw: r.yaw, Speed: r.speed},
		Previous: r.path,
		Traffic: lo.Map(r.traffic, func(c *trafficCar, _ int) environment.Observation {
			d := r.lanes.Center(c.lane)
			p := r.road.ToCartesian(c.s, d)
			h := laneHeading(r.road, c.s, d)
			return environment.Observation{
				ID: c.def.ID, X: p[0], Y: p[1],
				VX: c.speed * math.Cos(h), VY: c.speed * math.Sin(h),
				S: c.s, D: d,
			}
		}),
	}
	if n := len(r.path); n > 0 {
		t.EndPathS, t.EndPathD = r.road.ToFrenet(r.path[n-1])
	}
	return t
}

// drive consumes up to one cycle of points.
func (r *Replay) drive(path orb.LineString) {
	dt := r.scen.Timing.DtS
	n := min(r.scen.Timing.CyclePoints, len(path))

	for _, p := range path[:n] {
		step := planar.Distance(r.pos, p)
		v := step / dt
		r.stats.MaxSpeedStepMPS = math.Max(r.stats.MaxSpeedStepMPS, math.Abs(v-r.speed))
		r.stats.MaxSpeedMPS = math.Max(r.stats.MaxSpeedMPS, v)
		r.stats.DistanceM += step
		if step > 1e-9 {
			r.yaw = math.Atan2(p[1]-r.pos[1], p[0]-r.pos[0])
		}
		r.pos, r.speed = p, v
	}
	if n < r.scen.Timing.CyclePoints {
		r.speed = 0
	}
	r.path = path[n:]
	r.t += float64(r.scen.Timing.CyclePoints) * dt
}

func (r *Replay) advanceTraffic() {
	cycleS := float64(r.scen.Timing.CyclePoints) * r.scen.Timing.DtS
	for _, c := range r.traffic {
		c.speed, c.lane = EvalCar(r.scen, c.def, r.t)
		c.s = r.road.WrapS(c.s + c.speed*cycleS)
	}
}

func (r *Replay) evaluate() {
	s, d := r.road.ToFrenet(r.pos)
	lane := r.lanes.Index(d)
	if lane != r.lane {
		r.stats.LaneChanges++
		r.log.Info("t=%.2f lane %d -> %d at s=%.1f", r.t, r.lane, lane, s)
		r.lane = lane
	}
	r.stats.FinalLane = lane

	for _, c := range r.traffic {
		if c.lane != lane {
			continue
		}
		ds := wrapDelta(c.s-s, r.road.MaxS())
		if math.Abs(ds) < vehicleLength {
			r.stats.Collisions++
			r.log.Error("t=%.2f collision with car %d (ds=%.2f lane=%d)", r.t, c.def.ID, ds, lane)
		}
		if ds > 0 && (r.stats.MinGapM == nil || ds < *r.stats.MinGapM) {
			gap := ds
			r.stats.MinGapM = &gap
		}
	}
}

// laneHeading is the direction of travel along the lane at s.
func laneHeading(road *frenet.Map, s, d float64) float64 {
	a := road.ToCartesian(s, d)
	b := road.ToCartesian(s+1, d)
	return math.Atan2(b[1]-a[1], b[0]-a[0])
}

// wrapDelta maps a difference of s values into [-maxS/2, maxS/2).
func wrapDelta(ds, maxS float64) float64 {
	if maxS <= 0 {
		return ds
	}
	ds = math.Mod(ds+maxS/2, maxS)
	if ds < 0 {
		ds += maxS
	}
	return ds - maxS/2
}
