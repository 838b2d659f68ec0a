// Package frenet converts between road-relative (s, d) coordinates and the planar
// Cartesian frame using a discretely sampled road centerline.
//
// s is the distance travelled along the centerline from a fixed origin and wraps at
// the track length (MaxS). d is the signed perpendicular offset from the centerline,
// positive toward the right-hand side of the direction of travel.
package frenet

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Waypoint is one centerline sample. (DX, DY) is the unit normal pointing toward
// increasing d.
type Waypoint struct {
	S  float64 `json:"s"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Point returns the Cartesian position of the sample.
func (w Waypoint) Point() orb.Point { return orb.Point{w.X, w.Y} }

// Map is an immutable centerline. It is safe for concurrent readers.
type Map struct {
	points []Waypoint
	maxS   float64
}

var (
	ErrTooFewWaypoints = errors.New("centerline needs at least 2 waypoints")
	ErrNotIncreasing   = errors.New("centerline s values must be strictly increasing")
)

// NewMap validates and wraps the samples. When maxS <= 0 the track length is taken
// as the last sample's s plus the chord back to the first sample.
func NewMap(points []Waypoint, maxS float64) (*Map, error) {
	if len(points) < 2 {
		return nil, ErrTooFewWaypoints
	}
	for i := 1; i < len(points); i++ {
		if points[i].S <= points[i-1].S {
			return nil, fmt.Errorf("waypoint %d (s=%.3f after %.3f): %w", i, points[i].S, points[i-1].S, ErrNotIncreasing)
		}
	}

	last := points[len(points)-1]
	if maxS <= 0 {
		maxS = last.S + planar.Distance(last.Point(), points[0].Point())
	}
	if maxS <= last.S {
		return nil, fmt.Errorf("max_s %.3f must exceed last waypoint s %.3f", maxS, last.S)
	}

	pts := make([]Waypoint, len(points))
	copy(pts, points)
	return &Map{points: pts, maxS: maxS}, nil
}

// MaxS is the track length at which s wraps back to zero.
func (m *Map) MaxS() float64 { return m.maxS }

// Len returns the number of samples.
func (m *Map) Len() int { return len(m.points) }

// Waypoint returns sample i.
func (m *Map) Waypoint(i int) Waypoint { return m.points[i] }

// WrapS maps s into [0, MaxS).
func (m *Map) WrapS(s float64) float64 {
	s = math.Mod(s, m.maxS)
	if s < 0 {
		s += m.maxS
	}
	return s
}

// ToCartesian converts (s, d) to a Cartesian point.
func (m *Map) ToCartesian(s, d float64) orb.Point {
	s = m.WrapS(s)
	n := len(m.points)
	first, last := m.points[0], m.points[n-1]

	// Wrap segment: between the last sample and the first one, around MaxS.
	if s < first.S || s >= last.S {
		segLen := m.maxS - last.S + first.S
		along := s - last.S
		if s < first.S {
			along = s + m.maxS - last.S
		}
		t := along / segLen
		x := last.X + t*(first.X-last.X)
		y := last.Y + t*(first.Y-last.Y)

		nearest := last
		if t > 0.5 {
			nearest = first
		}
		return orb.Point{x + d*nearest.DX, y + d*nearest.DY}
	}

	i := m.bracket(s)
	a, b := m.points[i], m.points[i+1]
	t := (s - a.S) / (b.S - a.S)
	x := a.X + t*(b.X-a.X)
	y := a.Y + t*(b.Y-a.Y)

	heading := math.Atan2(b.Y-a.Y, b.X-a.X)
	return orb.Point{x + d*math.Sin(heading), y - d*math.Cos(heading)}
}

// bracket returns i such that points[i].S <= s < points[i+1].S. The caller
// guarantees first.S <= s < last.S.
func (m *Map) bracket(s float64) int {
	lo, hi := 0, len(m.points)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if m.points[mid].S <= s {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// ClosestWaypoint returns the index of the sample nearest to p.
func (m *Map) ClosestWaypoint(p orb.Point) int {
	best, bestDist := 0, math.Inf(1)
	for i, w := range m.points {
		if dist := planar.DistanceSquared(p, w.Point()); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// ToFrenet projects p onto the centerline segment adjacent to the closest sample.
func (m *Map) ToFrenet(p orb.Point) (s, d float64) {
	n := len(m.points)
	i := m.ClosestWaypoint(p)

	// Choose the segment [prev, next] that p projects onto.
	prev, next := i, (i+1)%n
	if t := m.projection(p, prev, next); t < 0 {
		prev, next = (i-1+n)%n, i
	}

	a, b := m.points[prev], m.points[next]
	vx, vy := b.X-a.X, b.Y-a.Y
	px, py := p[0]-a.X, p[1]-a.Y
	segLen := math.Hypot(vx, vy)

	along := (px*vx + py*vy) / segLen
	heading := math.Atan2(vy, vx)
	d = px*math.Sin(heading) - py*math.Cos(heading)

	segS := b.S - a.S
	if next == 0 {
		segS = m.maxS - a.S + b.S
	}
	// Map Cartesian distance along the chord onto the segment's s span.
	s = m.WrapS(a.S + along*segS/segLen)
	return s, d
}

func (m *Map) projection(p orb.Point, from, to int) float64 {
	a, b := m.points[from], m.points[to]
	vx, vy := b.X-a.X, b.Y-a.Y
	l2 := vx*vx + vy*vy
	if l2 == 0 {
		return 0
	}
	return ((p[0]-a.X)*vx + (p[1]-a.Y)*vy) / l2
}
