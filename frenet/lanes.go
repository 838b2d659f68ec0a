package frenet

import "math"

// Lanes describes fixed-width lanes numbered left to right from 0, lane 0 starting
// at the centerline.
type Lanes struct {
	Count int     `json:"count"`
	Width float64 `json:"width"`
}

// DefaultLanes is a three-lane carriageway of 4 m lanes.
func DefaultLanes() Lanes {
	return Lanes{Count: 3, Width: 4}
}

// Index returns the lane containing lateral offset d. The result is not clamped
// and may fall outside [0, Count-1] for off-road offsets.
func (l Lanes) Index(d float64) int {
	return int(math.Floor(d / l.Width))
}

// Center returns the lateral offset of the middle of lane.
func (l Lanes) Center(lane int) float64 {
	return l.Width/2 + float64(lane)*l.Width
}

// Valid reports whether lane is on the road.
func (l Lanes) Valid(lane int) bool {
	return lane >= 0 && lane < l.Count
}

// Clamp moves lane onto the road.
func (l Lanes) Clamp(lane int) int {
	if lane < 0 {
		return 0
	}
	if lane >= l.Count {
		return l.Count - 1
	}
	return lane
}

// Leftmost reports whether lane cannot be departed further left.
func (l Lanes) Leftmost(lane int) bool { return lane == 0 }

// Rightmost reports whether lane cannot be departed further right.
func (l Lanes) Rightmost(lane int) bool { return lane == l.Count-1 }
