package behavior

import (
	"highway-planner/environment"
	"highway-planner/frenet"
)

// CostConfig holds the gate thresholds and the cost levels of each maneuver.
//
// LeftForbidden and RightForbidden differ (1000 vs 999) as tuned; Cruise still wins
// every tie with a forbidden lane change because it is evaluated first.
type CostConfig struct {
	CriticalGap     float64 `json:"critical_gap"`      // same-lane gap below which cruising is forbidden (m)
	CruiseForbidden float64 `json:"cruise_forbidden"`  // cost of cruising into a critical gap
	CruiseOccupied  float64 `json:"cruise_occupied"`   // cost of cruising behind a leader
	MinFrontGap     float64 `json:"min_front_gap"`     // target-lane forward clearance gate (m)
	MinRearGap      float64 `json:"min_rear_gap"`      // target-lane rear clearance gate (m)
	LeftForbidden   float64 `json:"left_forbidden"`    // cost of a gated left change
	RightForbidden  float64 `json:"right_forbidden"`   // cost of a gated right change
	ChangeClear     float64 `json:"change_clear"`      // both target-lane gaps clear
	ChangeCaution   float64 `json:"change_caution"`    // front clear, rear occupied strictly beyond the gate
	ChangeOccupied  float64 `json:"change_occupied"`   // front occupied beyond the gate
}

// DefaultCostConfig returns the tuned highway costs.
func DefaultCostConfig() CostConfig {
	return CostConfig{
		CriticalGap:     15,
		CruiseForbidden: 999,
		CruiseOccupied:  50,
		MinFrontGap:     30,
		MinRearGap:      15,
		LeftForbidden:   1000,
		RightForbidden:  999,
		ChangeClear:     1,
		ChangeCaution:   40,
		ChangeOccupied:  60,
	}
}

// Costs records the evaluated cost of every maneuver in one cycle.
type Costs struct {
	Cruise float64 `json:"cruise"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// CruiseCost depends only on the same-lane forward gap.
func (c CostConfig) CruiseCost(front environment.Gap) float64 {
	switch {
	case front.Distance < c.CriticalGap:
		return c.CruiseForbidden
	case front.Clear():
		return 0
	default:
		return c.CruiseOccupied
	}
}

// LaneChangeLeftCost gates the change on the ego lane and the left-lane gaps.
func (c CostConfig) LaneChangeLeftCost(lanes frenet.Lanes, lane int, front, rear environment.Gap) float64 {
	if !lanes.Valid(lane) || lanes.Leftmost(lane) {
		return c.LeftForbidden
	}
	return c.changeCost(c.LeftForbidden, front, rear)
}

// LaneChangeRightCost gates the change on the ego lane and the right-lane gaps.
func (c CostConfig) LaneChangeRightCost(lanes frenet.Lanes, lane int, front, rear environment.Gap) float64 {
	if !lanes.Valid(lane) || lanes.Rightmost(lane) {
		return c.RightForbidden
	}
	return c.changeCost(c.RightForbidden, front, rear)
}

func (c CostConfig) changeCost(forbidden float64, front, rear environment.Gap) float64 {
	switch {
	case front.Distance < c.MinFrontGap || rear.Distance < c.MinRearGap:
		return forbidden
	case front.Clear() && rear.Clear():
		return c.ChangeClear
	case front.Clear() && rear.Distance > c.MinRearGap:
		return c.ChangeCaution
	default:
		return c.ChangeOccupied
	}
}
