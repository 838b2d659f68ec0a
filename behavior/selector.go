package behavior

import (
	"fmt"

	"highway-planner/environment"
	"highway-planner/frenet"
	control "highway-planner/longitudinal_control"
)

// Decision is the outcome of one cycle: the maneuver plus everything the trajectory
// generator needs to execute it.
type Decision struct {
	Maneuver    Maneuver
	Costs       Costs
	TargetD     float64           // lateral offset of the target lane center
	TargetSpeed float64           // leader speed in the target lane, or the speed limit
	SpeedDelta  float64           // signed reference speed change per path point
	SpeedMode   control.SpeedMode // direction of SpeedDelta
}

// TargetLane is the lane the maneuver ends in.
func (d Decision) TargetLane() int { return d.Maneuver.TargetLane() }

func (d Decision) String() string {
	return fmt.Sprintf("%s lane=%d d=%.2f target_v=%.2f dv=%+.3f %s costs=[%.0f %.0f %.0f]",
		d.Maneuver.State(), d.TargetLane(), d.TargetD, d.TargetSpeed, d.SpeedDelta, d.SpeedMode,
		d.Costs.Cruise, d.Costs.Left, d.Costs.Right)
}

// Selector evaluates the maneuver costs and picks the cheapest one.
type Selector struct {
	costs    CostConfig
	lanes    frenet.Lanes
	governor *control.SpeedGovernor
}

// NewSelector creates a selector for the lane layout.
func NewSelector(costs CostConfig, lanes frenet.Lanes, governor *control.SpeedGovernor) *Selector {
	return &Selector{costs: costs, lanes: lanes, governor: governor}
}

// Evaluate computes the cost of every maneuver.
func (s *Selector) Evaluate(egoLane int, sum environment.Summary) Costs {
	return Costs{
		Cruise: s.costs.CruiseCost(sum.Front),
		Left:   s.costs.LaneChangeLeftCost(s.lanes, egoLane, sum.LeftFront, sum.LeftRear),
		Right:  s.costs.LaneChangeRightCost(s.lanes, egoLane, sum.RightFront, sum.RightRear),
	}
}

// Select picks the minimum cost maneuver. Ties go to the earlier of Cruise, Left,
// Right. refSpeed is the current reference speed, used to derive the speed delta.
func (s *Selector) Select(egoLane int, sum environment.Summary, refSpeed float64) Decision {
	costs := s.Evaluate(egoLane, sum)

	var m Maneuver = Cruise{Lane: s.lanes.Clamp(egoLane), Lead: sum.Front}
	best := costs.Cruise
	if costs.Left < best {
		best = costs.Left
		m = LaneChangeLeft{From: egoLane, Lead: sum.LeftFront}
	}
	if costs.Right < best {
		m = LaneChangeRight{From: egoLane, Lead: sum.RightFront}
	}

	lead := m.Leader()
	target := s.governor.Target(lead.Clear(), lead.Speed)
	delta, mode := s.governor.StepDelta(lead.Clear(), target, refSpeed)

	return Decision{
		Maneuver:    m,
		Costs:       costs,
		TargetD:     s.lanes.Center(m.TargetLane()),
		TargetSpeed: target,
		SpeedDelta:  delta,
		SpeedMode:   mode,
	}
}
