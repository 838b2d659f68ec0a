// Package behavior selects the maneuver for the next cycle with a cost-based finite
// state machine over Cruise, LaneChangeLeft and LaneChangeRight.
//
// Every cycle is evaluated from scratch. The only fact carried between cycles is the
// lane the vehicle actually occupies, which comes from the ego state.
package behavior

import "highway-planner/environment"

// State names a maneuver.
type State int

const (
	StateCruise State = iota
	StateLaneChangeLeft
	StateLaneChangeRight
)

func (s State) String() string {
	switch s {
	case StateCruise:
		return "CRUISE"
	case StateLaneChangeLeft:
		return "LANE_CHANGE_LEFT"
	case StateLaneChangeRight:
		return "LANE_CHANGE_RIGHT"
	default:
		return "UNKNOWN"
	}
}

// Maneuver is the selected behavior. The implementations are Cruise,
// LaneChangeLeft and LaneChangeRight; each carries its own target lane and the
// leader whose speed the vehicle follows in that lane.
type Maneuver interface {
	State() State
	TargetLane() int
	Leader() environment.Gap
	maneuver()
}

// Cruise keeps the current lane.
type Cruise struct {
	Lane int
	Lead environment.Gap
}

func (Cruise) State() State              { return StateCruise }
func (m Cruise) TargetLane() int         { return m.Lane }
func (m Cruise) Leader() environment.Gap { return m.Lead }
func (Cruise) maneuver()                 {}

// LaneChangeLeft moves one lane toward lane 0.
type LaneChangeLeft struct {
	From int
	Lead environment.Gap
}

func (LaneChangeLeft) State() State              { return StateLaneChangeLeft }
func (m LaneChangeLeft) TargetLane() int         { return m.From - 1 }
func (m LaneChangeLeft) Leader() environment.Gap { return m.Lead }
func (LaneChangeLeft) maneuver()                 {}

// LaneChangeRight moves one lane away from lane 0.
type LaneChangeRight struct {
	From int
	Lead environment.Gap
}

func (LaneChangeRight) State() State              { return StateLaneChangeRight }
func (m LaneChangeRight) TargetLane() int         { return m.From + 1 }
func (m LaneChangeRight) Leader() environment.Gap { return m.Lead }
func (LaneChangeRight) maneuver()                 {}
