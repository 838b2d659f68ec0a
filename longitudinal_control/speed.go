package control

import "github.com/samber/lo"

// SpeedMode labels the direction of the per-step reference speed change
type SpeedMode int

const (
	SpeedHold SpeedMode = iota
	SpeedAccel
	SpeedBrake
)

func (m SpeedMode) String() string {
	switch m {
	case SpeedAccel:
		return "[ACCEL]"
	case SpeedBrake:
		return "[BRAKE]"
	default:
		return "[HOLD]"
	}
}

// SpeedGovernor turns a target speed into bounded per-step reference speed changes.
// It is stateless; the reference speed itself is owned by the caller.
type SpeedGovernor struct {
	cfg SpeedConfig
}

// NewSpeedGovernor creates a governor with the given limits
func NewSpeedGovernor(cfg SpeedConfig) *SpeedGovernor {
	return &SpeedGovernor{cfg: cfg}
}

// Config returns the limits in use.
func (g *SpeedGovernor) Config() SpeedConfig { return g.cfg }

// Target returns the speed to track: the leader's speed when one is present, else
// the speed limit. The result is capped at the limit.
func (g *SpeedGovernor) Target(leadClear bool, leadSpeed float64) float64 {
	if leadClear {
		return g.cfg.SpeedLimitMPS
	}
	return lo.Clamp(leadSpeed, 0, g.cfg.SpeedLimitMPS)
}

// StepDelta returns the signed speed change to apply at every point of this cycle.
//
// With an open lane ahead the reference speed climbs at full acceleration toward the
// limit. Above the target it always brakes at full deceleration. Behind a faster
// leader it holds.
func (g *SpeedGovernor) StepDelta(leadClear bool, target, ref float64) (float64, SpeedMode) {
	diff := target - ref
	switch {
	case leadClear && diff > 0:
		return g.cfg.MaxStep(), SpeedAccel
	case diff < 0:
		return -g.cfg.MaxStep(), SpeedBrake
	default:
		return 0, SpeedHold
	}
}

// Advance applies one step of delta to ref without passing the target, dropping
// below zero or exceeding the speed limit.
func (g *SpeedGovernor) Advance(ref, delta, target float64) float64 {
	next := ref + delta
	if delta > 0 && next > target {
		next = target
	}
	if delta < 0 && next < target {
		next = target
	}
	return lo.Clamp(next, 0, g.cfg.SpeedLimitMPS)
}
