package control

import "fmt"

// SpeedConfig holds the longitudinal limits applied to the reference speed
type SpeedConfig struct {
	MaxAccelMPS2  float64 `json:"max_accel_mps2"`  // bound on both acceleration and deceleration
	SpeedLimitMPS float64 `json:"speed_limit_mps"` // never exceeded
	TimeStepS     float64 `json:"time_step_s"`     // spacing of path points in time
}

// DefaultSpeedConfig returns the highway limits: 49.5 mph (converted with a
// 1600 m/mile factor, i.e. 22 m/s), 9 m/s² and 20 ms path points.
func DefaultSpeedConfig() SpeedConfig {
	return SpeedConfig{
		MaxAccelMPS2:  9.0,
		SpeedLimitMPS: 49.5 * (1600.0 / 3600.0),
		TimeStepS:     0.02,
	}
}

// MaxStep is the largest speed change allowed between two consecutive points.
func (c SpeedConfig) MaxStep() float64 {
	return c.MaxAccelMPS2 * c.TimeStepS
}

// Validate checks the limits are usable.
func (c SpeedConfig) Validate() error {
	if c.MaxAccelMPS2 <= 0 {
		return fmt.Errorf("invalid max_accel_mps2: %f", c.MaxAccelMPS2)
	}
	if c.SpeedLimitMPS <= 0 {
		return fmt.Errorf("invalid speed_limit_mps: %f", c.SpeedLimitMPS)
	}
	if c.TimeStepS <= 0 {
		return fmt.Errorf("invalid time_step_s: %f", c.TimeStepS)
	}
	return nil
}
