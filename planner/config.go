package planner

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/multierr"

	"highway-planner/behavior"
	"highway-planner/environment"
	"highway-planner/frenet"
	control "highway-planner/longitudinal_control"
	"highway-planner/trajectory"
)

// Config gathers the tunables of every planning stage.
type Config struct {
	Lanes       frenet.Lanes        `json:"lanes"`
	Environment environment.Config  `json:"environment"`
	Costs       behavior.CostConfig `json:"costs"`
	Speed       control.SpeedConfig `json:"speed"`
	Trajectory  trajectory.Config   `json:"trajectory"`
}

// DefaultConfig returns the highway tuning.
func DefaultConfig() Config {
	return Config{
		Lanes:       frenet.DefaultLanes(),
		Environment: environment.DefaultConfig(),
		Costs:       behavior.DefaultCostConfig(),
		Speed:       control.DefaultSpeedConfig(),
		Trajectory:  trajectory.DefaultConfig(),
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error
	if c.Lanes.Count <= 0 {
		err = multierr.Append(err, fmt.Errorf("invalid lanes.count: %d", c.Lanes.Count))
	}
	if c.Lanes.Width <= 0 {
		err = multierr.Append(err, fmt.Errorf("invalid lanes.width: %f", c.Lanes.Width))
	}
	if c.Environment.LookAhead <= 0 || c.Environment.LookBehind <= 0 {
		err = multierr.Append(err, fmt.Errorf("invalid environment windows: ahead=%f behind=%f",
			c.Environment.LookAhead, c.Environment.LookBehind))
	}
	if c.Environment.Margin < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid environment.margin: %f", c.Environment.Margin))
	}
	if c.Costs.CriticalGap < 0 || c.Costs.MinFrontGap < 0 || c.Costs.MinRearGap < 0 {
		err = multierr.Append(err, fmt.Errorf("cost gates must not be negative"))
	}
	err = multierr.Append(err, c.Speed.Validate())
	err = multierr.Append(err, c.Trajectory.Validate())
	return err
}

// LoadConfig overlays the JSON file at path on the defaults. An empty path returns
// the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}
