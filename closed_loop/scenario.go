package main

import (
	"encoding/json"
	"fmt"
	"os"

	"highway-planner/frenet"
	"highway-planner/planner"
	"highway-planner/utils"
)

// Scenario defines a complete offline highway scenario
type Scenario struct {
	Meta     ScenarioMeta     `json:"meta"`
	Timing   ScenarioTiming   `json:"timing"`
	Road     ScenarioRoad     `json:"road"`
	Ego      ScenarioEgo      `json:"ego"`
	Traffic  []ScenarioCar    `json:"traffic"`
	Segments []TrafficSegment `json:"segments,omitempty"`
	Planner  json.RawMessage  `json:"planner,omitempty"` // overlay on the planner defaults
	Expect   *ScenarioExpect  `json:"expect,omitempty"`
}

// ScenarioMeta contains scenario metadata
type ScenarioMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// ScenarioTiming defines timing parameters
type ScenarioTiming struct {
	DtS         float64 `json:"dt_s"`         // path point spacing
	DurationS   float64 `json:"duration_s"`   // simulated time
	CyclePoints int     `json:"cycle_points"` // points driven between planning cycles
	LogHz       float64 `json:"log_hz"`
}

// ScenarioRoad selects the centerline. A map path wins over the generated ring.
type ScenarioRoad struct {
	MapPath     string  `json:"map_path,omitempty"`
	MaxS        float64 `json:"max_s,omitempty"`
	RingRadius  float64 `json:"ring_radius_m,omitempty"`
	RingSamples int     `json:"ring_samples,omitempty"`
}

// ScenarioEgo is the planned vehicle's start, at rest on a lane center.
type ScenarioEgo struct {
	S    float64 `json:"s"`
	Lane int     `json:"lane"`
}

// ScenarioCar is one traffic vehicle driving at constant speed on a lane center.
type ScenarioCar struct {
	ID       int     `json:"id"`
	S        float64 `json:"s"`
	Lane     int     `json:"lane"`
	SpeedMPS float64 `json:"speed_mps"`
}

// TrafficSegment overrides one car's speed or lane in [t0, t1). t1 < 0 runs to the end.
type TrafficSegment struct {
	CarID    int      `json:"car_id"`
	T0       float64  `json:"t0"`
	T1       float64  `json:"t1"`
	SpeedMPS *float64 `json:"speed_mps,omitempty"`
	Lane     *int     `json:"lane,omitempty"`
	Comment  string   `json:"comment,omitempty"`
}

// ScenarioExpect are pass criteria checked after the replay
type ScenarioExpect struct {
	MinLaneChanges int  `json:"min_lane_changes"`
	NoCollisions   bool `json:"no_collisions"`
}

// LoadScenario loads a scenario from JSON file
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read file: %w", err)
	}

	var scen Scenario
	if err := json.Unmarshal(data, &scen); err != nil {
		return Scenario{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := scen.normalize(); err != nil {
		return Scenario{}, err
	}
	return scen, nil
}

// normalize fills defaults and validates.
func (s *Scenario) normalize() error {
	if s.Timing.DurationS <= 0 {
		return fmt.Errorf("invalid duration_s: %f", s.Timing.DurationS)
	}
	if s.Timing.DtS == 0 {
		s.Timing.DtS = 0.02
	}
	if s.Timing.DtS < 0 {
		return fmt.Errorf("invalid dt_s: %f", s.Timing.DtS)
	}
	if s.Timing.CyclePoints == 0 {
		s.Timing.CyclePoints = 10
	}
	if s.Timing.CyclePoints < 0 {
		return fmt.Errorf("invalid cycle_points: %d", s.Timing.CyclePoints)
	}
	if s.Road.MapPath == "" {
		if s.Road.RingRadius == 0 {
			s.Road.RingRadius = 320
		}
		if s.Road.RingSamples == 0 {
			s.Road.RingSamples = 200
		}
	}

	ids := make(map[int]bool, len(s.Traffic))
	for _, c := range s.Traffic {
		if ids[c.ID] {
			return fmt.Errorf("duplicate traffic id %d", c.ID)
		}
		ids[c.ID] = true
		if c.SpeedMPS < 0 {
			return fmt.Errorf("car %d: invalid speed_mps %f", c.ID, c.SpeedMPS)
		}
	}
	for i, seg := range s.Segments {
		if !ids[seg.CarID] {
			return fmt.Errorf("segment %d: unknown car_id %d", i, seg.CarID)
		}
	}
	return nil
}

// PlannerConfig overlays the scenario's planner section on base.
func (s *Scenario) PlannerConfig(base planner.Config) (planner.Config, error) {
	if len(s.Planner) == 0 {
		return base, nil
	}
	cfg := base
	if err := json.Unmarshal(s.Planner, &cfg); err != nil {
		return planner.Config{}, fmt.Errorf("planner overlay: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return planner.Config{}, fmt.Errorf("planner overlay: %w", err)
	}
	return cfg, nil
}

// BuildRoad loads or generates the scenario's centerline.
func (s *Scenario) BuildRoad() (*frenet.Map, error) {
	if s.Road.MapPath != "" {
		return utils.LoadCenterline(s.Road.MapPath, s.Road.MaxS)
	}
	return frenet.Ring(s.Road.RingRadius, s.Road.RingSamples)
}

// EvalCar returns the speed and lane of car at time t.
func EvalCar(scen *Scenario, car ScenarioCar, t float64) (speed float64, lane int) {
	speed, lane = car.SpeedMPS, car.Lane

	for _, seg := range scen.Segments {
		if seg.CarID != car.ID {
			continue
		}
		t1 := seg.T1
		if t1 < 0 {
			t1 = scen.Timing.DurationS
		}
		if t >= seg.T0 && t < t1 {
			if seg.SpeedMPS != nil {
				speed = *seg.SpeedMPS
			}
			if seg.Lane != nil {
				lane = *seg.Lane
			}
			break
		}
	}
	return speed, lane
}
