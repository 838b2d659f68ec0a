// Package planner runs one planning cycle: summarize traffic, select a maneuver and
// generate the path that executes it.
//
// A Planner serves exactly one vehicle and must be called sequentially. Its only
// memory between cycles is the reference speed; the unconsumed part of the previous
// path is supplied by the caller every cycle.
package planner

import (
	"fmt"

	"github.com/paulmach/orb"

	"highway-planner/behavior"
	"highway-planner/environment"
	"highway-planner/frenet"
	control "highway-planner/longitudinal_control"
	"highway-planner/trajectory"
)

// Ego is the localized state of the planned vehicle.
type Ego struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	S     float64 `json:"s"`
	D     float64 `json:"d"`
	Yaw   float64 `json:"yaw"`   // radians
	Speed float64 `json:"speed"` // m/s
}

// Telemetry is one cycle's input.
type Telemetry struct {
	Ego      Ego
	Previous orb.LineString // points of the last path not yet driven
	EndPathS float64        // s of the last point of Previous
	EndPathD float64        // d of the last point of Previous
	Traffic  []environment.Observation
}

// Plan is one cycle's output.
type Plan struct {
	EgoLane  int
	Summary  environment.Summary
	Decision behavior.Decision
	Path     orb.LineString
	RefSpeed float64
}

// Option customizes a Planner.
type Option func(*options)

type options struct {
	curve trajectory.CurveFactory
}

// WithCurve replaces the curve used to shape paths.
func WithCurve(f trajectory.CurveFactory) Option {
	return func(o *options) { o.curve = f }
}

// Planner is the per-vehicle planning pipeline.
type Planner struct {
	cfg        Config
	cmap       *frenet.Map
	summarizer *environment.Summarizer
	selector   *behavior.Selector
	generator  *trajectory.Generator

	refSpeed float64
}

// New builds a planner over a validated centerline map.
func New(cfg Config, cmap *frenet.Map, opts ...Option) (*Planner, error) {
	if cmap == nil {
		return nil, fmt.Errorf("nil centerline map")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{curve: trajectory.NaturalCubic}
	for _, opt := range opts {
		opt(&o)
	}

	envCfg := cfg.Environment
	if envCfg.MaxS == 0 {
		envCfg.MaxS = cmap.MaxS()
	}

	governor := control.NewSpeedGovernor(cfg.Speed)
	return &Planner{
		cfg:        cfg,
		cmap:       cmap,
		summarizer: environment.NewSummarizer(envCfg, cfg.Lanes),
		selector:   behavior.NewSelector(cfg.Costs, cfg.Lanes, governor),
		generator:  trajectory.NewGenerator(cfg.Trajectory, cmap, governor, o.curve),
	}, nil
}

// Config returns the configuration in use.
func (p *Planner) Config() Config { return p.cfg }

// Map returns the centerline the planner works on.
func (p *Planner) Map() *frenet.Map { return p.cmap }

// RefSpeed is the reference speed carried into the next cycle.
func (p *Planner) RefSpeed() float64 { return p.refSpeed }

// Reset drops the reference speed back to rest.
func (p *Planner) Reset() { p.refSpeed = 0 }

// Cycle plans one control period. The reference speed is only updated when the
// cycle succeeds.
func (p *Planner) Cycle(t Telemetry) (Plan, error) {
	s := t.Ego.S
	if len(t.Previous) > 0 {
		s = t.EndPathS
	}
	lane := p.cfg.Lanes.Index(t.Ego.D)
	horizon := float64(len(t.Previous)) * p.cfg.Speed.TimeStepS

	summary := p.summarizer.Summarize(lane, s, t.Traffic, horizon)
	decision := p.selector.Select(lane, summary, p.refSpeed)

	res, err := p.generator.Generate(trajectory.Request{
		Pose:        trajectory.Pose{X: t.Ego.X, Y: t.Ego.Y, Yaw: t.Ego.Yaw, S: s},
		Previous:    t.Previous,
		TargetD:     decision.TargetD,
		TargetSpeed: decision.TargetSpeed,
		SpeedDelta:  decision.SpeedDelta,
		RefSpeed:    p.refSpeed,
	})
	if err != nil {
		return Plan{}, fmt.Errorf("generate path (%s): %w", decision.Maneuver.State(), err)
	}

	p.refSpeed = res.RefSpeed
	return Plan{
		EgoLane:  lane,
		Summary:  summary,
		Decision: decision,
		Path:     res.Path,
		RefSpeed: res.RefSpeed,
	}, nil
}
