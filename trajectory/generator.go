// Package trajectory turns a target lane and speed into a dense sequence of future
// Cartesian positions spaced at a fixed time step.
//
// Each cycle the generator:
//
//  1. seeds two anchors that fix the tangent at the seam with the previous path,
//  2. adds widely spaced forward anchors on the target lane,
//  3. rotates the anchors into a local frame aligned with the seam tangent,
//  4. fits a smooth curve through them,
//  5. re-emits the unconsumed previous points, and
//  6. fills the remaining slots by walking along the curve at the reference speed,
//     which is advanced one bounded step per point.
package trajectory

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"highway-planner/frenet"
	control "highway-planner/longitudinal_control"
)

// Config holds the path shape parameters.
type Config struct {
	PathLength    int       `json:"path_length"`    // points per emitted path
	AnchorSpacing []float64 `json:"anchor_spacing"` // forward anchor offsets in s (m), increasing
	Lookahead     float64   `json:"lookahead"`      // local x used to scale the step along the curve (m)
}

// DefaultConfig returns 50 points with anchors at +50/+70/+90 m and a 30 m lookahead.
func DefaultConfig() Config {
	return Config{
		PathLength:    50,
		AnchorSpacing: []float64{50, 70, 90},
		Lookahead:     30,
	}
}

// Validate checks the shape parameters.
func (c Config) Validate() error {
	if c.PathLength <= 0 {
		return fmt.Errorf("invalid path_length: %d", c.PathLength)
	}
	if len(c.AnchorSpacing) == 0 {
		return fmt.Errorf("anchor_spacing must not be empty")
	}
	for i, off := range c.AnchorSpacing {
		if off <= 0 || (i > 0 && off <= c.AnchorSpacing[i-1]) {
			return fmt.Errorf("anchor_spacing must be positive and increasing: %v", c.AnchorSpacing)
		}
	}
	if c.Lookahead <= 0 {
		return fmt.Errorf("invalid lookahead: %f", c.Lookahead)
	}
	return nil
}

// Pose is the ego position (m), heading (rad) and road position the path starts from.
type Pose struct {
	X   float64
	Y   float64
	Yaw float64
	S   float64 // end of the previous path when one exists, else the ego s
}

// Request is one cycle's input.
type Request struct {
	Pose        Pose
	Previous    orb.LineString // unconsumed tail of the last emitted path
	TargetD     float64
	TargetSpeed float64
	SpeedDelta  float64 // signed change applied at every new point
	RefSpeed    float64 // reference speed carried over from the previous cycle
}

// Result is one cycle's output.
type Result struct {
	Path     orb.LineString
	RefSpeed float64        // reference speed after the last generated point
	Anchors  orb.LineString // curve anchors in the global frame
}

// minSeamLength below which the previous path's tail gives no usable heading.
const minSeamLength = 1e-6

// Generator builds paths over a centerline map. It keeps no state between calls.
type Generator struct {
	cfg      Config
	cmap     *frenet.Map
	governor *control.SpeedGovernor
	newCurve CurveFactory
}

// NewGenerator creates a generator. A nil factory selects NaturalCubic.
func NewGenerator(cfg Config, cmap *frenet.Map, governor *control.SpeedGovernor, newCurve CurveFactory) *Generator {
	if newCurve == nil {
		newCurve = NaturalCubic
	}
	return &Generator{cfg: cfg, cmap: cmap, governor: governor, newCurve: newCurve}
}

// Generate produces the next path and the updated reference speed.
func (g *Generator) Generate(req Request) (Result, error) {
	frame, anchors := g.seed(req)

	for _, off := range g.cfg.AnchorSpacing {
		anchors = append(anchors, g.cmap.ToCartesian(req.Pose.S+off, req.TargetD))
	}

	xs := make([]float64, len(anchors))
	ys := make([]float64, len(anchors))
	for i, p := range anchors {
		xs[i], ys[i] = frame.toLocal(p)
	}
	if err := checkIncreasing(xs); err != nil {
		return Result{}, err
	}

	curve := g.newCurve()
	if err := curve.Fit(xs, ys); err != nil {
		return Result{}, fmt.Errorf("fit curve: %w", err)
	}

	path := make(orb.LineString, 0, max(g.cfg.PathLength, len(req.Previous)))
	path = append(path, req.Previous...)

	// Step along local x so that the chord to the lookahead point is covered at the
	// reference speed.
	targetX := g.cfg.Lookahead
	targetDist := math.Hypot(targetX, curve.Predict(targetX))
	dt := g.governor.Config().TimeStepS

	ref := req.RefSpeed
	x := 0.0
	for len(path) < g.cfg.PathLength {
		ref = g.governor.Advance(ref, req.SpeedDelta, req.TargetSpeed)
		x += ref * dt * targetX / targetDist
		path = append(path, frame.toGlobal(x, curve.Predict(x)))
	}

	return Result{Path: path, RefSpeed: ref, Anchors: orb.LineString(anchors)}, nil
}

// seed picks the seam reference point and heading and the two anchors that fix the
// initial tangent.
func (g *Generator) seed(req Request) (localFrame, []orb.Point) {
	anchors := make([]orb.Point, 0, 2+len(g.cfg.AnchorSpacing))
	prev := req.Previous

	if n := len(prev); n >= 2 {
		last, before := prev[n-1], prev[n-2]
		if planar.Distance(last, before) > minSeamLength {
			yaw := math.Atan2(last[1]-before[1], last[0]-before[0])
			return newLocalFrame(last, yaw), append(anchors, before, last)
		}
		// Stationary tail: keep the seam point, take the heading from the pose.
		return g.poseSeed(last, req.Pose.Yaw, anchors)
	}

	return g.poseSeed(orb.Point{req.Pose.X, req.Pose.Y}, req.Pose.Yaw, anchors)
}

func (g *Generator) poseSeed(at orb.Point, yaw float64, anchors []orb.Point) (localFrame, []orb.Point) {
	behind := orb.Point{at[0] - math.Cos(yaw), at[1] - math.Sin(yaw)}
	return newLocalFrame(at, yaw), append(anchors, behind, at)
}
