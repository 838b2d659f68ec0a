package trajectory

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"highway-planner/frenet"
	control "highway-planner/longitudinal_control"
)

// recordingCurve is a piecewise-linear stand-in that remembers its anchors.
type recordingCurve struct {
	xs, ys []float64
}

func (c *recordingCurve) Fit(xs, ys []float64) error {
	c.xs = append([]float64(nil), xs...)
	c.ys = append([]float64(nil), ys...)
	return nil
}

func (c *recordingCurve) Predict(x float64) float64 {
	for i := 1; i < len(c.xs); i++ {
		if x <= c.xs[i] {
			t := (x - c.xs[i-1]) / (c.xs[i] - c.xs[i-1])
			return c.ys[i-1] + t*(c.ys[i]-c.ys[i-1])
		}
	}
	return c.ys[len(c.ys)-1]
}

func straightRoad(t *testing.T) *frenet.Map {
	t.Helper()
	m, err := frenet.Straight(2000, 30)
	require.NoError(t, err)
	return m
}

func newGenerator(t *testing.T, factory CurveFactory) (*Generator, *control.SpeedGovernor) {
	t.Helper()
	gov := control.NewSpeedGovernor(control.DefaultSpeedConfig())
	return NewGenerator(DefaultConfig(), straightRoad(t), gov, factory), gov
}

func impliedSpeeds(path orb.LineString, dt float64) []float64 {
	out := make([]float64, 0, len(path))
	for i := 1; i < len(path); i++ {
		out = append(out, planar.Distance(path[i-1], path[i])/dt)
	}
	return out
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.AnchorSpacing = []float64{50, 40}
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.PathLength = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Lookahead = 0
	assert.Error(t, bad.Validate())
}

func TestLocalFrameRoundTrip(t *testing.T) {
	t.Parallel()
	f := newLocalFrame(orb.Point{10, -3}, 0.7)

	x, y := f.toLocal(orb.Point{10, -3})
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)

	x, y = f.toLocal(orb.Point{10 + math.Cos(0.7)*5, -3 + math.Sin(0.7)*5})
	assert.InDelta(t, 5, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)

	p := f.toGlobal(3, 4)
	x, y = f.toLocal(p)
	assert.InDelta(t, 3, x, 1e-12)
	assert.InDelta(t, 4, y, 1e-12)
}

func TestGenerateFromRest(t *testing.T) {
	t.Parallel()
	g, gov := newGenerator(t, nil)
	step := gov.Config().MaxStep()

	res, err := g.Generate(Request{
		Pose:        Pose{X: 100, Y: -6, Yaw: 0, S: 100},
		TargetD:     6,
		TargetSpeed: 22,
		SpeedDelta:  step,
		RefSpeed:    0,
	})
	require.NoError(t, err)
	require.Len(t, res.Path, 50)

	// Reference speed ramps linearly from rest.
	assert.InDelta(t, 50*step, res.RefSpeed, 1e-9)
	assert.InDelta(t, 100+step*0.02, res.Path[0][0], 1e-9)
	assert.InDelta(t, -6, res.Path[0][1], 1e-9)

	speeds := impliedSpeeds(res.Path, 0.02)
	for i, v := range speeds {
		assert.InDelta(t, step*float64(i+2), v, 1e-6, "point %d", i+1)
	}
	for _, p := range res.Path {
		assert.InDelta(t, -6, p[1], 1e-9)
	}
}

func TestGenerateSpeedBounds(t *testing.T) {
	t.Parallel()
	g, gov := newGenerator(t, nil)
	cfg := gov.Config()

	res, err := g.Generate(Request{
		Pose:        Pose{X: 500, Y: -2, S: 500},
		TargetD:     2,
		TargetSpeed: cfg.SpeedLimitMPS,
		SpeedDelta:  cfg.MaxStep(),
		RefSpeed:    21.5,
	})
	require.NoError(t, err)
	assert.InDelta(t, cfg.SpeedLimitMPS, res.RefSpeed, 1e-12)

	speeds := impliedSpeeds(res.Path, cfg.TimeStepS)
	for i := 1; i < len(speeds); i++ {
		assert.LessOrEqual(t, speeds[i], cfg.SpeedLimitMPS+1e-6)
		assert.LessOrEqual(t, math.Abs(speeds[i]-speeds[i-1]), cfg.MaxStep()+1e-6)
	}
}

func TestGenerateBraking(t *testing.T) {
	t.Parallel()
	g, gov := newGenerator(t, nil)
	step := gov.Config().MaxStep()

	res, err := g.Generate(Request{
		Pose:        Pose{X: 300, Y: -6, S: 300},
		TargetD:     6,
		TargetSpeed: 5,
		SpeedDelta:  -step,
		RefSpeed:    20,
	})
	require.NoError(t, err)
	assert.InDelta(t, 20-50*step, res.RefSpeed, 1e-9)

	speeds := impliedSpeeds(res.Path, 0.02)
	for i := 1; i < len(speeds); i++ {
		assert.Less(t, speeds[i], speeds[i-1])
	}
}

func TestGenerateContinuesPreviousPath(t *testing.T) {
	t.Parallel()
	g, _ := newGenerator(t, nil)

	prev := make(orb.LineString, 10)
	for i := range prev {
		prev[i] = orb.Point{200 + 0.4*float64(i), -6}
	}

	res, err := g.Generate(Request{
		Pose:        Pose{X: 199, Y: -6, S: 203.6},
		Previous:    prev,
		TargetD:     6,
		TargetSpeed: 20,
		SpeedDelta:  0,
		RefSpeed:    20,
	})
	require.NoError(t, err)
	require.Len(t, res.Path, 50)

	assert.Equal(t, prev, res.Path[:10])
	assert.Equal(t, prev[9], res.Anchors[1])
	assert.Equal(t, prev[8], res.Anchors[0])

	// First new point continues from the seam at the reference speed.
	assert.InDelta(t, 20*0.02, planar.Distance(prev[9], res.Path[10]), 1e-9)
	assert.InDelta(t, 20.0, res.RefSpeed, 1e-12)
}

func TestGenerateKeepsLongPrevious(t *testing.T) {
	t.Parallel()
	g, _ := newGenerator(t, nil)

	prev := make(orb.LineString, 55)
	for i := range prev {
		prev[i] = orb.Point{100 + 0.4*float64(i), -6}
	}
	res, err := g.Generate(Request{Pose: Pose{S: 121.6}, Previous: prev, TargetD: 6, RefSpeed: 20})
	require.NoError(t, err)
	assert.Equal(t, prev, res.Path)
}

func TestGenerateLaneChangeIsSmooth(t *testing.T) {
	t.Parallel()
	g, _ := newGenerator(t, nil)

	res, err := g.Generate(Request{
		Pose:        Pose{X: 400, Y: -6, S: 400},
		TargetD:     2,
		TargetSpeed: 22,
		SpeedDelta:  0,
		RefSpeed:    20,
	})
	require.NoError(t, err)

	var prevHeading float64
	for i := 1; i < len(res.Path); i++ {
		dx := res.Path[i][0] - res.Path[i-1][0]
		dy := res.Path[i][1] - res.Path[i-1][1]
		require.Greater(t, dx, 0.0)
		heading := math.Atan2(dy, dx)
		if i > 1 {
			assert.Less(t, math.Abs(heading-prevHeading), 0.01)
		}
		prevHeading = heading
	}
	// Moving toward the left lane means y rises toward -2.
	assert.Greater(t, res.Path[len(res.Path)-1][1], -6.0)
}

func TestGenerateUsesInjectedCurve(t *testing.T) {
	t.Parallel()
	rec := &recordingCurve{}
	g, _ := newGenerator(t, func() Curve { return rec })

	res, err := g.Generate(Request{
		Pose:        Pose{X: 100, Y: -6, S: 100},
		TargetD:     6,
		TargetSpeed: 22,
		SpeedDelta:  0.18,
	})
	require.NoError(t, err)
	require.Len(t, rec.xs, 5)
	assert.InDelta(t, -1, rec.xs[0], 1e-12)
	assert.InDelta(t, 0, rec.xs[1], 1e-12)
	assert.InDelta(t, 50, rec.xs[2], 1e-9)
	assert.InDelta(t, 90, rec.xs[4], 1e-9)
	assert.Len(t, res.Anchors, 5)
}

func TestGenerateRejectsDegenerateAnchors(t *testing.T) {
	t.Parallel()
	g, _ := newGenerator(t, nil)

	// Heading backwards along the road puts every forward anchor behind the seam.
	_, err := g.Generate(Request{
		Pose:        Pose{X: 100, Y: -6, Yaw: math.Pi, S: 100},
		TargetD:     6,
		TargetSpeed: 22,
		SpeedDelta:  0.18,
	})
	require.ErrorIs(t, err, ErrDegenerateAnchors)
}

func TestGenerateStationaryTailUsesPoseHeading(t *testing.T) {
	t.Parallel()
	g, _ := newGenerator(t, nil)

	prev := orb.LineString{{150, -6}, {150, -6}}
	res, err := g.Generate(Request{
		Pose:        Pose{X: 150, Y: -6, Yaw: 0, S: 150},
		Previous:    prev,
		TargetD:     6,
		TargetSpeed: 22,
		SpeedDelta:  0.18,
	})
	require.NoError(t, err)
	assert.Equal(t, prev, res.Path[:2])
	assert.Greater(t, res.Path[2][0], 150.0)
}
