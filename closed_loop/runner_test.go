package main

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.einride.tech/can"

	"highway-planner/frenet"
	"highway-planner/planner"
	"highway-planner/utils"
)

const canMapPath = "../config/can/planner_can_map.csv"

type fakeReader struct {
	frames chan can.Frame
}

func (r *fakeReader) ReadFrame(ctx context.Context) (can.Frame, error) {
	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case f := <-r.frames:
		return f, nil
	}
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	mu     sync.Mutex
	frames []can.Frame
	fail   error
}

func (w *fakeWriter) WriteFrame(_ context.Context, f can.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		return w.fail
	}
	w.frames = append(w.frames, f)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.frames)
}

func testFixtures(t *testing.T) (*utils.CANMap, *frenet.Map) {
	t.Helper()
	cmap, err := utils.LoadCANMap(canMapPath)
	require.NoError(t, err)
	road, err := frenet.Straight(3000, 30)
	require.NoError(t, err)
	return cmap, road
}

func encode(t *testing.T, cmap *utils.CANMap, name string, v map[string]float64) can.Frame {
	t.Helper()
	f, err := cmap.EncodeFrame(name, v)
	require.NoError(t, err)
	return f
}

func egoFrames(t *testing.T, cmap *utils.CANMap, s, d float64) []can.Frame {
	return []can.Frame{
		encode(t, cmap, utils.FrameEgoPose, map[string]float64{utils.SigEgoX: s, utils.SigEgoY: -d}),
		encode(t, cmap, utils.FrameEgoFrenet, map[string]float64{utils.SigEgoS: s, utils.SigEgoD: d, utils.SigEgoYaw: 0}),
		encode(t, cmap, utils.FrameEgoMotion, map[string]float64{utils.SigEgoSpeed: 0, utils.SigUnconsumed: 0}),
	}
}

func TestAssemblerEgoAndObjects(t *testing.T) {
	t.Parallel()
	cmap, road := testFixtures(t)
	asm := NewTelemetryAssembler(cmap, road, 500*time.Millisecond)
	now := time.Unix(100, 0)

	assert.False(t, asm.Ready())
	for _, f := range egoFrames(t, cmap, 100, 6) {
		require.NoError(t, asm.Apply(f, now))
	}
	require.NoError(t, asm.Apply(encode(t, cmap, utils.FrameEgoFrenet, map[string]float64{
		utils.SigEgoS: 100, utils.SigEgoD: 6, utils.SigEgoYaw: 90,
	}), now))
	assert.True(t, asm.Ready())

	require.NoError(t, asm.Apply(encode(t, cmap, utils.FrameObjState, map[string]float64{
		utils.SigObjID: 7, utils.SigObjS: 120, utils.SigObjD: 2,
	}), now))
	require.NoError(t, asm.Apply(encode(t, cmap, utils.FrameObjVelocity, map[string]float64{
		utils.SigObjID: 7, utils.SigObjVX: 12.5, utils.SigObjVY: -0.5,
	}), now))
	// Velocity without state is tracked but not reported.
	require.NoError(t, asm.Apply(encode(t, cmap, utils.FrameObjVelocity, map[string]float64{
		utils.SigObjID: 9, utils.SigObjVX: 3,
	}), now))

	tel := asm.Snapshot(now)
	assert.InDelta(t, 100, tel.Ego.X, 0.01)
	assert.InDelta(t, -6, tel.Ego.Y, 0.01)
	assert.InDelta(t, math.Pi/2, tel.Ego.Yaw, 1e-3)
	assert.Empty(t, tel.Previous)

	require.Len(t, tel.Traffic, 1)
	obs := tel.Traffic[0]
	assert.Equal(t, 7, obs.ID)
	assert.InDelta(t, 120, obs.S, 0.01)
	assert.InDelta(t, 12.5, obs.VX, 0.01)
	assert.InDelta(t, 120, obs.X, 0.01)
	assert.InDelta(t, -2, obs.Y, 0.01)

	// Objects expire after the TTL.
	tel = asm.Snapshot(now.Add(time.Second))
	assert.Empty(t, tel.Traffic)
	assert.Zero(t, asm.Objects())
}

func TestAssemblerPreviousPathTail(t *testing.T) {
	t.Parallel()
	cmap, road := testFixtures(t)
	asm := NewTelemetryAssembler(cmap, road, time.Second)
	now := time.Unix(0, 0)

	asm.Sent(orb.LineString{{100, -6}, {101, -6}, {102, -6}, {103, -6}})
	require.NoError(t, asm.Apply(encode(t, cmap, utils.FrameEgoMotion, map[string]float64{
		utils.SigEgoSpeed: 20, utils.SigUnconsumed: 2,
	}), now))

	tel := asm.Snapshot(now)
	assert.Equal(t, orb.LineString{{102, -6}, {103, -6}}, tel.Previous)
	assert.InDelta(t, 103, tel.EndPathS, 1e-6)
	assert.InDelta(t, 6, tel.EndPathD, 1e-6)
	assert.InDelta(t, 20, tel.Ego.Speed, 0.01)

	require.NoError(t, asm.Apply(encode(t, cmap, utils.FrameEgoPathEnd, map[string]float64{
		utils.SigEndPathS: 103.5, utils.SigEndPathD: 5.9,
	}), now))
	tel = asm.Snapshot(now)
	assert.InDelta(t, 103.5, tel.EndPathS, 0.01)
	assert.InDelta(t, 5.9, tel.EndPathD, 0.01)

	// More reported than sent is capped at what was sent.
	require.NoError(t, asm.Apply(encode(t, cmap, utils.FrameEgoMotion, map[string]float64{utils.SigUnconsumed: 10}), now))
	assert.Len(t, asm.Snapshot(now).Previous, 4)
}

func TestAssemblerIgnoresTxAndRejectsUnknown(t *testing.T) {
	t.Parallel()
	cmap, road := testFixtures(t)
	asm := NewTelemetryAssembler(cmap, road, time.Second)

	hdr := encode(t, cmap, utils.FramePathHeader, nil)
	assert.NoError(t, asm.Apply(hdr, time.Now()))
	assert.Error(t, asm.Apply(can.Frame{ID: 0x7AB, Length: 8}, time.Now()))
}

func newTestRunner(t *testing.T, w *fakeWriter) (*Runner, *fakeReader) {
	t.Helper()
	cmap, road := testFixtures(t)
	p, err := planner.New(planner.DefaultConfig(), road)
	require.NoError(t, err)
	rd := &fakeReader{frames: make(chan can.Frame, 16)}
	r, err := newRunner(RunnerConfig{Interface: "test", ObjectTTL: time.Second}, cmap, p, rd, w, quietLogger())
	require.NoError(t, err)
	return r, rd
}

func TestRunnerTick(t *testing.T) {
	t.Parallel()
	w := &fakeWriter{}
	r, _ := newTestRunner(t, w)
	ctx := context.Background()
	assert.Equal(t, 20*time.Millisecond, r.cycle)

	// Nothing is sent before the ego pose arrives.
	require.NoError(t, r.tick(ctx, time.Now()))
	assert.Zero(t, w.count())

	for _, f := range egoFrames(t, r.cmap, 100, 6) {
		require.NoError(t, r.asm.Apply(f, time.Now()))
	}
	require.NoError(t, r.tick(ctx, time.Now()))
	require.Equal(t, 51, w.count())

	hdr, err := r.cmap.DecodeFrame(w.frames[0])
	require.NoError(t, err)
	assert.Equal(t, 50.0, hdr[utils.SigPointCount])
	assert.Equal(t, 0.0, hdr[utils.SigState])
	assert.Equal(t, 1.0, hdr[utils.SigTargetLane])
	assert.Equal(t, 0.0, hdr[utils.SigSequence])
	assert.InDelta(t, 9.0, hdr[utils.SigRefSpeed], 0.01)

	last, err := r.cmap.DecodeFrame(w.frames[50])
	require.NoError(t, err)
	assert.Equal(t, 49.0, last[utils.SigPointIndex])
	assert.InDelta(t, -6, last[utils.SigPointY], 0.01)
	assert.Len(t, r.asm.lastPath, 50)
}

func TestRunnerTickTransmitError(t *testing.T) {
	t.Parallel()
	w := &fakeWriter{fail: errors.New("bus off")}
	r, _ := newTestRunner(t, w)
	for _, f := range egoFrames(t, r.cmap, 100, 6) {
		require.NoError(t, r.asm.Apply(f, time.Now()))
	}
	assert.Error(t, r.tick(context.Background(), time.Now()))
	assert.Empty(t, r.asm.lastPath)
}

func TestRunnerRun(t *testing.T) {
	t.Parallel()
	w := &fakeWriter{}
	r, rd := newTestRunner(t, w)
	for _, f := range egoFrames(t, r.cmap, 100, 6) {
		rd.frames <- f
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return w.count() >= 51 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunnerStartupUsesPlannerMapAndConfig(t *testing.T) {
	t.Parallel()
	cmap, road := testFixtures(t)
	p, err := planner.New(planner.DefaultConfig(), road)
	require.NoError(t, err)

	var logs lockedBuffer
	rd := &fakeReader{frames: make(chan can.Frame)}
	r, err := newRunner(RunnerConfig{Interface: "test", ObjectTTL: time.Second}, cmap, p, rd, &fakeWriter{},
		utils.NewWriterLogger(&logs, utils.DEBUG))
	require.NoError(t, err)
	assert.Same(t, road, r.asm.road)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)

	out := logs.String()
	assert.Contains(t, out, "speed_limit=22.00")
	assert.Contains(t, out, "rx 0x100 EGO_POSE dlc=8")
	assert.Contains(t, out, "tx 0x201 PATH_POINT dlc=8 signals=3")
}
