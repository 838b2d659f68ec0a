package main

import (
	"context"
	"fmt"
	"time"

	"go.einride.tech/can"

	"highway-planner/behavior"
	"highway-planner/planner"
	"highway-planner/utils"
)

type RunnerConfig struct {
	Interface  string
	CANMapPath string
	ObjectTTL  time.Duration
}

// Runner bridges one planner to the vehicle over SocketCAN.
type Runner struct {
	cfg     RunnerConfig
	log     *utils.Logger
	cmap    *utils.CANMap
	planner *planner.Planner
	asm     *TelemetryAssembler
	writer  utils.CANWriter
	reader  utils.CANReader
	cycle   time.Duration
	seq     uint32
	sent    uint64
}

func NewRunner(ctx context.Context, cfg RunnerConfig, p *planner.Planner, log *utils.Logger) (*Runner, error) {
	cmap, err := utils.LoadCANMap(cfg.CANMapPath)
	if err != nil {
		return nil, fmt.Errorf("load can map: %w", err)
	}

	writer, err := utils.NewSocketCANWriter(ctx, cfg.Interface)
	if err != nil {
		return nil, err
	}
	reader, err := utils.NewSocketCANReader(ctx, cfg.Interface)
	if err != nil {
		_ = writer.Close()
		return nil, err
	}

	r, err := newRunner(cfg, cmap, p, reader, writer, log)
	if err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func newRunner(cfg RunnerConfig, cmap *utils.CANMap, p *planner.Planner,
	reader utils.CANReader, writer utils.CANWriter, log *utils.Logger) (*Runner, error) {
	r := &Runner{
		cfg:     cfg,
		log:     log.Component("can"),
		cmap:    cmap,
		planner: p,
		asm:     NewTelemetryAssembler(cmap, p.Map(), cfg.ObjectTTL),
		writer:  writer,
		reader:  reader,
	}

	fd, err := cmap.FrameByName(utils.FramePathHeader)
	if err != nil {
		return r, fmt.Errorf("frame: %w", err)
	}
	if fd.CycleMS <= 0 {
		return r, fmt.Errorf("frame %s has invalid cycle_ms %d", fd.Name, fd.CycleMS)
	}
	r.cycle = time.Duration(fd.CycleMS) * time.Millisecond
	return r, nil
}

func (r *Runner) Close() {
	if r.reader != nil {
		_ = r.reader.Close()
	}
	if r.writer != nil {
		_ = r.writer.Close()
	}
}

func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("Starting planner bridge: iface=%s cycle=%s object_ttl=%s speed_limit=%.2f",
		r.cfg.Interface, r.cycle, r.cfg.ObjectTTL, r.planner.Config().Speed.SpeedLimitMPS)
	for _, dir := range []string{utils.DirectionRX, utils.DirectionTX} {
		for _, fd := range r.cmap.FramesByDirection(dir) {
			r.log.Debug("%s 0x%03X %s dlc=%d signals=%d", dir, fd.ID, fd.Name, fd.DLC, len(fd.Signals))
		}
	}

	ticker := time.NewTicker(r.cycle)
	defer ticker.Stop()

	rxChan := make(chan can.Frame, 256)
	go r.receiveLoop(ctx, rxChan)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Stopping. paths_sent=%d", r.sent)
			return ctx.Err()

		case f := <-rxChan:
			if err := r.asm.Apply(f, time.Now()); err != nil {
				r.log.Trace("RX id=0x%X ignored: %v", f.ID, err)
			}

		case now := <-ticker.C:
			if err := r.tick(ctx, now); err != nil {
				r.log.Critical("Transmit failed: %v", err)
				return err
			}
		}
	}
}

// tick plans once and transmits the path. Planning failures skip the cycle; only
// transmit errors are returned.
func (r *Runner) tick(ctx context.Context, now time.Time) error {
	if !r.asm.Ready() {
		r.log.Debug("Waiting for ego pose")
		return nil
	}

	tel := r.asm.Snapshot(now)
	plan, err := r.planner.Cycle(tel)
	if err != nil {
		r.log.Warn("Cycle skipped: %v", err)
		return nil
	}

	frames, err := r.cmap.EncodePath(utils.PathHeader{
		Sequence:   r.seq,
		State:      int(plan.Decision.Maneuver.State()),
		TargetLane: plan.Decision.TargetLane(),
		RefSpeed:   plan.RefSpeed,
	}, plan.Path)
	if err != nil {
		r.log.Error("Encode failed: %v", err)
		return nil
	}

	if err := utils.WriteFrames(ctx, r.writer, frames); err != nil {
		return err
	}
	r.asm.Sent(plan.Path)
	r.seq++
	r.sent++

	if !r.log.Enabled(utils.DEBUG) {
		return nil
	}
	if _, ok := plan.Decision.Maneuver.(behavior.Cruise); !ok || r.sent%50 == 0 {
		r.log.Debug("seq=%d lane=%d objects=%d %s", r.seq, plan.EgoLane, r.asm.Objects(), plan.Decision)
	}
	return nil
}

// receiveLoop reads frames until ctx is done.
func (r *Runner) receiveLoop(ctx context.Context, out chan<- can.Frame) {
	r.log.Debug("RX loop started")
	defer r.log.Debug("RX loop stopped")

	for {
		f, err := r.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("RX error: %v", err)
			time.Sleep(r.cycle)
			continue
		}

		select {
		case out <- f:
		case <-ctx.Done():
			return
		default:
			r.log.Warn("RX queue full, dropping id=0x%X", f.ID)
		}
	}
}
