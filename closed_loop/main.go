package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"highway-planner/frenet"
	"highway-planner/planner"
	"highway-planner/simbridge"
	"highway-planner/utils"
)

func main() {
	var (
		mode     = flag.String("mode", "sim", "sim|can|replay")
		mapPath  = flag.String("map", "data/highway_map.csv", "Centerline map (x y s dx dy per line)")
		maxS     = flag.Float64("max-s", 0, "Track length; <= 0 closes the loop from the last waypoint to the first")
		cfgPath  = flag.String("config", "", "Planner config JSON (overlays defaults)")
		scenPath = flag.String("scenario", "closed_loop/scenarios/slow_leader.json", "Replay scenario JSON")
		iface    = flag.String("iface", "vcan0", "SocketCAN interface name")
		canMap   = flag.String("canmap", "config/can/planner_can_map.csv", "CAN map CSV")
		port     = flag.Int("port", 4567, "Simulator websocket port")
		ttl      = flag.Duration("object-ttl", 500*time.Millisecond, "Drop CAN objects not refreshed within this")
		logLevel = flag.String("log", "info", "trace|debug|info|warn|error|critical")
		logFile  = flag.String("logfile", "highway_planner.log", "Log file")
		outPath  = flag.String("out", "", "Replay stats JSON output")
	)
	flag.Parse()

	log, err := utils.NewFileLogger(*logFile, utils.ParseLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open " + *logFile + ": " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg, err := planner.LoadConfig(*cfgPath)
	if err != nil {
		log.Critical("Load config: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "sim":
		err = runSim(ctx, cfg, *mapPath, *maxS, *port, log)
	case "can":
		err = runCAN(ctx, cfg, *mapPath, *maxS, RunnerConfig{Interface: *iface, CANMapPath: *canMap, ObjectTTL: *ttl}, log)
	case "replay":
		err = runReplay(cfg, *scenPath, *outPath, log)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Critical("%s failed: %v", *mode, err)
		os.Exit(1)
	}
}

func loadRoad(path string, maxS float64, log *utils.Logger) (*frenet.Map, error) {
	road, err := utils.LoadCenterline(path, maxS)
	if err != nil {
		return nil, fmt.Errorf("load map: %w", err)
	}
	log.Info("Loaded %d waypoints from %s (max_s=%.3f)", road.Len(), path, road.MaxS())
	return road, nil
}

func runSim(ctx context.Context, cfg planner.Config, mapPath string, maxS float64, port int, log *utils.Logger) error {
	road, err := loadRoad(mapPath, maxS, log)
	if err != nil {
		return err
	}
	srv := simbridge.NewServer(cfg, road, log)
	return srv.ListenAndServe(ctx, net.JoinHostPort("", fmt.Sprint(port)))
}

func runCAN(ctx context.Context, cfg planner.Config, mapPath string, maxS float64, rc RunnerConfig, log *utils.Logger) error {
	road, err := loadRoad(mapPath, maxS, log)
	if err != nil {
		return err
	}
	p, err := planner.New(cfg, road)
	if err != nil {
		return err
	}

	runner, err := NewRunner(ctx, rc, p, log)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer runner.Close()
	return runner.Run(ctx)
}

func runReplay(base planner.Config, scenPath, outPath string, log *utils.Logger) error {
	scen, err := LoadScenario(scenPath)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	cfg, err := scen.PlannerConfig(base)
	if err != nil {
		return err
	}
	road, err := scen.BuildRoad()
	if err != nil {
		return fmt.Errorf("road: %w", err)
	}

	replay, err := NewReplay(&scen, road, cfg, log)
	if err != nil {
		return err
	}
	log.Info("Replaying %q: %.1fs, %d cars, road max_s=%.1f", scen.Meta.Name, scen.Timing.DurationS, len(scen.Traffic), road.MaxS())

	stats := replay.Run()
	log.Info("Done: cycles=%d lane_changes=%d collisions=%d failures=%d max_v=%.2f max_dv=%.3f",
		stats.Cycles, stats.LaneChanges, stats.Collisions, stats.Failures, stats.MaxSpeedMPS, stats.MaxSpeedStepMPS)

	if outPath != "" {
		if err := stats.WriteJSON(outPath); err != nil {
			return fmt.Errorf("write stats: %w", err)
		}
	}
	return stats.Check(scen.Expect)
}
