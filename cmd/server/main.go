package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"traffic-server/internal/agent"
	"traffic-server/internal/engine"
	"traffic-server/internal/infrastructure/storage"
	"traffic-server/internal/network"
	"traffic-server/internal/server"
	"traffic-server/internal/telemetry"
	"traffic-server/internal/version"
	"traffic-server/pkg/logger"
	"traffic-server/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func init() {
	logger.Init()
}

func main() {
	cfg := engine.NewConfig()

	var (
		seed       int64
		replayPath string
		record     bool
		roadworks  int
	)
	flag.Int64Var(&seed, "seed", 0, "Master seed (0 for random)")
	flag.IntVar(&cfg.Layout.Rows, "rows", cfg.Layout.Rows, "Grid rows")
	flag.IntVar(&cfg.Layout.Cols, "cols", cfg.Layout.Cols, "Grid columns")
	flag.IntVar(&cfg.Vehicles, "vehicles", cfg.Vehicles, "Number of vehicles")
	flag.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "Wall-clock duration of one tick")
	flag.StringVar(&replayPath, "replay", "", "Path to a .tsrp replay file to re-run headless")
	flag.BoolVar(&record, "record", false, "Save a replay file on shutdown")
	flag.IntVar(&roadworks, "roadworks", 0, "Open random roadworks every N ticks (0 disables)")
	flag.Parse()

	logger.Log.Info("Starting traffic server...")
	logger.Log.Info(version.String())

	if replayPath != "" {
		if err := runReplay(cfg, replayPath); err != nil {
			logger.Log.WithError(err).Fatal("Replay failed")
		}
		return
	}

	if seed != 0 {
		cfg.Seed = seed
		logger.Log.Infof("Using explicit master seed: %d", seed)
	} else {
		logger.Log.Infof("Using random master seed: %d", cfg.Seed)
	}

	if err := run(cfg, record, roadworks); err != nil {
		logger.Log.WithError(err).Fatal("Server stopped with error")
	}
	logger.Log.Info("Done.")
}

func run(cfg engine.Config, record bool, roadworks int) error {
	sim, err := engine.NewSimulation(cfg)
	if err != nil {
		return err
	}

	sink, err := newSink()
	if err != nil {
		return err
	}
	defer sink.Close()

	svc := engine.NewService(sim, network.NewBroadcaster(), sink)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(svc, envOr("TRAFFIC_PORT", "8080"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(srv.Run)
	if roadworks > 0 {
		bot := agent.NewRoadworksBot(svc, roadworks, 5*roadworks, cfg.Seed)
		g.Go(func() error {
			bot.Run(ctx)
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Log.Info("Shutting down...")
		svc.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if record {
		saveReplay(svc.Simulation())
	}
	return nil
}

// newSink connects to the MQTT broker named by TRAFFIC_MQTT_BROKER, if any.
func newSink() (telemetry.Sink, error) {
	broker := os.Getenv("TRAFFIC_MQTT_BROKER")
	if broker == "" {
		return telemetry.Nop{}, nil
	}
	prefix := envOr("TRAFFIC_MQTT_PREFIX", telemetry.DefaultPrefix)
	sink, err := telemetry.Dial(broker, "traffic-server-"+utils.GenerateID(), prefix)
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(logrus.Fields{"broker": broker, "prefix": prefix}).Info("Publishing events over MQTT")
	return sink, nil
}

func saveReplay(sim *engine.Simulation) {
	replays, err := storage.NewReplayService(envOr("TRAFFIC_REPLAY_DIR", "replays"))
	if err != nil {
		logger.Log.WithError(err).Error("Replay not saved")
		return
	}
	session := sim.Replay()
	path, err := replays.Save(&session)
	if err != nil {
		logger.Log.WithError(err).Error("Replay not saved")
		return
	}
	logger.Log.WithFields(logrus.Fields{
		"path":    path,
		"ticks":   session.LastTick + 1,
		"toggles": len(session.Toggles),
	}).Info("Replay saved")
}

func runReplay(cfg engine.Config, path string) error {
	logger.Log.Info("Mode: replay simulation")

	session, err := storage.LoadFile(path)
	if err != nil {
		return err
	}
	sim, err := engine.RunReplay(cfg, *session)
	if err != nil {
		return err
	}

	stats := sim.Stats()
	logger.Log.WithFields(logrus.Fields{
		"ticks":    sim.Now(),
		"vehicles": len(sim.Vehicles()),
		"arrived":  stats.Arrived,
		"reroutes": stats.Reroutes,
		"respawns": stats.Respawns,
	}).Info("Replay result")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
