package engine

import (
	"fmt"

	"traffic-server/internal/domain"
	"traffic-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// RunReplay re-runs a recorded session headless. cfg supplies everything the
// session does not record; seed, grid size and vehicle count are taken from
// the session. Each toggle is applied right before the tick it was recorded
// for, exactly as the live loop did.
func RunReplay(cfg Config, session domain.ReplaySession) (*Simulation, error) {
	cfg.Seed = session.Seed
	cfg.Layout.Rows = session.Rows
	cfg.Layout.Cols = session.Cols
	cfg.Vehicles = session.Vehicles

	sim, err := NewSimulation(cfg)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	next := 0
	for sim.Now() <= session.LastTick {
		for next < len(session.Toggles) && session.Toggles[next].Tick <= sim.Now() {
			t := session.Toggles[next]
			if err := sim.ToggleObstacle(t.At, t.Add); err != nil {
				return nil, fmt.Errorf("replay toggle %d at %s: %w", next, t.At, err)
			}
			next++
		}
		sim.Tick()
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "replay",
		"seed":      session.Seed,
		"ticks":     sim.Now(),
		"toggles":   len(session.Toggles),
		"arrived":   sim.Stats().Arrived,
	}).Info("Replay finished")
	return sim, nil
}
