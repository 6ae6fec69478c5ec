package agent

import (
	"context"
	"os"
	"testing"
	"time"

	"traffic-server/internal/domain"
	"traffic-server/internal/engine"
	"traffic-server/internal/network"
	"traffic-server/pkg/api"
	"traffic-server/pkg/logger"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitWith("error", "", os.Stderr)
	os.Exit(m.Run())
}

func startService(t *testing.T) (*engine.Service, context.CancelFunc) {
	t.Helper()
	grid, err := domain.NewGrid(8, 8)
	require.NoError(t, err)

	cfg := engine.NewConfig()
	cfg.Seed = 11
	cfg.Vehicles = 4
	cfg.PedestrianSpawnProb = 0
	cfg.TickInterval = time.Millisecond

	sim, err := engine.NewSimulationWithGrid(cfg, grid)
	require.NoError(t, err)

	svc := engine.NewService(sim, network.NewBroadcaster(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = svc.Run(ctx) }()
	return svc, cancel
}

func hasObstacle(snap *api.Snapshot) bool {
	return lo.ContainsBy(snap.Cells, func(c api.CellView) bool { return c.Kind == "OBSTACLE" })
}

func TestRoadworksBot_PlacesAndClears(t *testing.T) {
	svc, cancel := startService(t)
	defer cancel()

	bot := NewRoadworksBot(svc, 3, 5, 1)
	assert.True(t, svc.Hub.HasSubscriber(bot.ID))

	botCtx, stopBot := context.WithCancel(context.Background())
	botDone := make(chan struct{})
	go func() {
		bot.Run(botCtx)
		close(botDone)
	}()

	require.Eventually(t, func() bool { return hasObstacle(svc.Snapshot()) }, 2*time.Second, time.Millisecond)

	require.Eventually(t, func() bool { return svc.Snapshot().Tick > 60 }, 5*time.Second, time.Millisecond)
	stopBot()
	<-botDone
	assert.False(t, svc.Hub.HasSubscriber(bot.ID))

	svc.Stop()
	<-svc.Done()

	toggles := svc.Simulation().Replay().Toggles
	adds := lo.CountBy(toggles, func(tg domain.ReplayToggle) bool { return tg.Add })
	removes := len(toggles) - adds
	assert.Greater(t, adds, 1)
	assert.Greater(t, removes, 0, "roadworks are cleared after their lifetime")
	assert.LessOrEqual(t, adds-removes, 2, "at most two roadworks open at once")
}

func TestRoadworksBot_PickCellSkipsTakenCells(t *testing.T) {
	svc, cancel := startService(t)
	defer cancel()
	bot := NewRoadworksBot(svc, 1, 1, 2)

	snap := &api.Snapshot{
		Grid:     api.GridMeta{Rows: 2, Cols: 2},
		Cells:    []api.CellView{{Row: 0, Col: 0, Kind: "INTERSECTION"}, {Row: 0, Col: 1, Kind: "CROSSING"}},
		Vehicles: []api.VehicleView{{Pos: api.CoordView{Row: 1, Col: 0}}},
	}
	at, ok := bot.pickCell(snap)
	require.True(t, ok)
	assert.Equal(t, domain.Coord{Row: 1, Col: 1}, at)

	snap.Vehicles = append(snap.Vehicles, api.VehicleView{Pos: api.CoordView{Row: 1, Col: 1}})
	_, ok = bot.pickCell(snap)
	assert.False(t, ok)
}
