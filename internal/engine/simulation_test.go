package engine

import (
	"os"
	"testing"

	"traffic-server/internal/domain"
	"traffic-server/pkg/logger"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitWith("error", "", os.Stderr)
	os.Exit(m.Run())
}

// quietConfig runs without random spawns, pedestrians or stuck detours so
// hand-placed vehicles behave exactly as scripted.
func quietConfig() Config {
	cfg := NewConfig()
	cfg.Seed = 1
	cfg.Vehicles = 0
	cfg.PedestrianSpawnProb = 0
	cfg.StuckReplanTicks = 0
	cfg.PlanWorkers = 2
	return cfg
}

func newTestSim(t *testing.T, cfg Config, grid *domain.Grid) *Simulation {
	t.Helper()
	sim, err := NewSimulationWithGrid(cfg, grid)
	require.NoError(t, err)
	return sim
}

func newGrid(t *testing.T, rows, cols int) *domain.Grid {
	t.Helper()
	g, err := domain.NewGrid(rows, cols)
	require.NoError(t, err)
	return g
}

func runTicks(sim *Simulation, upTo int) []domain.Event {
	var events []domain.Event
	for sim.Now() <= upTo {
		events = append(events, sim.Tick()...)
	}
	return events
}

func mustVehicle(t *testing.T, sim *Simulation, id domain.AgentID) domain.Vehicle {
	t.Helper()
	v, ok := sim.Vehicle(id)
	require.True(t, ok, "vehicle %s is gone", id)
	return v
}

// 5x5 grid, centre light G5/Y2/R5. Epoch 7 puts ticks 0..1 in Yellow,
// 2..6 in Red and 7..11 in Green.
func TestSimulation_SignalScenario(t *testing.T) {
	grid := newGrid(t, 5, 5)
	centre := domain.Coord{Row: 2, Col: 2}
	require.NoError(t, grid.MarkIntersection(centre))
	require.NoError(t, grid.AddSignal(domain.Signal{
		At:     centre,
		Timing: domain.SignalTiming{Green: 5, Yellow: 2, Red: 5},
		Epoch:  7,
	}))

	cfg := quietConfig()
	cfg.MoveInterval = 2
	sim := newTestSim(t, cfg, grid)

	id, err := sim.AddVehicle(domain.Coord{Row: 2, Col: 1}, domain.Coord{Row: 4, Col: 4})
	require.NoError(t, err)

	runTicks(sim, 3)
	v := mustVehicle(t, sim, id)
	assert.Equal(t, domain.StateWaiting, v.State, "tick 3")
	assert.Equal(t, domain.WaitSignal, v.WaitReason)
	assert.Equal(t, domain.Coord{Row: 2, Col: 1}, v.At)
	assert.Equal(t, 0, v.BlockedSince, "waiting since the first tick")
	next, ok := v.NextStep()
	require.True(t, ok)
	assert.Equal(t, centre, next)

	runTicks(sim, 11)
	v = mustVehicle(t, sim, id)
	assert.Equal(t, domain.StateMoving, v.State, "tick 11")
	assert.Equal(t, domain.WaitNone, v.WaitReason)
	assert.Equal(t, 3, v.Progress, "moves at ticks 7, 9 and 11")
	assert.Equal(t, 13, v.ReadyAt)
}

func TestSimulation_ObstacleOnNextStepForcesReplan(t *testing.T) {
	sim := newTestSim(t, quietConfig(), newGrid(t, 6, 6))
	blocked := domain.Coord{Row: 2, Col: 2}

	id, err := sim.AddVehicle(domain.Coord{Row: 2, Col: 0}, domain.Coord{Row: 2, Col: 5})
	require.NoError(t, err)

	sim.Tick()
	v := mustVehicle(t, sim, id)
	require.Equal(t, domain.Coord{Row: 2, Col: 1}, v.At)
	next, ok := v.NextStep()
	require.True(t, ok)
	require.Equal(t, blocked, next)

	require.NoError(t, sim.ToggleObstacle(blocked, true))
	v = mustVehicle(t, sim, id)
	assert.Equal(t, domain.StateSeekingPath, v.State, "route dropped right away")
	assert.Empty(t, v.Route)

	events := sim.Tick()
	v = mustVehicle(t, sim, id)
	assert.Equal(t, domain.StateMoving, v.State)
	assert.NotContains(t, v.Route, blocked)
	assert.Equal(t, domain.Coord{Row: 2, Col: 5}, v.Route.Destination())
	assert.Equal(t, domain.Coord{Row: 1, Col: 1}, v.At, "first step of the detour")

	toggles := lo.Filter(events, func(e domain.Event, _ int) bool {
		return e.Type == domain.EventObstacleToggled
	})
	require.Len(t, toggles, 1)
	assert.Equal(t, blocked, toggles[0].At)
	assert.Equal(t, "added", toggles[0].Text)
}

func TestSimulation_ObstacleBehindVehicleKeepsRoute(t *testing.T) {
	sim := newTestSim(t, quietConfig(), newGrid(t, 6, 6))
	id, err := sim.AddVehicle(domain.Coord{Row: 2, Col: 0}, domain.Coord{Row: 2, Col: 5})
	require.NoError(t, err)

	runTicks(sim, 1)
	before := mustVehicle(t, sim, id)
	require.Equal(t, domain.Coord{Row: 2, Col: 2}, before.At)

	require.NoError(t, sim.ToggleObstacle(domain.Coord{Row: 2, Col: 0}, true))
	after := mustVehicle(t, sim, id)
	assert.Equal(t, before.Route, after.Route)
	assert.Equal(t, domain.StateMoving, after.State)
}

// A cell blocked behind the simulation's back is caught by the move check
// and the vehicle replans in the same tick.
func TestSimulation_ReplanOnBlockedTarget(t *testing.T) {
	sim := newTestSim(t, quietConfig(), newGrid(t, 6, 6))
	id, err := sim.AddVehicle(domain.Coord{Row: 2, Col: 0}, domain.Coord{Row: 2, Col: 5})
	require.NoError(t, err)
	sim.Tick()

	changed, err := sim.Grid().ToggleObstacle(domain.Coord{Row: 2, Col: 2}, true)
	require.NoError(t, err)
	require.True(t, changed)

	events := sim.Tick()
	v := mustVehicle(t, sim, id)
	assert.Equal(t, domain.Coord{Row: 1, Col: 1}, v.At)
	assert.NotContains(t, v.Route, domain.Coord{Row: 2, Col: 2})
	assert.Equal(t, 1, sim.Stats().Reroutes)
	assert.True(t, lo.ContainsBy(events, func(e domain.Event) bool {
		return e.Type == domain.EventVehicleRerouted && e.Agent == id
	}))
}

func TestSimulation_ObstacleOnDestinationPicksNewOne(t *testing.T) {
	sim := newTestSim(t, quietConfig(), newGrid(t, 6, 6))
	dest := domain.Coord{Row: 2, Col: 5}
	id, err := sim.AddVehicle(domain.Coord{Row: 2, Col: 0}, dest)
	require.NoError(t, err)

	require.NoError(t, sim.ToggleObstacle(dest, true))
	v := mustVehicle(t, sim, id)
	assert.NotEqual(t, dest, v.Destination)
	assert.Equal(t, domain.StateSeekingPath, v.State)

	sim.Tick()
	if v, ok := sim.Vehicle(id); ok {
		assert.NotContains(t, v.Route, dest)
	} else {
		assert.Equal(t, 1, sim.Stats().Arrived, "new destination was one step away")
	}
}

func TestSimulation_LowerIDWinsContestedCell(t *testing.T) {
	a := domain.Coord{Row: 0, Col: 0} // enters (0,1) moving right
	b := domain.Coord{Row: 1, Col: 1} // enters (0,1) moving up
	contested := domain.Coord{Row: 0, Col: 1}
	dest := domain.Coord{Row: 0, Col: 2}

	tests := []struct {
		name  string
		order []domain.Coord
	}{
		{"row traffic first", []domain.Coord{a, b}},
		{"column traffic first", []domain.Coord{b, a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSim(t, quietConfig(), newGrid(t, 4, 4))
			first, err := sim.AddVehicle(tt.order[0], dest)
			require.NoError(t, err)
			second, err := sim.AddVehicle(tt.order[1], dest)
			require.NoError(t, err)
			require.True(t, first < second)

			sim.Tick()

			winner := mustVehicle(t, sim, first)
			loser := mustVehicle(t, sim, second)
			assert.Equal(t, contested, winner.At)
			assert.Equal(t, tt.order[1], loser.At)
			assert.Equal(t, domain.StateWaiting, loser.State)
			assert.Equal(t, domain.WaitVehicle, loser.WaitReason)
		})
	}
}

// A vehicle may take a cell freed earlier in the same tick.
func TestSimulation_FollowerUsesFreedCell(t *testing.T) {
	sim := newTestSim(t, quietConfig(), newGrid(t, 4, 6))
	lead, err := sim.AddVehicle(domain.Coord{Row: 0, Col: 1}, domain.Coord{Row: 0, Col: 5})
	require.NoError(t, err)
	follow, err := sim.AddVehicle(domain.Coord{Row: 0, Col: 0}, domain.Coord{Row: 0, Col: 4})
	require.NoError(t, err)

	sim.Tick()
	assert.Equal(t, domain.Coord{Row: 0, Col: 2}, mustVehicle(t, sim, lead).At)
	assert.Equal(t, domain.Coord{Row: 0, Col: 1}, mustVehicle(t, sim, follow).At)
}

func TestSimulation_PedestrianBlocksCrossing(t *testing.T) {
	crossing := domain.Coord{Row: 0, Col: 2}
	start := domain.Coord{Row: 0, Col: 1}

	// A walker lives two ticks at speed 0.5; half the rolls respawn one.
	setup := func(seed int64) (*Simulation, domain.AgentID) {
		grid := newGrid(t, 4, 6)
		require.NoError(t, grid.AddCrossing(domain.Crossing{At: crossing}))

		cfg := quietConfig()
		cfg.Seed = seed
		cfg.PedestrianSpawnProb = 0.5
		cfg.PedestrianSpeed = 0.5
		sim := newTestSim(t, cfg, grid)

		id, err := sim.AddVehicle(start, domain.Coord{Row: 0, Col: 4})
		require.NoError(t, err)
		sim.Tick()
		return sim, id
	}

	var (
		sim *Simulation
		id  domain.AgentID
	)
	for seed := int64(1); seed <= 50; seed++ {
		sim, id = setup(seed)
		if len(sim.Pedestrians()) == 1 {
			break
		}
	}
	require.Len(t, sim.Pedestrians(), 1, "no seed spawned a walker on the first tick")

	v := mustVehicle(t, sim, id)
	assert.Equal(t, start, v.At)
	assert.Equal(t, domain.StateWaiting, v.State)
	assert.Equal(t, domain.WaitPedestrian, v.WaitReason)

	for i := 0; i < 100 && v.At == start; i++ {
		sim.Tick()
		v = mustVehicle(t, sim, id)
		walking := lo.ContainsBy(sim.Pedestrians(), func(p domain.Pedestrian) bool {
			return p.Crossing == crossing
		})

		if v.At == start {
			require.True(t, walking, "vehicle held at tick %d with an empty crossing", sim.Now()-1)
			require.Equal(t, domain.WaitPedestrian, v.WaitReason)
			continue
		}
		assert.False(t, walking)
		assert.Equal(t, crossing, v.At)
		assert.Equal(t, domain.StateMoving, v.State)
	}
	assert.NotEqual(t, start, v.At, "vehicle never entered the vacated crossing")
}

func TestSimulation_ArrivalSpawnsReplacement(t *testing.T) {
	sim := newTestSim(t, quietConfig(), newGrid(t, 6, 6))
	id, err := sim.AddVehicle(domain.Coord{Row: 0, Col: 0}, domain.Coord{Row: 0, Col: 2})
	require.NoError(t, err)

	events := runTicks(sim, 1)

	_, ok := sim.Vehicle(id)
	assert.False(t, ok, "arrived vehicle is removed")
	assert.Equal(t, 1, sim.Stats().Arrived)
	require.Len(t, sim.Vehicles(), 1)
	assert.Greater(t, sim.Vehicles()[0].ID, id)

	types := lo.Map(events, func(e domain.Event, _ int) domain.EventType { return e.Type })
	assert.Contains(t, types, domain.EventVehicleArrived)
	assert.Contains(t, types, domain.EventVehicleSpawned)
}

func TestSimulation_UnreachableDestinationRespawns(t *testing.T) {
	cfg := quietConfig()
	cfg.MaxReplanAttempts = 3
	sim := newTestSim(t, cfg, newGrid(t, 4, 4))

	// Row 0 runs right and column 3 runs up: (0,3) has no legal exit.
	trapped, err := sim.AddVehicle(domain.Coord{Row: 0, Col: 3}, domain.Coord{Row: 3, Col: 0})
	require.NoError(t, err)

	sim.Tick()
	v := mustVehicle(t, sim, trapped)
	assert.Equal(t, domain.StateSeekingPath, v.State)
	assert.Equal(t, domain.WaitNoPath, v.WaitReason)
	assert.Equal(t, 1, v.ReplanAttempts)

	events := runTicks(sim, 2)
	_, ok := sim.Vehicle(trapped)
	assert.False(t, ok, "retired after three failed searches")
	assert.Equal(t, 1, sim.Stats().Respawns)
	assert.True(t, lo.ContainsBy(events, func(e domain.Event) bool {
		return e.Type == domain.EventVehicleRespawned && e.Agent == trapped
	}))
}

func TestSimulation_ToggleObstacleErrors(t *testing.T) {
	grid := newGrid(t, 5, 5)
	require.NoError(t, grid.MarkIntersection(domain.Coord{Row: 2, Col: 2}))
	require.NoError(t, grid.AddCrossing(domain.Crossing{At: domain.Coord{Row: 0, Col: 1}}))
	sim := newTestSim(t, quietConfig(), grid)

	tests := []struct {
		name string
		at   domain.Coord
	}{
		{"out of bounds", domain.Coord{Row: -1, Col: 0}},
		{"intersection", domain.Coord{Row: 2, Col: 2}},
		{"crossing", domain.Coord{Row: 0, Col: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sim.ToggleObstacle(tt.at, true)
			assert.ErrorIs(t, err, domain.ErrInvalidCell)
		})
	}

	assert.Empty(t, sim.Grid().Obstacles())
	assert.Empty(t, sim.Replay().Toggles, "rejected toggles are not recorded")
}

func TestSimulation_AddVehicleRejectsTakenCell(t *testing.T) {
	sim := newTestSim(t, quietConfig(), newGrid(t, 4, 4))
	_, err := sim.AddVehicle(domain.Coord{Row: 1, Col: 1}, domain.Coord{Row: 0, Col: 0})
	require.NoError(t, err)

	_, err = sim.AddVehicle(domain.Coord{Row: 1, Col: 1}, domain.Coord{Row: 0, Col: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidCell)
	_, err = sim.AddVehicle(domain.Coord{Row: 9, Col: 9}, domain.Coord{Row: 0, Col: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidCell)
}

func generatedConfig(seed int64) Config {
	cfg := NewConfig()
	cfg.Seed = seed
	cfg.Layout.Rows = 12
	cfg.Layout.Cols = 16
	cfg.Layout.Crossings = 4
	cfg.Vehicles = 30
	cfg.PedestrianSpawnProb = 0.1
	return cfg
}

func TestSimulation_Invariants(t *testing.T) {
	sim, err := NewSimulation(generatedConfig(42))
	require.NoError(t, err)

	var placed []domain.Coord
	for tick := 0; tick < 400; tick++ {
		switch {
		case tick%100 == 25:
			occupied := sim.occupancy()
			free := lo.Filter(sim.Grid().CellsOfKind(domain.CellRoad), func(c domain.Coord, _ int) bool {
				return !occupied.Has(c)
			})
			at := free[(tick*7)%len(free)]
			require.NoError(t, sim.ToggleObstacle(at, true))
			placed = append(placed, at)
		case tick%100 == 75 && len(placed) > 0:
			require.NoError(t, sim.ToggleObstacle(placed[0], false))
			placed = placed[1:]
		}

		sim.Tick()

		vehicles := sim.Vehicles()
		seen := make(map[domain.Coord]domain.AgentID, len(vehicles))
		for i, v := range vehicles {
			if other, dup := seen[v.At]; dup {
				t.Fatalf("tick %d: %s and %s share %s", tick, other, v.ID, v.At)
			}
			seen[v.At] = v.ID

			if i > 0 {
				require.Less(t, vehicles[i-1].ID, v.ID, "tick %d: vehicles out of order", tick)
			}
			if len(v.Route) > 0 {
				require.Equal(t, v.Route[v.Progress], v.At, "tick %d: %s left its route", tick, v.ID)
				for _, c := range v.RemainingRoute() {
					cell, _ := sim.Grid().CellAt(c)
					require.False(t, cell.IsBlocked(), "tick %d: %s routes through obstacle %s", tick, v.ID, c)
				}
			}
		}
	}
}

func TestSimulation_Deterministic(t *testing.T) {
	run := func() ([]domain.Vehicle, Stats) {
		sim, err := NewSimulation(generatedConfig(7))
		require.NoError(t, err)
		runTicks(sim, 200)
		return sim.Vehicles(), sim.Stats()
	}

	v1, s1 := run()
	v2, s2 := run()
	assert.Equal(t, s1, s2)
	assert.Equal(t, v1, v2)
}

func TestSimulation_SignalEvents(t *testing.T) {
	grid := newGrid(t, 5, 5)
	centre := domain.Coord{Row: 2, Col: 2}
	require.NoError(t, grid.MarkIntersection(centre))
	require.NoError(t, grid.AddSignal(domain.Signal{
		At:     centre,
		Timing: domain.SignalTiming{Green: 5, Yellow: 2, Red: 5},
		Epoch:  7,
	}))
	sim := newTestSim(t, quietConfig(), grid)

	events := runTicks(sim, 12)
	phases := lo.FilterMap(events, func(e domain.Event, _ int) (int, bool) {
		return e.Tick, e.Type == domain.EventSignalPhase
	})
	assert.Equal(t, []int{0, 2, 7, 12}, phases)

	states := sim.SignalStates()
	require.Len(t, states, 1)
	assert.Equal(t, domain.PhaseYellow, states[0].Phase)
	assert.Equal(t, 12, states[0].Since)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"tiny grid", func(c *Config) { c.Layout.Rows = 1 }, true},
		{"bad timing", func(c *Config) { c.Layout.Timing.Green = 0 }, true},
		{"negative vehicles", func(c *Config) { c.Vehicles = -1 }, true},
		{"zero move interval", func(c *Config) { c.MoveInterval = 0 }, true},
		{"pedestrian speed too high", func(c *Config) { c.PedestrianSpeed = 1.5 }, true},
		{"probability above one", func(c *Config) { c.PedestrianSpawnProb = 2 }, true},
		{"no replan budget", func(c *Config) { c.MaxReplanAttempts = 0 }, true},
		{"negative stuck ticks", func(c *Config) { c.StuckReplanTicks = -1 }, true},
		{"no spawn attempts", func(c *Config) { c.SpawnAttempts = 0 }, true},
		{"no workers", func(c *Config) { c.PlanWorkers = 0 }, true},
		{"zero interval", func(c *Config) { c.TickInterval = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
