package engine

import (
	"fmt"
	"math/rand"
	"time"

	"traffic-server/internal/domain"
	"traffic-server/internal/systems"
	"traffic-server/pkg/citygen"
	"traffic-server/pkg/logger"
	"traffic-server/pkg/utils"

	"github.com/sirupsen/logrus"
)

// Stats are running counters since the simulation started.
type Stats struct {
	Arrived  int
	Reroutes int
	Respawns int
}

// Simulation owns the complete state of one run. It is not safe for
// concurrent use: Service drives it from a single goroutine.
type Simulation struct {
	cfg Config

	grid        *domain.Grid
	router      *systems.Router
	signals     *systems.SignalController
	pedestrians *systems.PedestrianSpawner

	// vehicles is kept sorted by ID; new IDs are always larger.
	vehicles []*domain.Vehicle
	ids      *domain.IDSequence
	spawnRng *rand.Rand

	// roads caches the reachability graph until the next obstacle toggle.
	roads *systems.RoadGraph

	now           int
	pendingSpawns int
	pending       []domain.Event
	stats         Stats
	replay        *domain.ReplaySession

	log *logrus.Entry
}

// NewSimulation generates a city from cfg and spawns the initial vehicles.
func NewSimulation(cfg Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	grid, err := citygen.Generate(cfg.Layout, utils.NewRand(utils.DeriveSeed(cfg.Seed, "layout")))
	if err != nil {
		return nil, fmt.Errorf("generate city: %w", err)
	}
	return NewSimulationWithGrid(cfg, grid)
}

// NewSimulationWithGrid runs on a prepared grid. cfg.Layout is ignored apart
// from being recorded in the replay header.
func NewSimulationWithGrid(cfg Config, grid *domain.Grid) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Simulation{
		cfg:     cfg,
		grid:    grid,
		router:  systems.NewRouter(cfg.SignalPenalty),
		signals: systems.NewSignalController(grid),
		pedestrians: systems.NewPedestrianSpawner(
			grid.Crossings(),
			cfg.PedestrianSpeed,
			cfg.PedestrianSpawnProb,
			utils.NewRand(utils.DeriveSeed(cfg.Seed, "pedestrians")),
		),
		ids:      domain.NewIDSequence(domain.AgentVehicle),
		spawnRng: utils.NewRand(utils.DeriveSeed(cfg.Seed, "spawn")),
		replay: &domain.ReplaySession{
			Seed:      cfg.Seed,
			Rows:      grid.Rows,
			Cols:      grid.Cols,
			Vehicles:  cfg.Vehicles,
			Timestamp: time.Now().Unix(),
			LastTick:  -1,
		},
		log: logger.Component("simulation"),
	}

	for i := 0; i < cfg.Vehicles; i++ {
		if _, err := s.spawnRandomVehicle(); err != nil {
			s.pendingSpawns++
		}
	}

	s.log.WithFields(logrus.Fields{
		"seed":      cfg.Seed,
		"rows":      grid.Rows,
		"cols":      grid.Cols,
		"signals":   len(grid.Signals()),
		"crossings": len(grid.Crossings()),
		"vehicles":  len(s.vehicles),
	}).Info("Simulation ready")
	return s, nil
}

// Now is the number of the next tick to run.
func (s *Simulation) Now() int { return s.now }

// Grid exposes the grid for reading. Mutate it only through ToggleObstacle.
func (s *Simulation) Grid() *domain.Grid { return s.grid }

func (s *Simulation) Config() Config { return s.cfg }

func (s *Simulation) Stats() Stats { return s.stats }

// Tick runs one synchronous step: signal transitions, pedestrians, vehicles,
// replacements. Returns everything observable that happened, including
// obstacle toggles applied since the previous tick.
func (s *Simulation) Tick() []domain.Event {
	now := s.now
	events := s.pending
	s.pending = nil

	events = append(events, s.signals.Transitions(now-1, now)...)

	occupied := s.occupancy()
	events = append(events, s.pedestrians.Step(now, occupied.Has)...)

	events = append(events, s.stepVehicles(now)...)
	events = append(events, s.replaceVehicles(now)...)

	for _, e := range events {
		s.logEvent(e)
	}

	s.replay.LastTick = now
	s.now++
	return events
}

// ToggleObstacle adds or removes an obstacle between ticks. Adding one drops
// every route that still has to cross the cell. A vehicle headed for the
// cell gets a new destination.
func (s *Simulation) ToggleObstacle(at domain.Coord, add bool) error {
	changed, err := s.grid.ToggleObstacle(at, add)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.roads = nil
	s.replay.Record(s.now, at, add)

	text := "removed"
	if add {
		text = "added"
		s.invalidateRoutesThrough(at)
	}
	s.pending = append(s.pending, domain.Event{
		Type: domain.EventObstacleToggled,
		Tick: s.now,
		At:   at,
		Text: text,
	})
	return nil
}

// AddVehicle places a vehicle on origin headed for destination. It is planned
// on the next tick. Origin must be a free, passable cell.
func (s *Simulation) AddVehicle(origin, destination domain.Coord) (domain.AgentID, error) {
	cell, ok := s.grid.CellAt(origin)
	if !ok || cell.IsBlocked() {
		return domain.NilAgentID, fmt.Errorf("add vehicle at %s: %w", origin, domain.ErrInvalidCell)
	}
	if !s.grid.InBounds(destination) {
		return domain.NilAgentID, fmt.Errorf("add vehicle to %s: %w", destination, domain.ErrInvalidCell)
	}
	if s.occupancy().Has(origin) {
		return domain.NilAgentID, fmt.Errorf("add vehicle at %s: cell taken: %w", origin, domain.ErrInvalidCell)
	}
	v := domain.NewVehicle(s.ids.Next(), origin, destination, s.now)
	s.vehicles = append(s.vehicles, v)
	return v.ID, nil
}

// Vehicle returns a copy of one vehicle.
func (s *Simulation) Vehicle(id domain.AgentID) (domain.Vehicle, bool) {
	for _, v := range s.vehicles {
		if v.ID == id {
			return *v, true
		}
	}
	return domain.Vehicle{}, false
}

// Vehicles returns copies of every vehicle in ID order.
func (s *Simulation) Vehicles() []domain.Vehicle {
	out := make([]domain.Vehicle, len(s.vehicles))
	for i, v := range s.vehicles {
		out[i] = *v
	}
	return out
}

func (s *Simulation) Pedestrians() []domain.Pedestrian {
	return s.pedestrians.Pedestrians()
}

// SignalStates lists the lights as shown at the last completed tick.
func (s *Simulation) SignalStates() []systems.SignalState {
	return s.signals.States(s.lastTick())
}

// Replay returns the inputs recorded so far.
func (s *Simulation) Replay() domain.ReplaySession {
	r := *s.replay
	r.Toggles = append([]domain.ReplayToggle(nil), s.replay.Toggles...)
	return r
}

func (s *Simulation) lastTick() int {
	if s.now == 0 {
		return 0
	}
	return s.now - 1
}

func (s *Simulation) roadGraph() *systems.RoadGraph {
	if s.roads == nil {
		s.roads = systems.BuildRoadGraph(s.grid)
	}
	return s.roads
}
