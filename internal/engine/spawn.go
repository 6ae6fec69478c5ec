package engine

import (
	"fmt"

	"traffic-server/internal/domain"

	"github.com/samber/lo"
)

// replaceVehicles removes vehicles that arrived or were retired this tick and
// spawns their replacements. Spawns that fail are retried next tick.
func (s *Simulation) replaceVehicles(now int) []domain.Event {
	s.vehicles = lo.Reject(s.vehicles, func(v *domain.Vehicle, _ int) bool {
		return v.State == domain.StateArrived
	})

	var events []domain.Event
	want := s.pendingSpawns
	s.pendingSpawns = 0
	for i := 0; i < want; i++ {
		v, err := s.spawnRandomVehicle()
		if err != nil {
			s.pendingSpawns++
			events = append(events, domain.Event{
				Type: domain.EventSpawnFailed,
				Tick: now,
				Text: err.Error(),
			})
			continue
		}
		events = append(events, domain.Event{
			Type:  domain.EventVehicleSpawned,
			Tick:  now,
			Agent: v.ID,
			At:    v.At,
			Text:  "heading to " + v.Destination.String(),
		})
	}
	return events
}

// spawnRandomVehicle draws an origin and a destination among road cells:
// distinct, the origin free and escapable, the destination reachable.
// Gives up with ErrUnreachableSpawn after SpawnAttempts draws.
func (s *Simulation) spawnRandomVehicle() (*domain.Vehicle, error) {
	roads := s.grid.CellsOfKind(domain.CellRoad)
	if len(roads) < 2 {
		return nil, fmt.Errorf("only %d road cells: %w", len(roads), domain.ErrUnreachableSpawn)
	}
	occupied := s.occupancy()
	free := lo.Filter(roads, func(c domain.Coord, _ int) bool {
		return !occupied.Has(c) && s.grid.IsEscapable(c)
	})
	if len(free) == 0 {
		return nil, fmt.Errorf("no free road cell: %w", domain.ErrUnreachableSpawn)
	}

	graph := s.roadGraph()
	for attempt := 0; attempt < s.cfg.SpawnAttempts; attempt++ {
		origin := free[s.spawnRng.Intn(len(free))]
		dest := roads[s.spawnRng.Intn(len(roads))]
		if origin == dest || !graph.Reachable(origin, dest) {
			continue
		}
		v := domain.NewVehicle(s.ids.Next(), origin, dest, s.now)
		s.vehicles = append(s.vehicles, v)
		return v, nil
	}
	return nil, fmt.Errorf("no reachable pair in %d attempts: %w", s.cfg.SpawnAttempts, domain.ErrUnreachableSpawn)
}

// pickDestination draws a new reachable road destination for a vehicle
// standing on from.
func (s *Simulation) pickDestination(from domain.Coord) (domain.Coord, bool) {
	roads := s.grid.CellsOfKind(domain.CellRoad)
	if len(roads) == 0 {
		return domain.Coord{}, false
	}
	graph := s.roadGraph()
	for attempt := 0; attempt < s.cfg.SpawnAttempts; attempt++ {
		dest := roads[s.spawnRng.Intn(len(roads))]
		if dest != from && graph.Reachable(from, dest) {
			return dest, true
		}
	}
	return domain.Coord{}, false
}
