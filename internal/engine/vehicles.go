package engine

import (
	"errors"
	"fmt"

	"traffic-server/internal/domain"
	"traffic-server/internal/systems"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"
	"golang.org/x/sync/errgroup"
)

type planResult struct {
	route domain.Route
	err   error
}

// occupancy is the set of cells holding a vehicle right now.
func (s *Simulation) occupancy() mapset.Set[domain.Coord] {
	occ := mapset.New[domain.Coord]()
	for _, v := range s.vehicles {
		occ.Put(v.At)
	}
	return occ
}

// planSeeking searches routes for every vehicle in SeekingPath at once. The
// grid is read-only during a tick, so searches may run in parallel; results
// are applied later in vehicle order.
func (s *Simulation) planSeeking(now int) map[domain.AgentID]planResult {
	seeking := lo.Filter(s.vehicles, func(v *domain.Vehicle, _ int) bool {
		return v.State == domain.StateSeekingPath
	})
	if len(seeking) == 0 {
		return nil
	}

	results := make([]planResult, len(seeking))
	var g errgroup.Group
	g.SetLimit(s.cfg.PlanWorkers)
	for i, v := range seeking {
		i, origin, dest := i, v.At, v.Destination
		g.Go(func() error {
			route, err := s.router.FindRoute(origin, dest, s.grid, now)
			results[i] = planResult{route: route, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[domain.AgentID]planResult, len(seeking))
	for i, v := range seeking {
		out[v.ID] = results[i]
	}
	return out
}

// stepVehicles advances every vehicle once, in ascending ID order. Occupancy
// is updated as vehicles move, so a cell freed by an earlier vehicle is free
// for a later one and a cell taken by an earlier one is blocked.
func (s *Simulation) stepVehicles(now int) []domain.Event {
	var events []domain.Event
	occupied := s.occupancy()
	plans := s.planSeeking(now)

	ctx := systems.MoveContext{
		Grid:      s.grid,
		Occupied:  occupied,
		Crossings: s.pedestrians,
		Signals:   s.signals,
		Now:       now,
	}

	for _, v := range s.vehicles {
		if v.State == domain.StateArrived {
			continue
		}

		if v.State == domain.StateSeekingPath {
			plan, ok := plans[v.ID]
			if !ok {
				route, err := s.router.FindRoute(v.At, v.Destination, s.grid, now)
				plan = planResult{route: route, err: err}
			}
			if plan.err != nil {
				events = append(events, s.failPlanning(v, now, plan.err)...)
				continue
			}
			v.AssignRoute(plan.route)
		}

		if v.HasArrived() {
			events = append(events, s.arrive(v, now))
			continue
		}
		if now < v.ReadyAt {
			continue
		}

		res := systems.CalculateMove(v, ctx)
		if res.Replan {
			events = append(events, s.replan(v, now, "next cell blocked")...)
			if v.State != domain.StateMoving {
				continue
			}
			res = systems.CalculateMove(v, ctx)
		}

		if !res.CanMove {
			v.Wait(res.Wait, now)
			if s.isStuck(v, now) {
				events = append(events, s.detour(v, now, res.Target)...)
			}
			continue
		}

		occupied.Remove(v.At)
		v.Advance(now, s.cfg.MoveInterval)
		occupied.Put(v.At)

		if v.State == domain.StateArrived {
			events = append(events, s.arrive(v, now))
		}
	}
	return events
}

func (s *Simulation) isStuck(v *domain.Vehicle, now int) bool {
	return s.cfg.StuckReplanTicks > 0 &&
		v.WaitReason == domain.WaitVehicle &&
		v.BlockedSince >= 0 &&
		now-v.BlockedSince >= s.cfg.StuckReplanTicks
}

// failPlanning counts a failed search. Once the budget is spent the vehicle
// is retired; replaceVehicles spawns a fresh one elsewhere.
func (s *Simulation) failPlanning(v *domain.Vehicle, now int, err error) []domain.Event {
	v.ReplanAttempts++
	v.State = domain.StateSeekingPath
	if v.WaitReason != domain.WaitNoPath {
		v.BlockedSince = now
	}
	v.WaitReason = domain.WaitNoPath

	s.log.WithFields(logrus.Fields{
		"tick":     now,
		"vehicle":  v.ID.String(),
		"attempts": v.ReplanAttempts,
	}).WithError(err).Debug("Route search failed")

	if v.ReplanAttempts < s.cfg.MaxReplanAttempts {
		return nil
	}

	v.State = domain.StateArrived
	s.stats.Respawns++
	s.pendingSpawns++
	return []domain.Event{{
		Type:  domain.EventVehicleRespawned,
		Tick:  now,
		Agent: v.ID,
		At:    v.At,
		Text:  fmt.Sprintf("no route after %d attempts", v.ReplanAttempts),
	}}
}

// replan searches a new route from the current cell. On failure the vehicle
// falls back to SeekingPath and retries next tick.
func (s *Simulation) replan(v *domain.Vehicle, now int, reason string) []domain.Event {
	route, err := s.router.FindRoute(v.At, v.Destination, s.grid, now)
	if err != nil {
		v.DropRoute()
		return s.failPlanning(v, now, err)
	}
	v.AssignRoute(route)
	s.stats.Reroutes++
	return []domain.Event{{
		Type:  domain.EventVehicleRerouted,
		Tick:  now,
		Agent: v.ID,
		At:    v.At,
		Text:  reason,
	}}
}

// detour tries to route around a vehicle that has blocked the way for too
// long. Without an alternative the current route is kept.
func (s *Simulation) detour(v *domain.Vehicle, now int, blocked domain.Coord) []domain.Event {
	if blocked == v.Destination {
		return nil
	}
	route, err := s.router.FindRoute(v.At, v.Destination, s.grid, now, blocked)
	if err != nil {
		if !errors.Is(err, domain.ErrNoPathFound) {
			s.log.WithError(err).Warn("Detour search failed")
		}
		// Restart the clock so the search is not repeated every tick.
		v.BlockedSince = now
		return nil
	}
	v.AssignRoute(route)
	v.Wait(domain.WaitVehicle, now)
	s.stats.Reroutes++
	return []domain.Event{{
		Type:  domain.EventVehicleRerouted,
		Tick:  now,
		Agent: v.ID,
		At:    v.At,
		Text:  "detour around " + blocked.String(),
	}}
}

func (s *Simulation) arrive(v *domain.Vehicle, now int) domain.Event {
	v.State = domain.StateArrived
	s.stats.Arrived++
	s.pendingSpawns++
	return domain.Event{
		Type:  domain.EventVehicleArrived,
		Tick:  now,
		Agent: v.ID,
		At:    v.At,
		Text:  "arrived",
	}
}

// invalidateRoutesThrough drops every route that still has to cross at. A
// vehicle whose destination became an obstacle is sent somewhere else.
func (s *Simulation) invalidateRoutesThrough(at domain.Coord) {
	for _, v := range s.vehicles {
		if v.State == domain.StateArrived {
			continue
		}
		if v.Destination == at {
			if dest, ok := s.pickDestination(v.At); ok {
				v.Destination = dest
			}
			v.DropRoute()
			continue
		}
		if v.Route.ContainsAfter(at, v.Progress) {
			v.DropRoute()
		}
	}
}
