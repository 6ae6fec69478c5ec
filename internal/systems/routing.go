package systems

import (
	"container/heap"
	"fmt"

	"traffic-server/internal/domain"
	"traffic-server/pkg/logger"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Router computes shortest legal routes on the one-way grid.
//
// Edges follow Grid.Neighbors, so obstacles and moves against a row or column
// direction are never part of a route. Entering a signal cell that is not
// Green at planning time costs SignalPenalty extra; lights never make a cell
// illegal.
type Router struct {
	SignalPenalty int
}

// NewRouter returns a router. A negative penalty is treated as zero so the
// Manhattan heuristic stays admissible.
func NewRouter(signalPenalty int) *Router {
	if signalPenalty < 0 {
		signalPenalty = 0
	}
	return &Router{SignalPenalty: signalPenalty}
}

// FindRoute runs A* from origin to destination. The returned route starts at
// origin and ends at destination. Cells listed in avoid are treated like
// obstacles for this search only. The grid is only read, so several searches
// may share it as long as nobody toggles obstacles meanwhile.
func (r *Router) FindRoute(origin, destination domain.Coord, g *domain.Grid, now int, avoid ...domain.Coord) (domain.Route, error) {
	if !g.InBounds(origin) || !g.InBounds(destination) {
		return nil, fmt.Errorf("route %s -> %s: %w", origin, destination, domain.ErrInvalidCell)
	}
	if origin == destination {
		return domain.Route{origin}, nil
	}
	if dest, _ := g.CellAt(destination); dest.IsBlocked() || lo.Contains(avoid, destination) {
		return nil, fmt.Errorf("route %s -> %s: destination blocked: %w", origin, destination, domain.ErrNoPathFound)
	}

	open := &routeQueue{}
	heap.Init(open)
	items := make(map[domain.Coord]*searchItem)
	closed := make(map[domain.Coord]bool)
	cameFrom := make(map[domain.Coord]domain.Coord)

	start := &searchItem{At: origin, Guess: origin.ManhattanTo(destination)}
	items[origin] = start
	heap.Push(open, start)

	for open.Len() > 0 {
		cur := heap.Pop(open).(*searchItem)
		if cur.At == destination {
			return buildRoute(cameFrom, origin, destination), nil
		}
		closed[cur.At] = true

		for _, next := range g.Neighbors(cur.At) {
			if closed[next] || lo.Contains(avoid, next) {
				continue
			}
			cost := cur.Cost + r.stepCost(g, next, now)
			if item, seen := items[next]; seen {
				if cost < item.Cost {
					cameFrom[next] = cur.At
					open.Update(item, cost)
				}
				continue
			}
			item := &searchItem{At: next, Cost: cost, Guess: next.ManhattanTo(destination)}
			items[next] = item
			cameFrom[next] = cur.At
			heap.Push(open, item)
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"component":   "router",
		"origin":      origin.String(),
		"destination": destination.String(),
		"expanded":    len(closed),
	}).Debug("No route found")
	return nil, fmt.Errorf("route %s -> %s: %w", origin, destination, domain.ErrNoPathFound)
}

func (r *Router) stepCost(g *domain.Grid, at domain.Coord, now int) int {
	if r.SignalPenalty == 0 {
		return 1
	}
	if sig, ok := g.SignalAt(at); ok && !sig.AllowsEntry(now) {
		return 1 + r.SignalPenalty
	}
	return 1
}

func buildRoute(cameFrom map[domain.Coord]domain.Coord, origin, destination domain.Coord) domain.Route {
	var rev []domain.Coord
	for at := destination; at != origin; at = cameFrom[at] {
		rev = append(rev, at)
	}
	rev = append(rev, origin)

	route := make(domain.Route, len(rev))
	for i, c := range rev {
		route[len(rev)-1-i] = c
	}
	return route
}
