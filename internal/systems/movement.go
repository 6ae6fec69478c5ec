package systems

import (
	"traffic-server/internal/domain"
)

// Occupancy answers whether a vehicle holds a cell. The vehicle phase updates
// it as earlier vehicles move, so later ones see the new positions.
type Occupancy interface {
	Has(domain.Coord) bool
}

// CrossingGate is satisfied by the pedestrian spawner.
type CrossingGate interface {
	IsCrossingOccupied(domain.Coord) bool
}

// SignalGate is satisfied by the signal controller.
type SignalGate interface {
	AllowsEntry(at domain.Coord, now int) bool
}

// MoveContext is the world as seen by one vehicle during the vehicle phase.
type MoveContext struct {
	Grid      *domain.Grid
	Occupied  Occupancy
	Crossings CrossingGate
	Signals   SignalGate
	Now       int
}

// MovementResult is the outcome of a right-of-way check.
type MovementResult struct {
	Target  domain.Coord
	CanMove bool
	Wait    domain.WaitReason
	Replan  bool // the next cell is no longer passable
}

// CalculateMove checks whether v may take its next route step. It never
// changes state.
//
// Checks run in a fixed order: grid legality, other vehicles, pedestrians,
// then the light.
func CalculateMove(v *domain.Vehicle, ctx MoveContext) MovementResult {
	target, ok := v.NextStep()
	if !ok {
		return MovementResult{Target: v.At}
	}
	res := MovementResult{Target: target}

	if !ctx.Grid.IsPassable(target, v.At.DirectionTo(target)) {
		res.Replan = true
		return res
	}
	if ctx.Occupied != nil && ctx.Occupied.Has(target) {
		res.Wait = domain.WaitVehicle
		return res
	}
	if ctx.Crossings != nil && ctx.Crossings.IsCrossingOccupied(target) {
		res.Wait = domain.WaitPedestrian
		return res
	}
	if ctx.Signals != nil && !ctx.Signals.AllowsEntry(target, ctx.Now) {
		res.Wait = domain.WaitSignal
		return res
	}

	res.CanMove = true
	return res
}
