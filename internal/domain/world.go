package domain

import (
	"fmt"
	"sort"
)

// Grid is the static street network: a fixed Rows x Cols block of cells plus
// the signal and crossing registries keyed by coordinate.
//
// After construction only Road <-> Obstacle toggles are allowed.
type Grid struct {
	Rows int
	Cols int

	cells     []Cell
	signals   map[Coord]*Signal
	crossings map[Coord]*Crossing
}

// NewGrid builds a grid of Road cells with parity-derived directions.
func NewGrid(rows, cols int) (*Grid, error) {
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("grid must be at least 2x2, got %dx%d", rows, cols)
	}

	g := &Grid{
		Rows:      rows,
		Cols:      cols,
		cells:     make([]Cell, rows*cols),
		signals:   make(map[Coord]*Signal),
		crossings: make(map[Coord]*Crossing),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.cells[r*cols+c] = Cell{
				At:     Coord{Row: r, Col: c},
				Kind:   CellRoad,
				RowDir: RowDirection(r),
				ColDir: ColDirection(c),
			}
		}
	}
	return g, nil
}

func (g *Grid) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < g.Rows && c.Col >= 0 && c.Col < g.Cols
}

func (g *Grid) index(c Coord) int {
	return c.Row*g.Cols + c.Col
}

// CellAt returns the cell at c; ok is false out of bounds.
func (g *Grid) CellAt(c Coord) (Cell, bool) {
	if !g.InBounds(c) {
		return Cell{}, false
	}
	return g.cells[g.index(c)], true
}

// IsPassable reports whether a vehicle moving in dir may enter c.
// Out of bounds, obstacles and moves against the one-way rule are refused.
func (g *Grid) IsPassable(c Coord, dir Direction) bool {
	cell, ok := g.CellAt(c)
	if !ok || cell.IsBlocked() {
		return false
	}
	return cell.Allows(dir)
}

// Neighbors returns the legal successors of c: first the move along the row,
// then the move along the column. The order is fixed.
func (g *Grid) Neighbors(c Coord) []Coord {
	out := make([]Coord, 0, 2)
	for _, dir := range []Direction{RowDirection(c.Row), ColDirection(c.Col)} {
		next := c.Shift(dir)
		if g.IsPassable(next, dir) {
			out = append(out, next)
		}
	}
	return out
}

// IsEscapable reports whether at least one legal move leaves c.
func (g *Grid) IsEscapable(c Coord) bool {
	return len(g.Neighbors(c)) > 0
}

// MarkIntersection turns a Road cell into an Intersection.
func (g *Grid) MarkIntersection(c Coord) error {
	cell, ok := g.CellAt(c)
	if !ok {
		return fmt.Errorf("mark intersection at %s: %w", c, ErrInvalidCell)
	}
	if cell.Kind != CellRoad && cell.Kind != CellIntersection {
		return fmt.Errorf("mark intersection on %s cell %s: %w", cell.Kind, c, ErrInvalidCell)
	}
	g.cells[g.index(c)].Kind = CellIntersection
	return nil
}

// AddSignal registers a light. Signals may only sit on intersections.
func (g *Grid) AddSignal(s Signal) error {
	cell, ok := g.CellAt(s.At)
	if !ok || cell.Kind != CellIntersection {
		return fmt.Errorf("signal at %s needs an intersection: %w", s.At, ErrInvalidCell)
	}
	if err := s.Timing.Validate(); err != nil {
		return err
	}
	sig := s
	g.signals[s.At] = &sig
	return nil
}

// AddCrossing registers a pedestrian crossing on a Road cell.
func (g *Grid) AddCrossing(cr Crossing) error {
	cell, ok := g.CellAt(cr.At)
	if !ok || cell.Kind != CellRoad {
		return fmt.Errorf("crossing at %s needs a road cell: %w", cr.At, ErrInvalidCell)
	}
	crossing := cr
	g.crossings[cr.At] = &crossing
	g.cells[g.index(cr.At)].Kind = CellCrossing
	return nil
}

// ToggleObstacle adds or removes an obstacle on a Road cell.
//
// Intersections, crossings and signal cells are refused with ErrInvalidCell and
// the grid is left untouched. changed is false when the cell was already in the
// requested state.
func (g *Grid) ToggleObstacle(c Coord, add bool) (changed bool, err error) {
	cell, ok := g.CellAt(c)
	if !ok {
		return false, fmt.Errorf("toggle obstacle at %s: out of bounds: %w", c, ErrInvalidCell)
	}
	if _, isSignal := g.signals[c]; isSignal {
		return false, fmt.Errorf("toggle obstacle at %s: signal cell: %w", c, ErrInvalidCell)
	}

	idx := g.index(c)
	switch cell.Kind {
	case CellIntersection, CellCrossing:
		return false, fmt.Errorf("toggle obstacle at %s: %s cell: %w", c, cell.Kind, ErrInvalidCell)
	case CellRoad:
		if !add {
			return false, nil
		}
		g.cells[idx].Kind = CellObstacle
		return true, nil
	case CellObstacle:
		if add {
			return false, nil
		}
		g.cells[idx].Kind = CellRoad
		return true, nil
	}
	return false, fmt.Errorf("toggle obstacle at %s: unexpected kind %s: %w", c, cell.Kind, ErrInvalidCell)
}

// SignalAt returns the light governing entry into c, if any.
func (g *Grid) SignalAt(c Coord) (Signal, bool) {
	s, ok := g.signals[c]
	if !ok {
		return Signal{}, false
	}
	return *s, true
}

// CrossingAt returns the crossing on c, if any.
func (g *Grid) CrossingAt(c Coord) (Crossing, bool) {
	cr, ok := g.crossings[c]
	if !ok {
		return Crossing{}, false
	}
	return *cr, true
}

// Signals lists all lights in row-major order.
func (g *Grid) Signals() []Signal {
	out := make([]Signal, 0, len(g.signals))
	for _, s := range g.signals {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Less(out[j].At) })
	return out
}

// Crossings lists all crossings in row-major order.
func (g *Grid) Crossings() []Crossing {
	out := make([]Crossing, 0, len(g.crossings))
	for _, cr := range g.crossings {
		out = append(out, *cr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Less(out[j].At) })
	return out
}

// Cells returns a row-major copy of every cell.
func (g *Grid) Cells() []Cell {
	out := make([]Cell, len(g.cells))
	copy(out, g.cells)
	return out
}

// CellsOfKind lists the coordinates of every cell of kind k, row-major.
func (g *Grid) CellsOfKind(k CellKind) []Coord {
	var out []Coord
	for _, cell := range g.cells {
		if cell.Kind == k {
			out = append(out, cell.At)
		}
	}
	return out
}

// Obstacles lists the current obstacle set.
func (g *Grid) Obstacles() []Coord {
	return g.CellsOfKind(CellObstacle)
}
