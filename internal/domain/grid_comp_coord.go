package domain

import "fmt"

// Shift returns the neighbouring coordinate in direction d.
func (c Coord) Shift(d Direction) Coord {
	dr, dc := d.Delta()
	return Coord{Row: c.Row + dr, Col: c.Col + dc}
}

// ManhattanTo is the grid distance to other. It never overestimates the
// number of unit moves, so it is an admissible A* heuristic.
func (c Coord) ManhattanTo(other Coord) int {
	dr := c.Row - other.Row
	if dr < 0 {
		dr = -dr
	}
	dc := c.Col - other.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// DirectionTo returns the direction of a single step to an adjacent cell,
// DirNone when other is not a 4-neighbour.
func (c Coord) DirectionTo(other Coord) Direction {
	switch {
	case other.Row == c.Row && other.Col == c.Col+1:
		return DirRight
	case other.Row == c.Row && other.Col == c.Col-1:
		return DirLeft
	case other.Col == c.Col && other.Row == c.Row+1:
		return DirDown
	case other.Col == c.Col && other.Row == c.Row-1:
		return DirUp
	}
	return DirNone
}

// Less orders coordinates row-major. Used for deterministic tie-breaks.
func (c Coord) Less(other Coord) bool {
	if c.Row != other.Row {
		return c.Row < other.Row
	}
	return c.Col < other.Col
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}
