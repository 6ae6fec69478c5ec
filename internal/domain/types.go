package domain

// Coord addresses one cell of the grid.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Direction is a unit move on the grid.
type Direction uint8

const (
	DirNone Direction = iota
	DirRight
	DirLeft
	DirDown
	DirUp
)

var directionToString = map[Direction]string{
	DirNone:  "NONE",
	DirRight: "RIGHT",
	DirLeft:  "LEFT",
	DirDown:  "DOWN",
	DirUp:    "UP",
}

func (d Direction) String() string {
	if s, ok := directionToString[d]; ok {
		return s
	}
	return "UNKNOWN"
}

// Delta returns the (dRow, dCol) step of the direction.
func (d Direction) Delta() (int, int) {
	switch d {
	case DirRight:
		return 0, 1
	case DirLeft:
		return 0, -1
	case DirDown:
		return 1, 0
	case DirUp:
		return -1, 0
	default:
		return 0, 0
	}
}

// IsHorizontal reports whether the move runs along a row.
func (d Direction) IsHorizontal() bool {
	return d == DirRight || d == DirLeft
}

// IsVertical reports whether the move runs along a column.
func (d Direction) IsVertical() bool {
	return d == DirDown || d == DirUp
}

// CellKind is the closed set of cell variants.
type CellKind uint8

const (
	CellRoad CellKind = iota
	CellIntersection
	CellCrossing
	CellObstacle
)

var cellKindToString = map[CellKind]string{
	CellRoad:         "ROAD",
	CellIntersection: "INTERSECTION",
	CellCrossing:     "CROSSING",
	CellObstacle:     "OBSTACLE",
}

func (k CellKind) String() string {
	if s, ok := cellKindToString[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Cell is one square of the street grid.
//
// RowDir and ColDir are derived from the coordinate parity when the grid is
// built and never change, even while the cell is an obstacle.
type Cell struct {
	At     Coord     `json:"at"`
	Kind   CellKind  `json:"kind"`
	RowDir Direction `json:"rowDir"`
	ColDir Direction `json:"colDir"`
}

// RowDirection is the only horizontal direction allowed on a row:
// even rows run right, odd rows run left.
func RowDirection(row int) Direction {
	if row%2 == 0 {
		return DirRight
	}
	return DirLeft
}

// ColDirection is the only vertical direction allowed on a column:
// even columns run down, odd columns run up.
func ColDirection(col int) Direction {
	if col%2 == 0 {
		return DirDown
	}
	return DirUp
}

// Allows reports whether a vehicle may enter the cell moving in dir.
func (c Cell) Allows(dir Direction) bool {
	switch {
	case dir.IsHorizontal():
		return dir == c.RowDir
	case dir.IsVertical():
		return dir == c.ColDir
	default:
		return false
	}
}

// IsBlocked reports whether the cell is currently impassable.
func (c Cell) IsBlocked() bool {
	return c.Kind == CellObstacle
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }
func (k CellKind) MarshalText() ([]byte, error)  { return []byte(k.String()), nil }
