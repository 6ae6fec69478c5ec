package domain

// Orientation is the axis a pedestrian walks along while crossing.
type Orientation uint8

const (
	OrientationHorizontal Orientation = iota
	OrientationVertical
)

func (o Orientation) String() string {
	if o == OrientationVertical {
		return "VERTICAL"
	}
	return "HORIZONTAL"
}

// Crossing is a pedestrian crossing placed on a single cell.
type Crossing struct {
	At          Coord       `json:"at"`
	Orientation Orientation `json:"orientation"`
}

// Pedestrian walks across one crossing at constant pace.
// Progress runs from 0 (near side) to 1 (far side).
type Pedestrian struct {
	ID          AgentID     `json:"id"`
	Crossing    Coord       `json:"crossing"`
	Orientation Orientation `json:"orientation"`
	Progress    float64     `json:"progress"`
}

// HasCrossed reports whether the pedestrian left the far boundary.
func (p Pedestrian) HasCrossed() bool {
	return p.Progress >= 1.0
}

func (o Orientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }
