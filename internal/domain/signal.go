package domain

import "fmt"

// Phase is the state of a traffic light.
type Phase uint8

const (
	PhaseGreen Phase = iota
	PhaseYellow
	PhaseRed
)

var phaseToString = map[Phase]string{
	PhaseGreen:  "GREEN",
	PhaseYellow: "YELLOW",
	PhaseRed:    "RED",
}

func (p Phase) String() string {
	if s, ok := phaseToString[p]; ok {
		return s
	}
	return "UNKNOWN"
}

// Next is the strictly cyclic successor Green -> Yellow -> Red -> Green.
func (p Phase) Next() Phase {
	switch p {
	case PhaseGreen:
		return PhaseYellow
	case PhaseYellow:
		return PhaseRed
	default:
		return PhaseGreen
	}
}

// SignalTiming holds per-phase durations in ticks.
type SignalTiming struct {
	Green  int `json:"green"`
	Yellow int `json:"yellow"`
	Red    int `json:"red"`
}

// Cycle is the length of one full Green-Yellow-Red period.
func (t SignalTiming) Cycle() int {
	return t.Green + t.Yellow + t.Red
}

// Duration returns the configured length of phase p.
func (t SignalTiming) Duration(p Phase) int {
	switch p {
	case PhaseGreen:
		return t.Green
	case PhaseYellow:
		return t.Yellow
	default:
		return t.Red
	}
}

func (t SignalTiming) Validate() error {
	if t.Green <= 0 || t.Yellow < 0 || t.Red <= 0 {
		return fmt.Errorf("invalid signal timing %d/%d/%d: green and red must be positive, yellow non-negative",
			t.Green, t.Yellow, t.Red)
	}
	return nil
}

// Signal is a traffic light bound to an intersection cell.
//
// Epoch is any tick at which a Green phase began. The phase at a given tick
// depends only on the distance to Epoch, which keeps replays deterministic.
type Signal struct {
	At     Coord        `json:"at"`
	Timing SignalTiming `json:"timing"`
	Epoch  int          `json:"epoch"`
}

// offset is the position of now inside the current cycle, in [0, cycle).
func (s Signal) offset(now int) int {
	cycle := s.Timing.Cycle()
	if cycle <= 0 {
		return 0
	}
	e := (now - s.Epoch) % cycle
	if e < 0 {
		e += cycle
	}
	return e
}

// PhaseAt returns the phase shown at tick now.
func (s Signal) PhaseAt(now int) Phase {
	e := s.offset(now)
	switch {
	case e < s.Timing.Green:
		return PhaseGreen
	case e < s.Timing.Green+s.Timing.Yellow:
		return PhaseYellow
	default:
		return PhaseRed
	}
}

// PhaseStartedAt returns the tick at which the phase shown at now was entered.
func (s Signal) PhaseStartedAt(now int) int {
	e := s.offset(now)
	switch s.PhaseAt(now) {
	case PhaseGreen:
		return now - e
	case PhaseYellow:
		return now - (e - s.Timing.Green)
	default:
		return now - (e - s.Timing.Green - s.Timing.Yellow)
	}
}

// AllowsEntry reports whether vehicles may enter the signal cell at now.
// Yellow blocks entry the same way Red does.
func (s Signal) AllowsEntry(now int) bool {
	return s.PhaseAt(now) == PhaseGreen
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
