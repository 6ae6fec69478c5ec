package domain

// ReplayToggle is one obstacle toggle applied before tick Tick ran.
type ReplayToggle struct {
	Tick int   `json:"tick"`
	At   Coord `json:"at"`
	Add  bool  `json:"add"`
}

// ReplaySession holds every input needed to re-run a simulation: the seed,
// the grid size and the external toggles. Simulation state is never stored.
type ReplaySession struct {
	Seed      int64          `json:"seed"`
	Rows      int            `json:"rows"`
	Cols      int            `json:"cols"`
	Vehicles  int            `json:"vehicles"`
	Timestamp int64          `json:"timestamp"`
	LastTick  int            `json:"lastTick"`
	Toggles   []ReplayToggle `json:"toggles"`
}

// Record appends a toggle.
func (s *ReplaySession) Record(tick int, at Coord, add bool) {
	s.Toggles = append(s.Toggles, ReplayToggle{Tick: tick, At: at, Add: add})
}
