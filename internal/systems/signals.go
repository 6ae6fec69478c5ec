package systems

import (
	"traffic-server/internal/domain"
)

// SignalController exposes the lights of a grid. It holds no clock of its own:
// every answer is derived from the tick passed in.
type SignalController struct {
	grid *domain.Grid
}

func NewSignalController(g *domain.Grid) *SignalController {
	return &SignalController{grid: g}
}

// SignalState is a light as shown at one tick.
type SignalState struct {
	At     domain.Coord        `json:"at"`
	Phase  domain.Phase        `json:"phase"`
	Since  int                 `json:"since"`
	Timing domain.SignalTiming `json:"timing"`
}

// PhaseAt returns the phase of the light on c; ok is false without a light.
func (sc *SignalController) PhaseAt(c domain.Coord, now int) (domain.Phase, bool) {
	sig, ok := sc.grid.SignalAt(c)
	if !ok {
		return domain.PhaseGreen, false
	}
	return sig.PhaseAt(now), true
}

// AllowsEntry is true for cells without a light.
func (sc *SignalController) AllowsEntry(c domain.Coord, now int) bool {
	sig, ok := sc.grid.SignalAt(c)
	return !ok || sig.AllowsEntry(now)
}

// States lists every light at tick now, row-major.
func (sc *SignalController) States(now int) []SignalState {
	signals := sc.grid.Signals()
	out := make([]SignalState, 0, len(signals))
	for _, sig := range signals {
		out = append(out, SignalState{
			At:     sig.At,
			Phase:  sig.PhaseAt(now),
			Since:  sig.PhaseStartedAt(now),
			Timing: sig.Timing,
		})
	}
	return out
}

// Transitions lists the phase changes entered in (prev, now], ordered by tick
// then by position.
func (sc *SignalController) Transitions(prev, now int) []domain.Event {
	var events []domain.Event
	signals := sc.grid.Signals()
	for t := prev + 1; t <= now; t++ {
		for _, sig := range signals {
			if sig.PhaseStartedAt(t) != t {
				continue
			}
			events = append(events, domain.Event{
				Type:  domain.EventSignalPhase,
				Tick:  t,
				At:    sig.At,
				Phase: sig.PhaseAt(t),
			})
		}
	}
	return events
}
