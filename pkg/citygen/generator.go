package citygen

import (
	"math/rand"

	"traffic-server/internal/domain"
)

// Layout holds the construction-time parameters of a city.
type Layout struct {
	Rows          int
	Cols          int
	BlockSize     int
	SignalSpacing int
	Crossings     int
	Timing        domain.SignalTiming
}

// DefaultLayout mirrors the defaults of the server binary.
func DefaultLayout() Layout {
	return Layout{
		Rows:          domain.DefaultRows,
		Cols:          domain.DefaultCols,
		BlockSize:     domain.DefaultBlockSize,
		SignalSpacing: domain.DefaultSignalSpacing,
		Crossings:     domain.DefaultCrossings,
		Timing: domain.SignalTiming{
			Green:  domain.DefaultGreenTicks,
			Yellow: domain.DefaultYellowTicks,
			Red:    domain.DefaultRedTicks,
		},
	}
}

// Generate builds a city. The same layout and rng seed always give the same
// grid.
func Generate(l Layout, rng *rand.Rand) (*domain.Grid, error) {
	return NewCity(l.Rows, l.Cols, rng).
		WithIntersections(l.BlockSize).
		WithSignals(l.Timing, l.SignalSpacing).
		WithCrossings(l.Crossings).
		Build()
}
