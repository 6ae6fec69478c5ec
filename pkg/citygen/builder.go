package citygen

import (
	"fmt"
	"math/rand"

	"traffic-server/internal/domain"

	"github.com/samber/lo"
)

// CityBuilder provides a fluent API for laying out a street grid.
// The first failing step is remembered and returned by Build.
type CityBuilder struct {
	grid *domain.Grid
	rng  *rand.Rand
	err  error
}

// NewCity starts a plain grid of road cells.
func NewCity(rows, cols int, rng *rand.Rand) *CityBuilder {
	g, err := domain.NewGrid(rows, cols)
	return &CityBuilder{grid: g, rng: rng, err: err}
}

// WithIntersections marks every interior cell whose row and column are both
// multiples of blockSize.
func (b *CityBuilder) WithIntersections(blockSize int) *CityBuilder {
	if b.err != nil {
		return b
	}
	if blockSize < 1 {
		b.err = fmt.Errorf("block size must be positive, got %d", blockSize)
		return b
	}
	for r := 1; r < b.grid.Rows-1; r++ {
		for c := 1; c < b.grid.Cols-1; c++ {
			if r%blockSize != 0 || c%blockSize != 0 {
				continue
			}
			if err := b.grid.MarkIntersection(domain.Coord{Row: r, Col: c}); err != nil {
				b.err = err
				return b
			}
		}
	}
	return b
}

// WithSignals puts lights on a shuffled subset of the intersections: at most
// one per row and one per column, and no two closer than spacing (Manhattan).
// Each light starts at a random point of its cycle.
func (b *CityBuilder) WithSignals(timing domain.SignalTiming, spacing int) *CityBuilder {
	if b.err != nil {
		return b
	}
	if err := timing.Validate(); err != nil {
		b.err = err
		return b
	}

	candidates := b.grid.CellsOfKind(domain.CellIntersection)
	b.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	usedRows := map[int]bool{}
	usedCols := map[int]bool{}
	var placed []domain.Coord

	for _, at := range candidates {
		if usedRows[at.Row] || usedCols[at.Col] {
			continue
		}
		tooClose := lo.ContainsBy(placed, func(p domain.Coord) bool {
			return p.ManhattanTo(at) < spacing
		})
		if tooClose {
			continue
		}

		sig := domain.Signal{At: at, Timing: timing, Epoch: b.randomEpoch(timing)}
		if err := b.grid.AddSignal(sig); err != nil {
			b.err = err
			return b
		}
		placed = append(placed, at)
		usedRows[at.Row] = true
		usedCols[at.Col] = true
	}
	return b
}

// randomEpoch starts a light either somewhere in Green or somewhere in Red so
// neighbouring lights are not in lockstep.
func (b *CityBuilder) randomEpoch(t domain.SignalTiming) int {
	if b.rng.Intn(2) == 0 {
		return -b.rng.Intn(t.Green)
	}
	return -(t.Green + t.Yellow) - b.rng.Intn(t.Red)
}

// WithCrossings places up to n crossings on interior road cells with a random
// orientation. It gives up after n*100 draws on crowded grids.
func (b *CityBuilder) WithCrossings(n int) *CityBuilder {
	if b.err != nil || n <= 0 {
		return b
	}
	if b.grid.Rows < 3 || b.grid.Cols < 3 {
		return b
	}

	placed := 0
	for attempt := 0; placed < n && attempt < n*100; attempt++ {
		at := domain.Coord{
			Row: b.randRange(1, b.grid.Rows-2),
			Col: b.randRange(1, b.grid.Cols-2),
		}
		orientation := domain.OrientationHorizontal
		if b.rng.Intn(2) == 1 {
			orientation = domain.OrientationVertical
		}
		cell, _ := b.grid.CellAt(at)
		if cell.Kind != domain.CellRoad {
			continue
		}
		if err := b.grid.AddCrossing(domain.Crossing{At: at, Orientation: orientation}); err != nil {
			b.err = err
			return b
		}
		placed++
	}
	return b
}

// Build returns the finished grid.
func (b *CityBuilder) Build() (*domain.Grid, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.grid, nil
}

func (b *CityBuilder) randRange(min, max int) int {
	return b.rng.Intn(max-min+1) + min
}
