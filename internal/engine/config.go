package engine

import (
	"errors"
	"fmt"
	"time"

	"traffic-server/internal/domain"
	"traffic-server/pkg/citygen"
)

// Config holds every tunable of a simulation run.
type Config struct {
	// Seed is the master seed. Layout, spawning and pedestrians each derive
	// their own stream from it.
	Seed int64

	Layout   citygen.Layout
	Vehicles int

	// MoveInterval is the number of ticks between two moves of one vehicle.
	MoveInterval        int
	PedestrianSpeed     float64
	PedestrianSpawnProb float64

	// MaxReplanAttempts bounds consecutive failed searches before a vehicle
	// is retired and respawned elsewhere.
	MaxReplanAttempts int
	// StuckReplanTicks makes a vehicle blocked by another vehicle for that
	// many ticks search a new route. 0 disables it.
	StuckReplanTicks int
	// SpawnAttempts bounds the random draws for an origin/destination pair.
	SpawnAttempts int
	// SignalPenalty is the extra planning cost of a light that is not green.
	SignalPenalty int
	// PlanWorkers bounds the parallel route searches of one tick.
	PlanWorkers int

	// TickInterval is the wall-clock period of the service loop.
	TickInterval time.Duration
}

// NewConfig returns the default configuration with a time-based seed.
func NewConfig() Config {
	return Config{
		Seed:                time.Now().UnixNano(),
		Layout:              citygen.DefaultLayout(),
		Vehicles:            domain.DefaultVehicles,
		MoveInterval:        domain.DefaultMoveInterval,
		PedestrianSpeed:     domain.DefaultPedestrianSpeed,
		PedestrianSpawnProb: domain.DefaultPedestrianSpawnP,
		MaxReplanAttempts:   domain.DefaultMaxReplanAttempts,
		StuckReplanTicks:    domain.DefaultStuckReplanTicks,
		SpawnAttempts:       domain.DefaultSpawnAttempts,
		SignalPenalty:       0,
		PlanWorkers:         4,
		TickInterval:        100 * time.Millisecond,
	}
}

// Validate rejects configurations the simulation cannot run.
func (c Config) Validate() error {
	var errs []error
	if c.Layout.Rows < 2 || c.Layout.Cols < 2 {
		errs = append(errs, fmt.Errorf("grid must be at least 2x2, got %dx%d", c.Layout.Rows, c.Layout.Cols))
	}
	if err := c.Layout.Timing.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Vehicles < 0 {
		errs = append(errs, fmt.Errorf("vehicles must be non-negative, got %d", c.Vehicles))
	}
	if c.MoveInterval < 1 {
		errs = append(errs, fmt.Errorf("move interval must be at least 1 tick, got %d", c.MoveInterval))
	}
	if c.PedestrianSpeed <= 0 || c.PedestrianSpeed > 1 {
		errs = append(errs, fmt.Errorf("pedestrian speed must be in (0, 1], got %v", c.PedestrianSpeed))
	}
	if c.PedestrianSpawnProb < 0 || c.PedestrianSpawnProb > 1 {
		errs = append(errs, fmt.Errorf("pedestrian spawn probability must be in [0, 1], got %v", c.PedestrianSpawnProb))
	}
	if c.MaxReplanAttempts < 1 {
		errs = append(errs, fmt.Errorf("max replan attempts must be positive, got %d", c.MaxReplanAttempts))
	}
	if c.StuckReplanTicks < 0 {
		errs = append(errs, fmt.Errorf("stuck replan ticks must be non-negative, got %d", c.StuckReplanTicks))
	}
	if c.SpawnAttempts < 1 {
		errs = append(errs, fmt.Errorf("spawn attempts must be positive, got %d", c.SpawnAttempts))
	}
	if c.PlanWorkers < 1 {
		errs = append(errs, fmt.Errorf("plan workers must be positive, got %d", c.PlanWorkers))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %v", c.TickInterval))
	}
	return errors.Join(errs...)
}
