package domain

// Signal durations in ticks. One tick is one vehicle step.
const (
	DefaultGreenTicks  = 20
	DefaultYellowTicks = 3
	DefaultRedTicks    = 8
)

// Agent pacing.
const (
	DefaultMoveInterval      = 1    // ticks between two moves of one vehicle
	DefaultPedestrianSpeed   = 0.1  // crossing fraction per tick
	DefaultPedestrianSpawnP  = 0.02 // per crossing and tick
	DefaultMaxReplanAttempts = 4
	DefaultStuckReplanTicks  = 15
	DefaultSpawnAttempts     = 100
)

// Layout.
const (
	DefaultRows          = 15
	DefaultCols          = 30
	DefaultVehicles      = 50
	DefaultCrossings     = 5
	DefaultBlockSize     = 3
	DefaultSignalSpacing = 4
)
