package domain

// ObstacleCommand asks the simulation to add or remove an obstacle.
// It is applied between two ticks, never during one.
type ObstacleCommand struct {
	At     Coord
	Add    bool
	Source string // session that issued the command, empty for local callers

	// Reply receives the outcome once the command was applied. May be nil.
	Reply chan error
}
