package domain

import "errors"

var (
	// ErrInvalidCell rejects an obstacle toggle on a cell that cannot hold one.
	ErrInvalidCell = errors.New("invalid cell")

	// ErrNoPathFound means the router could not connect origin and destination.
	ErrNoPathFound = errors.New("no path found")

	// ErrUnreachableSpawn means no valid origin/destination pair was found.
	ErrUnreachableSpawn = errors.New("unreachable spawn")
)
