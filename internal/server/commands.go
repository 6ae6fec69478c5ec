package server

import (
	"context"
	"encoding/json"
	"fmt"

	"traffic-server/internal/domain"
	"traffic-server/pkg/api"
)

// commandFunc handles one viewer command. The returned error is sent back to
// the viewer; it never closes the session.
type commandFunc func(ctx context.Context, c *Client, payload json.RawMessage) error

// typedCommandFunc works on an already decoded and validated payload.
type typedCommandFunc[T any] func(ctx context.Context, c *Client, payload T) error

// withPayload decodes the payload into T and runs Validate when T has one.
func withPayload[T any](handler typedCommandFunc[T]) commandFunc {
	return func(ctx context.Context, c *Client, raw json.RawMessage) error {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("invalid payload format: %w", err)
		}
		if v, ok := any(payload).(api.Validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
		}
		return handler(ctx, c, payload)
	}
}

var commands = map[domain.ActionType]commandFunc{
	domain.ActionInit:           handleInit,
	domain.ActionAddObstacle:    withPayload(toggleObstacle(true)),
	domain.ActionRemoveObstacle: withPayload(toggleObstacle(false)),
}

// handleInit resends the latest snapshot, e.g. after the viewer reloaded.
func handleInit(_ context.Context, c *Client, _ json.RawMessage) error {
	snap := c.Service.Snapshot()
	c.enqueue(api.ServerResponse{Type: api.TypeSnapshot, Tick: snap.Tick, Snapshot: snap})
	return nil
}

func toggleObstacle(add bool) typedCommandFunc[api.PositionPayload] {
	return func(ctx context.Context, c *Client, p api.PositionPayload) error {
		return c.Service.ToggleObstacle(ctx, domain.Coord{Row: p.Row, Col: p.Col}, add, c.SessionID)
	}
}
