package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"traffic-server/internal/domain"
	"traffic-server/internal/network"
	"traffic-server/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingSink) Publish(events []domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recordingSink) count(t domain.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func startService(t *testing.T, sink EventSink) (*Service, context.CancelFunc) {
	t.Helper()
	cfg := quietConfig()
	cfg.TickInterval = 2 * time.Millisecond
	sim := newTestSim(t, cfg, newGrid(t, 6, 6))

	svc := NewService(sim, network.NewBroadcaster(), sink)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = svc.Run(ctx) }()
	return svc, cancel
}

func TestService_TicksAndPublishesSnapshots(t *testing.T) {
	svc, cancel := startService(t, nil)
	defer cancel()

	require.Eventually(t, func() bool {
		return svc.Snapshot().Tick >= 3
	}, time.Second, time.Millisecond)

	snap := svc.Snapshot()
	assert.Equal(t, api.GridMeta{Rows: 6, Cols: 6}, snap.Grid)
}

func TestService_ToggleObstacle(t *testing.T) {
	sink := &recordingSink{}
	svc, cancel := startService(t, sink)
	defer cancel()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	at := domain.Coord{Row: 3, Col: 3}
	require.NoError(t, svc.ToggleObstacle(ctx, at, true, "test"))

	require.Eventually(t, func() bool {
		for _, c := range svc.Snapshot().Cells {
			if c.Row == at.Row && c.Col == at.Col && c.Kind == domain.CellObstacle.String() {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return sink.count(domain.EventObstacleToggled) == 1
	}, time.Second, time.Millisecond)

	err := svc.ToggleObstacle(ctx, domain.Coord{Row: 42, Col: 0}, true, "test")
	assert.ErrorIs(t, err, domain.ErrInvalidCell)
}

func TestService_StopEndsLoop(t *testing.T) {
	svc, cancel := startService(t, nil)
	defer cancel()

	svc.Stop()
	svc.Stop()

	select {
	case <-svc.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	err := svc.ToggleObstacle(context.Background(), domain.Coord{Row: 1, Col: 1}, true, "late")
	assert.ErrorIs(t, err, ErrStopped)
}

func TestService_ContextCancelEndsLoop(t *testing.T) {
	svc, cancel := startService(t, nil)
	cancel()

	select {
	case <-svc.Done():
	case <-time.After(time.Second):
		t.Fatal("loop ignored cancellation")
	}
}
