package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"traffic-server/internal/domain"
	"traffic-server/internal/network"
	"traffic-server/pkg/api"
	"traffic-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// ErrStopped is returned to commands submitted after the loop ended.
var ErrStopped = errors.New("simulation stopped")

// EventSink receives the events of every tick. Implementations must not
// block the loop for long.
type EventSink interface {
	Publish(events []domain.Event)
}

// Service runs a Simulation on a ticker in one goroutine. Obstacle commands
// arrive on a channel and are applied strictly between ticks.
type Service struct {
	sim      *Simulation
	Hub      *network.Broadcaster
	sink     EventSink
	interval time.Duration

	commands chan domain.ObstacleCommand
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu     sync.RWMutex
	latest *api.Snapshot

	log *logrus.Entry
}

// NewService wires a simulation to its outputs. sink may be nil.
func NewService(sim *Simulation, hub *network.Broadcaster, sink EventSink) *Service {
	return &Service{
		sim:      sim,
		Hub:      hub,
		sink:     sink,
		interval: sim.Config().TickInterval,
		commands: make(chan domain.ObstacleCommand, 100),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		latest:   sim.BuildSnapshot(),
		log:      logger.Component("service"),
	}
}

// Run drives the loop until ctx is cancelled or Stop is called. It always
// returns between two ticks.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval.String()).Info("Simulation loop started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Simulation loop stopped by context")
			return nil
		case <-s.stop:
			s.log.Info("Simulation loop stopped")
			return nil
		case cmd := <-s.commands:
			s.apply(cmd)
		case <-ticker.C:
			s.step()
		}
	}
}

// Stop asks the loop to halt after the current tick. Safe to call repeatedly.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed once Run has returned.
func (s *Service) Done() <-chan struct{} { return s.done }

// ToggleObstacle queues a toggle and waits until the loop applied it.
func (s *Service) ToggleObstacle(ctx context.Context, at domain.Coord, add bool, source string) error {
	reply := make(chan error, 1)
	cmd := domain.ObstacleCommand{At: at, Add: add, Source: source, Reply: reply}

	select {
	case s.commands <- cmd:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the state published after the last tick. The value is
// never modified afterwards; callers must not modify it either.
func (s *Service) Snapshot() *api.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Simulation gives access to the simulation once Run has returned.
func (s *Service) Simulation() *Simulation {
	return s.sim
}

func (s *Service) apply(cmd domain.ObstacleCommand) {
	err := s.sim.ToggleObstacle(cmd.At, cmd.Add)
	entry := s.log.WithFields(logrus.Fields{
		"at":     cmd.At.String(),
		"add":    cmd.Add,
		"source": cmd.Source,
	})
	if err != nil {
		entry.WithError(err).Warn("Obstacle command rejected")
	} else {
		entry.Info("Obstacle command applied")
	}

	if cmd.Reply != nil {
		cmd.Reply <- err
	}
}

func (s *Service) step() {
	events := s.sim.Tick()
	snap := s.sim.BuildSnapshot()

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	if s.sink != nil && len(events) > 0 {
		s.sink.Publish(events)
	}
	if s.Hub != nil {
		s.Hub.Broadcast(api.ServerResponse{
			Type:     api.TypeSnapshot,
			Tick:     snap.Tick,
			Snapshot: snap,
			Events:   ToEventViews(events),
		})
	}
}
