package agent

import (
	"context"
	"errors"
	"math/rand"

	"traffic-server/internal/domain"
	"traffic-server/internal/engine"
	"traffic-server/pkg/api"
	"traffic-server/pkg/logger"
	"traffic-server/pkg/utils"

	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"
)

// pickAttempts bounds the random draws for a free road cell.
const pickAttempts = 50

type roadwork struct {
	at       domain.Coord
	placedAt int
}

// RoadworksBot is a headless viewer that opens and clears roadworks the way a
// user clicking on the map would. It only sees what any viewer sees: the
// snapshots pushed by the broadcaster. Its toggles go through the same
// command path and end up in the replay like any other input.
//
// Lifecycle:
//  1. NewRoadworksBot registers in the hub and gets its own inbox.
//  2. Run listens to the inbox in its own goroutine.
//  3. Every Every ticks an obstacle is put on a random free road cell.
//  4. Each obstacle is removed again after Lifetime ticks.
type RoadworksBot struct {
	ID       string
	Service  *engine.Service
	Inbox    chan api.ServerResponse
	Every    int
	Lifetime int

	rng        *rand.Rand
	active     []roadwork
	lastPlaced int
	log        *logrus.Entry
}

func NewRoadworksBot(svc *engine.Service, every, lifetime int, seed int64) *RoadworksBot {
	id := "roadworks-" + utils.GenerateID()
	return &RoadworksBot{
		ID:         id,
		Service:    svc,
		Inbox:      svc.Hub.Register(id),
		Every:      every,
		Lifetime:   lifetime,
		rng:        utils.NewRand(utils.DeriveSeed(seed, "roadworks")),
		lastPlaced: -every,
		log:        logger.Log.WithFields(logrus.Fields{"component": "roadworks", "session": id}),
	}
}

// Run reacts to snapshots until ctx ends or the hub drops the bot.
func (b *RoadworksBot) Run(ctx context.Context) {
	defer b.Service.Hub.Unregister(b.ID)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-b.Inbox:
			if !ok {
				return
			}
			if msg.Type == api.TypeSnapshot && msg.Snapshot != nil {
				b.react(ctx, msg.Snapshot)
			}
		}
	}
}

func (b *RoadworksBot) react(ctx context.Context, snap *api.Snapshot) {
	kept := b.active[:0]
	for _, rw := range b.active {
		if snap.Tick-rw.placedAt < b.Lifetime {
			kept = append(kept, rw)
			continue
		}
		if err := b.toggle(ctx, rw.at, false); err != nil {
			kept = append(kept, rw)
		}
	}
	b.active = kept

	if snap.Tick-b.lastPlaced < b.Every {
		return
	}
	at, ok := b.pickCell(snap)
	if !ok {
		return
	}
	if err := b.toggle(ctx, at, true); err != nil {
		return
	}
	b.active = append(b.active, roadwork{at: at, placedAt: snap.Tick})
	b.lastPlaced = snap.Tick
}

// pickCell draws a plain road cell with no vehicle on it. The snapshot may be
// a tick old; the simulation rejects what is no longer valid.
func (b *RoadworksBot) pickCell(snap *api.Snapshot) (domain.Coord, bool) {
	taken := mapset.New[domain.Coord]()
	for _, c := range snap.Cells {
		taken.Put(domain.Coord{Row: c.Row, Col: c.Col})
	}
	for _, v := range snap.Vehicles {
		taken.Put(domain.Coord{Row: v.Pos.Row, Col: v.Pos.Col})
	}

	for i := 0; i < pickAttempts; i++ {
		at := domain.Coord{Row: b.rng.Intn(snap.Grid.Rows), Col: b.rng.Intn(snap.Grid.Cols)}
		if !taken.Has(at) {
			return at, true
		}
	}
	return domain.Coord{}, false
}

func (b *RoadworksBot) toggle(ctx context.Context, at domain.Coord, add bool) error {
	err := b.Service.ToggleObstacle(ctx, at, add, b.ID)
	entry := b.log.WithFields(logrus.Fields{"at": at.String(), "add": add})
	switch {
	case err == nil:
		entry.Debug("Roadworks toggled")
	case errors.Is(err, domain.ErrInvalidCell):
		entry.WithError(err).Debug("Roadworks refused")
	default:
		entry.WithError(err).Warn("Roadworks toggle failed")
	}
	return err
}
