package systems

import (
	"math/rand"
	"sort"

	"traffic-server/internal/domain"
	"traffic-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// PedestrianSpawner owns every pedestrian. At most one walks a crossing at a
// time.
type PedestrianSpawner struct {
	crossings []domain.Crossing
	speed     float64
	spawnProb float64

	rng    *rand.Rand
	ids    *domain.IDSequence
	active map[domain.Coord]*domain.Pedestrian
	log    *logrus.Entry
}

// NewPedestrianSpawner takes the crossing list once; crossings never move.
func NewPedestrianSpawner(crossings []domain.Crossing, speed, spawnProb float64, rng *rand.Rand) *PedestrianSpawner {
	return &PedestrianSpawner{
		crossings: crossings,
		speed:     speed,
		spawnProb: spawnProb,
		rng:       rng,
		ids:       domain.NewIDSequence(domain.AgentPedestrian),
		active:    make(map[domain.Coord]*domain.Pedestrian),
		log:       logger.Log.WithField("component", "pedestrians"),
	}
}

// Step advances walkers, removes those past the far side, then rolls a spawn
// for every crossing in order. A crossing spawns only when it is empty and
// vehicleAt reports no car on it. One draw is taken per crossing per tick
// whether or not it can spawn, which keeps the stream independent of traffic.
func (p *PedestrianSpawner) Step(now int, vehicleAt func(domain.Coord) bool) []domain.Event {
	var events []domain.Event

	for _, cr := range p.crossings {
		ped, ok := p.active[cr.At]
		if !ok {
			continue
		}
		ped.Progress += p.speed
		if ped.HasCrossed() {
			delete(p.active, cr.At)
			events = append(events, domain.Event{
				Type:  domain.EventPedestrianCrossed,
				Tick:  now,
				Agent: ped.ID,
				At:    cr.At,
			})
		}
	}

	for _, cr := range p.crossings {
		roll := p.rng.Float64()
		if _, busy := p.active[cr.At]; busy {
			continue
		}
		if vehicleAt != nil && vehicleAt(cr.At) {
			continue
		}
		if roll >= p.spawnProb {
			continue
		}
		ped := &domain.Pedestrian{
			ID:          p.ids.Next(),
			Crossing:    cr.At,
			Orientation: cr.Orientation,
		}
		p.active[cr.At] = ped
		p.log.WithFields(logrus.Fields{"tick": now, "id": ped.ID.String(), "at": cr.At.String()}).Debug("Pedestrian spawned")
		events = append(events, domain.Event{
			Type:  domain.EventPedestrianSpawned,
			Tick:  now,
			Agent: ped.ID,
			At:    cr.At,
		})
	}
	return events
}

// IsCrossingOccupied reports whether a pedestrian is on c.
func (p *PedestrianSpawner) IsCrossingOccupied(c domain.Coord) bool {
	_, ok := p.active[c]
	return ok
}

// Pedestrians returns copies of the walkers, ordered by crossing.
func (p *PedestrianSpawner) Pedestrians() []domain.Pedestrian {
	out := make([]domain.Pedestrian, 0, len(p.active))
	for _, ped := range p.active {
		out = append(out, *ped)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Crossing.Less(out[j].Crossing) })
	return out
}
