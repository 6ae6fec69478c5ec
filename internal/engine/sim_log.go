package engine

import (
	"traffic-server/internal/domain"
	"traffic-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// logEvent writes a tick event to the structured log. Phase changes and
// pedestrians are chatty and stay at debug level.
func (s *Simulation) logEvent(e domain.Event) {
	entry := logger.Log.WithFields(logrus.Fields{
		"component": "sim_log",
		"tick":      e.Tick,
		"event":     e.Type.String(),
		"at":        e.At.String(),
	})
	if e.Agent != domain.NilAgentID {
		entry = entry.WithField("agent", e.Agent.String())
	}

	switch e.Type {
	case domain.EventSignalPhase:
		entry.WithField("phase", e.Phase.String()).Debug("Signal changed")
	case domain.EventPedestrianSpawned, domain.EventPedestrianCrossed, domain.EventVehicleSpawned, domain.EventVehicleArrived:
		entry.Debug(e.Text)
	case domain.EventSpawnFailed:
		entry.Warn(e.Text)
	default:
		entry.Info(e.Text)
	}
}
