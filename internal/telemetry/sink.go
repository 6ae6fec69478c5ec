package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"traffic-server/internal/domain"
	"traffic-server/internal/engine"
	"traffic-server/pkg/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// DefaultPrefix is the root of every published topic.
const DefaultPrefix = "traffic"

// Sink receives the events of every tick.
type Sink interface {
	Publish(events []domain.Event)
	Close()
}

// Nop discards everything. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish([]domain.Event) {}
func (Nop) Close()                 {}

// publisher is the slice of mqtt.Client the sink needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes each event as JSON to <prefix>/events/<type>.
// Pedestrian events are frequent and skipped.
type MQTTSink struct {
	client publisher
	prefix string
	log    *logrus.Entry
}

// Topic returns the topic an event type is published to.
func Topic(prefix, eventType string) string {
	return prefix + "/events/" + strings.ToLower(eventType)
}

// Dial connects to broker (e.g. tcp://localhost:1883).
func Dial(broker, clientID, prefix string) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, token.Error())
	}
	return newMQTTSink(client, prefix), nil
}

func newMQTTSink(client publisher, prefix string) *MQTTSink {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &MQTTSink{
		client: client,
		prefix: prefix,
		log:    logger.Component("telemetry"),
	}
}

// Publish does not wait for delivery; the simulation loop must not block on
// the broker.
func (s *MQTTSink) Publish(events []domain.Event) {
	published := lo.Reject(events, func(e domain.Event, _ int) bool {
		return e.Type == domain.EventPedestrianSpawned || e.Type == domain.EventPedestrianCrossed
	})
	for _, view := range engine.ToEventViews(published) {
		payload, err := json.Marshal(view)
		if err != nil {
			s.log.WithError(err).Warn("Event encoding failed")
			continue
		}
		s.client.Publish(Topic(s.prefix, view.Type), 0, false, payload)
	}
}

func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}
