package domain

// EventType identifies something observable that happened during a tick.
type EventType uint8

const (
	EventUnknown EventType = iota
	EventSignalPhase
	EventVehicleSpawned
	EventVehicleArrived
	EventVehicleRerouted
	EventVehicleRespawned
	EventPedestrianSpawned
	EventPedestrianCrossed
	EventObstacleToggled
	EventSpawnFailed
)

var eventStringToType = map[string]EventType{
	"SIGNAL_PHASE":       EventSignalPhase,
	"VEHICLE_SPAWNED":    EventVehicleSpawned,
	"VEHICLE_ARRIVED":    EventVehicleArrived,
	"VEHICLE_REROUTED":   EventVehicleRerouted,
	"VEHICLE_RESPAWNED":  EventVehicleRespawned,
	"PEDESTRIAN_SPAWNED": EventPedestrianSpawned,
	"PEDESTRIAN_CROSSED": EventPedestrianCrossed,
	"OBSTACLE_TOGGLED":   EventObstacleToggled,
	"SPAWN_FAILED":       EventSpawnFailed,
}

var eventTypeToString = map[EventType]string{}

func init() {
	for name, t := range eventStringToType {
		eventTypeToString[t] = name
	}
}

func (e EventType) String() string {
	if val, ok := eventTypeToString[e]; ok {
		return val
	}
	return "UNKNOWN"
}

// Event is one entry of a tick's outcome.
type Event struct {
	Type  EventType `json:"type"`
	Tick  int       `json:"tick"`
	Agent AgentID   `json:"agent,omitempty"`
	At    Coord     `json:"at"`
	Phase Phase     `json:"phase"`
	Text  string    `json:"text"`
}

func (e EventType) MarshalText() ([]byte, error) { return []byte(e.String()), nil }
