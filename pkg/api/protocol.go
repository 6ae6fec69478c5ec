package api

import (
	"encoding/json"
)

// --- SERVER -> CLIENT ---

// Message types sent over the websocket.
const (
	TypeWelcome  = "WELCOME"
	TypeSnapshot = "SNAPSHOT"
	TypeError    = "ERROR"
)

// ServerResponse is the root object the server sends to a viewer.
type ServerResponse struct {
	// Type is one of TypeWelcome, TypeSnapshot, TypeError.
	Type string `json:"type"`

	// Tick is the simulation tick the payload describes.
	Tick int `json:"tick"`

	// SessionID is only set on the welcome message.
	SessionID string `json:"sessionId,omitempty"`

	Snapshot *Snapshot   `json:"snapshot,omitempty"`
	Events   []EventView `json:"events,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// Snapshot is the read-only state of the whole simulation after one tick.
// Plain road cells are omitted; their directions follow from the parity of
// their row and column.
type Snapshot struct {
	Tick        int              `json:"tick"`
	Grid        GridMeta         `json:"grid"`
	Cells       []CellView       `json:"cells"`
	Signals     []SignalView     `json:"signals"`
	Vehicles    []VehicleView    `json:"vehicles"`
	Pedestrians []PedestrianView `json:"pedestrians"`
	Stats       StatsView        `json:"stats"`
}

// GridMeta carries the grid size so the client can prepare its canvas.
type GridMeta struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// CoordView is a cell address.
type CoordView struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// CellView describes a non-road cell.
type CellView struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Kind string `json:"kind"` // INTERSECTION, CROSSING, OBSTACLE
}

// SignalView is a traffic light as shown at the snapshot tick.
type SignalView struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Phase string `json:"phase"` // GREEN, YELLOW, RED
	Since int    `json:"since"`
}

// VehicleView is one car.
type VehicleView struct {
	ID          string      `json:"id"`
	Pos         CoordView   `json:"pos"`
	Destination CoordView   `json:"destination"`
	State       string      `json:"state"`
	WaitReason  string      `json:"waitReason,omitempty"`
	Heading     string      `json:"heading"`
	Route       []CoordView `json:"route,omitempty"` // remaining cells only
}

// PedestrianView is one walker on a crossing.
type PedestrianView struct {
	ID          string  `json:"id"`
	Row         int     `json:"row"`
	Col         int     `json:"col"`
	Orientation string  `json:"orientation"`
	Progress    float64 `json:"progress"`
}

// StatsView holds running counters since start.
type StatsView struct {
	Vehicles    int `json:"vehicles"`
	Waiting     int `json:"waiting"`
	Arrived     int `json:"arrived"`
	Reroutes    int `json:"reroutes"`
	Respawns    int `json:"respawns"`
	Pedestrians int `json:"pedestrians"`
}

// EventView is one thing that happened during a tick.
type EventView struct {
	Type  string `json:"type"`
	Tick  int    `json:"tick"`
	Agent string `json:"agent,omitempty"`
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Phase string `json:"phase,omitempty"`
	Text  string `json:"text,omitempty"`
}

// --- CLIENT -> SERVER ---

// ClientCommand is the root object of every message a viewer sends.
type ClientCommand struct {
	// Action is INIT, ADD_OBSTACLE or REMOVE_OBSTACLE.
	Action string `json:"action"`

	// Payload depends on Action.
	Payload json.RawMessage `json:"payload"`
}

// --- Payloads ---

// PositionPayload targets one cell (ADD_OBSTACLE, REMOVE_OBSTACLE).
type PositionPayload struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ObstacleRequest is the body of POST /api/obstacles.
type ObstacleRequest struct {
	Row int  `json:"row"`
	Col int  `json:"col"`
	Add bool `json:"add"`
}
