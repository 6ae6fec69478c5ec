package domain

// VehicleState is the closed set of vehicle states.
type VehicleState uint8

const (
	StateSeekingPath VehicleState = iota
	StateMoving
	StateWaiting
	StateArrived
)

var vehicleStateToString = map[VehicleState]string{
	StateSeekingPath: "SEEKING_PATH",
	StateMoving:      "MOVING",
	StateWaiting:     "WAITING",
	StateArrived:     "ARRIVED",
}

func (s VehicleState) String() string {
	if v, ok := vehicleStateToString[s]; ok {
		return v
	}
	return "UNKNOWN"
}

// WaitReason explains why a vehicle did not move.
type WaitReason uint8

const (
	WaitNone WaitReason = iota
	WaitVehicle
	WaitPedestrian
	WaitSignal
	WaitNoPath
)

var waitReasonToString = map[WaitReason]string{
	WaitNone:       "",
	WaitVehicle:    "VEHICLE",
	WaitPedestrian: "PEDESTRIAN",
	WaitSignal:     "SIGNAL",
	WaitNoPath:     "NO_PATH",
}

func (w WaitReason) String() string {
	return waitReasonToString[w]
}

// Route is the cell sequence from origin to destination, both included.
// A route is never edited; replanning replaces it.
type Route []Coord

// ContainsAfter reports whether c appears at an index strictly after from.
func (r Route) ContainsAfter(c Coord, from int) bool {
	for i := from + 1; i < len(r); i++ {
		if r[i] == c {
			return true
		}
	}
	return false
}

// Destination is the last cell, zero value for an empty route.
func (r Route) Destination() Coord {
	if len(r) == 0 {
		return Coord{}
	}
	return r[len(r)-1]
}

// Vehicle is one autonomous car.
type Vehicle struct {
	ID          AgentID `json:"id"`
	At          Coord   `json:"at"`
	Destination Coord   `json:"destination"`

	Route    Route `json:"route,omitempty"`
	Progress int   `json:"progress"` // index of At inside Route

	State      VehicleState `json:"state"`
	WaitReason WaitReason   `json:"waitReason"`
	Heading    Direction    `json:"heading"`

	// ReadyAt is the first tick at which the next move is allowed.
	ReadyAt int `json:"readyAt"`
	// BlockedSince is the tick the current wait started, -1 when not waiting.
	BlockedSince int `json:"blockedSince"`
	// ReplanAttempts counts consecutive failed route searches.
	ReplanAttempts int `json:"replanAttempts"`
}

// NewVehicle creates a vehicle that still has to find its route.
func NewVehicle(id AgentID, at, destination Coord, readyAt int) *Vehicle {
	return &Vehicle{
		ID:           id,
		At:           at,
		Destination:  destination,
		State:        StateSeekingPath,
		ReadyAt:      readyAt,
		BlockedSince: -1,
	}
}

// NextStep returns the cell after the current one on the route.
func (v *Vehicle) NextStep() (Coord, bool) {
	if v.Progress+1 >= len(v.Route) {
		return Coord{}, false
	}
	return v.Route[v.Progress+1], true
}

// HasArrived reports whether the route is fully consumed.
func (v *Vehicle) HasArrived() bool {
	return len(v.Route) > 0 && v.Progress >= len(v.Route)-1
}

// AssignRoute installs a fresh route starting at the current cell.
func (v *Vehicle) AssignRoute(r Route) {
	v.Route = r
	v.Progress = 0
	v.ReplanAttempts = 0
	v.State = StateMoving
	v.WaitReason = WaitNone
	v.BlockedSince = -1
}

// DropRoute forces a replan on the next tick.
func (v *Vehicle) DropRoute() {
	v.Route = nil
	v.Progress = 0
	v.ReplanAttempts = 0
	v.State = StateSeekingPath
	v.WaitReason = WaitNone
}

// Wait records a blocked tick.
func (v *Vehicle) Wait(reason WaitReason, now int) {
	if v.State != StateWaiting || v.WaitReason != reason {
		v.BlockedSince = now
	}
	v.State = StateWaiting
	v.WaitReason = reason
}

// Advance moves the vehicle one step along its route.
func (v *Vehicle) Advance(now, cooldown int) {
	next := v.Route[v.Progress+1]
	v.Heading = v.At.DirectionTo(next)
	v.At = next
	v.Progress++
	v.ReadyAt = now + cooldown
	v.State = StateMoving
	v.WaitReason = WaitNone
	v.BlockedSince = -1
	if v.HasArrived() {
		v.State = StateArrived
	}
}

// RemainingRoute returns the cells still ahead of the vehicle.
func (v *Vehicle) RemainingRoute() Route {
	if v.Progress+1 >= len(v.Route) {
		return nil
	}
	return v.Route[v.Progress+1:]
}

func (s VehicleState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (w WaitReason) MarshalText() ([]byte, error)   { return []byte(w.String()), nil }
