package domain

import "strings"

// ActionType is the internal code of a command sent by a viewer.
type ActionType uint8

const (
	ActionUnknown ActionType = iota
	ActionInit
	ActionAddObstacle
	ActionRemoveObstacle
)

var actionStringToCmd = map[string]ActionType{
	"INIT":            ActionInit,
	"ADD_OBSTACLE":    ActionAddObstacle,
	"REMOVE_OBSTACLE": ActionRemoveObstacle,
}

var actionCmdToString = map[ActionType]string{
	ActionInit:           "INIT",
	ActionAddObstacle:    "ADD_OBSTACLE",
	ActionRemoveObstacle: "REMOVE_OBSTACLE",
}

// ParseAction converts the wire name into an ActionType, case-insensitive.
func ParseAction(s string) ActionType {
	if val, ok := actionStringToCmd[strings.ToUpper(s)]; ok {
		return val
	}
	return ActionUnknown
}

func (a ActionType) String() string {
	if val, ok := actionCmdToString[a]; ok {
		return val
	}
	return "UNKNOWN"
}
