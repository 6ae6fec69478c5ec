package domain

import (
	"fmt"
	"strconv"
)

// AgentID packs the agent kind and a sequence index into one value.
//
//	[ Kind (8) | Index (56) ]
//
// Within one kind, IDs order by spawn sequence; the vehicle phase relies on
// that ordering for its right-of-way tie-break.
type AgentID uint64

// AgentKind is the type part of an AgentID.
type AgentKind uint8

const (
	AgentUnknown AgentKind = iota
	AgentVehicle
	AgentPedestrian
)

const (
	bitsIndex  = 56
	bitsKind   = 8
	shiftKind  = bitsIndex
	maskIndex  = (1 << bitsIndex) - 1
	maskKind   = (1 << bitsKind) - 1
	NilAgentID = AgentID(0)
)

// PackAgentID builds an AgentID. Index bits above 56 are dropped.
func PackAgentID(kind AgentKind, index uint64) AgentID {
	return AgentID((uint64(kind)&maskKind)<<shiftKind | index&maskIndex)
}

func (id AgentID) Kind() AgentKind {
	return AgentKind((id >> shiftKind) & maskKind)
}

func (id AgentID) Index() uint64 {
	return uint64(id & maskIndex)
}

// MarshalJSON writes the ID as a decimal string; JS clients lose precision on
// large integers.
func (id AgentID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(id), 10) + `"`), nil
}

// UnmarshalJSON accepts both a quoted and a bare number.
func (id *AgentID) UnmarshalJSON(data []byte) error {
	if len(data) > 1 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	val, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return err
	}
	*id = AgentID(val)
	return nil
}

func (id AgentID) String() string {
	switch id.Kind() {
	case AgentVehicle:
		return fmt.Sprintf("car#%d", id.Index())
	case AgentPedestrian:
		return fmt.Sprintf("ped#%d", id.Index())
	}
	return fmt.Sprintf("agent#%d", uint64(id))
}

// ParseAgentID parses the decimal form produced by MarshalJSON.
func ParseAgentID(s string) (AgentID, error) {
	val, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return NilAgentID, fmt.Errorf("parse agent id %q: %w", s, err)
	}
	return AgentID(val), nil
}

// IDSequence hands out increasing IDs for one agent kind.
type IDSequence struct {
	kind AgentKind
	next uint64
}

func NewIDSequence(kind AgentKind) *IDSequence {
	return &IDSequence{kind: kind, next: 1}
}

// Next returns a fresh ID.
func (s *IDSequence) Next() AgentID {
	id := PackAgentID(s.kind, s.next)
	s.next++
	return id
}
