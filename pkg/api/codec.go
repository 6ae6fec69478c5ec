package api

import (
	"fmt"

	"go.dedis.ch/protobuf"
)

// Frame is the compact binary form of a Snapshot, sent to viewers that
// connect with ?format=binary. Only what a renderer needs is kept.
type Frame struct {
	Tick        int64
	Rows        int32
	Cols        int32
	Cells       []FrameCell
	Signals     []FrameSignal
	Vehicles    []FrameVehicle
	Pedestrians []FramePedestrian
}

type FrameCell struct {
	Row  int32
	Col  int32
	Kind string
}

type FrameSignal struct {
	Row   int32
	Col   int32
	Phase string
}

type FrameVehicle struct {
	ID      string
	Row     int32
	Col     int32
	State   string
	Heading string
}

type FramePedestrian struct {
	Row      int32
	Col      int32
	Progress float64
}

// FrameFromSnapshot drops routes, stats and destinations.
func FrameFromSnapshot(s *Snapshot) *Frame {
	f := &Frame{
		Tick: int64(s.Tick),
		Rows: int32(s.Grid.Rows),
		Cols: int32(s.Grid.Cols),
	}
	for _, c := range s.Cells {
		f.Cells = append(f.Cells, FrameCell{Row: int32(c.Row), Col: int32(c.Col), Kind: c.Kind})
	}
	for _, sig := range s.Signals {
		f.Signals = append(f.Signals, FrameSignal{Row: int32(sig.Row), Col: int32(sig.Col), Phase: sig.Phase})
	}
	for _, v := range s.Vehicles {
		f.Vehicles = append(f.Vehicles, FrameVehicle{
			ID:      v.ID,
			Row:     int32(v.Pos.Row),
			Col:     int32(v.Pos.Col),
			State:   v.State,
			Heading: v.Heading,
		})
	}
	for _, p := range s.Pedestrians {
		f.Pedestrians = append(f.Pedestrians, FramePedestrian{Row: int32(p.Row), Col: int32(p.Col), Progress: p.Progress})
	}
	return f
}

// EncodeFrame serializes a frame with protobuf wire encoding.
func EncodeFrame(f *Frame) ([]byte, error) {
	data, err := protobuf.Encode(f)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

// DecodeFrame is the inverse of EncodeFrame.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := protobuf.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}
