package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"traffic-server/internal/domain"
)

// maxToggles bounds the allocation for a corrupt header.
const maxToggles = 1 << 20

func (s *ReplayService) Load(path string) (*domain.ReplaySession, error) {
	return LoadFile(path)
}

// LoadFile reads a session from any path.
func LoadFile(path string) (*domain.ReplaySession, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readBinary(f)
}

func readBinary(r io.Reader) (*domain.ReplaySession, error) {
	var header ReplayFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicHeader {
		return nil, fmt.Errorf("invalid magic %q", header.Magic[:])
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}
	if header.ToggleCount < 0 || header.ToggleCount > maxToggles {
		return nil, fmt.Errorf("invalid toggle count %d", header.ToggleCount)
	}

	session := &domain.ReplaySession{
		Seed:      header.Seed,
		Timestamp: header.Timestamp,
		Rows:      int(header.Rows),
		Cols:      int(header.Cols),
		Vehicles:  int(header.Vehicles),
		LastTick:  int(header.LastTick),
		Toggles:   make([]domain.ReplayToggle, header.ToggleCount),
	}

	for i := range session.Toggles {
		var rec ToggleRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("failed to read toggle %d: %w", i, err)
		}
		session.Toggles[i] = domain.ReplayToggle{
			Tick: int(rec.Tick),
			At:   domain.Coord{Row: int(rec.Row), Col: int(rec.Col)},
			Add:  rec.Add != 0,
		}
	}

	return session, nil
}
