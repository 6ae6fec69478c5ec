package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"traffic-server/internal/domain"
	"traffic-server/internal/version"
)

const (
	MagicHeader string = `TSRP`
	Version1    uint32 = version.ReplayFormat
	// FileExt is the extension of recorded sessions.
	FileExt = ".tsrp"
)

// ReplayFileHeader is the fixed-size file header. It holds only arrays and
// numbers so binary.Write can write it in one call.
type ReplayFileHeader struct {
	Magic       [4]byte
	Version     uint32
	Seed        int64
	Timestamp   int64
	Rows        int32
	Cols        int32
	Vehicles    int32
	LastTick    int32
	ToggleCount int32
}

// ToggleRecord is one obstacle toggle on disk.
type ToggleRecord struct {
	Tick int32
	Row  int32
	Col  int32
	Add  uint8
}

// ReplayService stores sessions as files in one directory.
type ReplayService struct {
	SaveDir string
}

func NewReplayService(dir string) (*ReplayService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create replay dir %s: %w", dir, err)
	}
	return &ReplayService{SaveDir: dir}, nil
}

// Save writes the session and returns the file path.
func (s *ReplayService) Save(session *domain.ReplaySession) (string, error) {
	filename := fmt.Sprintf("replay_%d_%dx%d_%d%s", session.Seed, session.Rows, session.Cols, session.Timestamp, FileExt)
	path := filepath.Join(s.SaveDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := writeFile(f, session); err != nil {
		return "", fmt.Errorf("write replay %s: %w", path, err)
	}
	return path, nil
}

// writeFile writes and closes f. A failed close counts as a failed write.
func writeFile(f io.WriteCloser, session *domain.ReplaySession) (err error) {
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	if err := writeBinary(w, session); err != nil {
		return err
	}
	return w.Flush()
}

func writeBinary(w io.Writer, s *domain.ReplaySession) error {
	for _, v := range []int{s.Rows, s.Cols, s.Vehicles, s.LastTick, len(s.Toggles)} {
		if v > math.MaxInt32 || v < math.MinInt32 {
			return fmt.Errorf("value %d does not fit the replay format", v)
		}
	}

	header := ReplayFileHeader{
		Version:     Version1,
		Seed:        s.Seed,
		Timestamp:   s.Timestamp,
		Rows:        int32(s.Rows),
		Cols:        int32(s.Cols),
		Vehicles:    int32(s.Vehicles),
		LastTick:    int32(s.LastTick),
		ToggleCount: int32(len(s.Toggles)),
	}
	copy(header.Magic[:], MagicHeader)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, t := range s.Toggles {
		rec := ToggleRecord{
			Tick: int32(t.Tick),
			Row:  int32(t.At.Row),
			Col:  int32(t.At.Col),
		}
		if t.Add {
			rec.Add = 1
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("failed to write toggle %d: %w", i, err)
		}
	}
	return nil
}
