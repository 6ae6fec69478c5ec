package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"traffic-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() *domain.ReplaySession {
	s := &domain.ReplaySession{
		Seed:      -42,
		Rows:      15,
		Cols:      30,
		Vehicles:  50,
		Timestamp: 1760000000,
		LastTick:  812,
	}
	s.Record(10, domain.Coord{Row: 3, Col: 4}, true)
	s.Record(200, domain.Coord{Row: 3, Col: 4}, false)
	return s
}

func TestBinaryRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBinary(&buf, sampleSession()))

	headerSize := binary.Size(ReplayFileHeader{})
	recordSize := binary.Size(ToggleRecord{})
	assert.Equal(t, headerSize+2*recordSize, buf.Len())
	assert.Equal(t, MagicHeader, string(buf.Bytes()[:4]))

	got, err := readBinary(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleSession(), got)
}

func TestReadBinary_Rejects(t *testing.T) {
	var good bytes.Buffer
	require.NoError(t, writeBinary(&good, sampleSession()))

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"bad version", func(b []byte) []byte { b[4] = 9; return b }},
		{"truncated header", func(b []byte) []byte { return b[:10] }},
		{"truncated toggles", func(b []byte) []byte { return b[:len(b)-3] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), good.Bytes()...))
			_, err := readBinary(bytes.NewReader(data))
			assert.Error(t, err)
		})
	}
}

func TestReplayService_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "replays")
	svc, err := NewReplayService(dir)
	require.NoError(t, err)

	path, err := svc.Save(sampleSession())
	require.NoError(t, err)
	assert.Equal(t, FileExt, filepath.Ext(path))

	got, err := svc.Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleSession(), got)

	_, err = LoadFile(filepath.Join(dir, "missing.tsrp"))
	assert.Error(t, err)
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return f.closeErr
}

func TestWriteFile_ReportsCloseError(t *testing.T) {
	diskFull := errors.New("disk full")

	tests := []struct {
		name     string
		closeErr error
		wantErr  error
	}{
		{name: "clean close", closeErr: nil, wantErr: nil},
		{name: "close fails", closeErr: diskFull, wantErr: diskFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &failingCloser{closeErr: tt.closeErr}
			err := writeFile(f, sampleSession())

			assert.True(t, f.closed)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Positive(t, f.Len())
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWriteFile_WriteErrorWinsOverClose(t *testing.T) {
	f := &failingCloser{closeErr: errors.New("close")}
	bad := sampleSession()
	bad.Rows = 1 << 40

	err := writeFile(f, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not fit")
	assert.True(t, f.closed)
}
