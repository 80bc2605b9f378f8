// Package snapshot stores world checkpoints as zstd-compressed files: a JSON
// header line followed by a gob body.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	Tick    uint64 `json:"tick"`
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
	Seed    int64  `json:"seed"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	BinCapacity int `json:"bin_capacity"`
	SenseRadius int `json:"sense_radius"`
	StartEnergy int `json:"start_energy"`
	EnergyRegen int `json:"energy_regen"`

	// Contents is the row-major content grid, run-length encoded.
	Contents string   `json:"contents"`
	Cells    []CellV1 `json:"cells,omitempty"`

	Agents    []AgentV1 `json:"agents,omitempty"`
	NextAgent int       `json:"next_agent"`
}

// CellV1 carries the attributes of cells whose content alone does not
// describe them: garbage amounts, bin capacities and teleport activity.
type CellV1 struct {
	Row      int  `json:"row"`
	Col      int  `json:"col"`
	Amount   int  `json:"amount,omitempty"`
	Capacity int  `json:"capacity,omitempty"`
	Active   bool `json:"active,omitempty"`
}

type AgentV1 struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Pos     [2]int `json:"pos"`
	Carried int    `json:"carried"`
	Energy  int    `json:"energy"`
}

// WriteSnapshot writes snap to path through a temp file so a crash never
// leaves a truncated checkpoint behind.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeFile(tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeFile(path string, snap SnapshotV1) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	br, closeFn, err := open(path)
	if err != nil {
		return snap, err
	}
	defer closeFn()

	h, err := readHeader(br)
	if err != nil {
		return snap, err
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header != h {
		return snap, errors.New("snapshot header does not match body")
	}
	return snap, nil
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	br, closeFn, err := open(path)
	if err != nil {
		return Header{}, err
	}
	defer closeFn()
	return readHeader(br)
}

func open(path string) (*bufio.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return bufio.NewReaderSize(dec, 64*1024), func() {
		dec.Close()
		_ = f.Close()
	}, nil
}

func readHeader(br *bufio.Reader) (Header, error) {
	var h Header
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return h, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}
	return h, nil
}
