// Package encoding packs a row-major grid of content kinds into a compact
// string for checkpoints.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"gridbot.ai/internal/grid"
)

// EncodeContents run-length encodes kinds as base64(varint pairs), each pair
// being (content, run length).
func EncodeContents(kinds []grid.Content) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(kinds); {
		k := kinds[i]
		run := 1
		for i+run < len(kinds) && kinds[i+run] == k {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(k))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeContents reverses EncodeContents. want is the expected cell count;
// a stream that decodes to any other length is rejected.
func DecodeContents(b64 string, want int) ([]grid.Content, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]grid.Content, 0, want)
	for i := 0; i < len(raw); {
		k, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if k > uint64(grid.Other) {
			return nil, fmt.Errorf("unknown content %d", k)
		}
		if run == 0 || uint64(len(out))+run > uint64(want) {
			return nil, fmt.Errorf("run of %d overflows %d cells", run, want)
		}
		for j := uint64(0); j < run; j++ {
			out = append(out, grid.Content(k))
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("decoded %d cells, want %d", len(out), want)
	}
	return out, nil
}
