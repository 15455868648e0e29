// Package stardict decodes StarDict-style binary dictionary archives:
// a textual metadata file (.ifo), a packed binary index (.idx), and a
// payload blob (.dict, optionally gzip-compressed as .dict.dz).
//
// The decoder is lazy and single-pass: the index is scanned record by
// record in file order, and payload bytes are sliced on demand from the
// (decompressed) blob. Isolated unreadable entries are skipped and
// counted; only structural problems abort a scan.
package stardict

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedOffsetWidth is returned when the metadata declares an
// index offset width other than 32 or 64 bits. This is fatal: the index
// cannot be interpreted.
var ErrUnsupportedOffsetWidth = fmt.Errorf("unsupported index offset width")

const (
	// offsetBitsKey declares the index offset width in the metadata block.
	offsetBitsKey = "idxoffsetbits"
	// wordCountKey carries the producer's entry-count hint.
	wordCountKey = "wordcount"
)

// Metadata is the parsed key=value block of an archive. It is immutable
// once parsed; one instance is created per archive.
type Metadata struct {
	values     map[string]string
	offsetBits int
}

// ParseMetadata parses a textual metadata block. Each non-empty line
// matching key=value populates the map; lines without '=' are ignored.
// The offset width field, when present, must be 32 or 64; absence
// defaults to 32.
func ParseMetadata(data []byte) (*Metadata, error) {
	m := &Metadata{
		values:     make(map[string]string),
		offsetBits: 32,
	}

	for _, line := range strings.Split(string(data), "\n") {
		key, val, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		m.values[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}

	if raw, ok := m.values[offsetBitsKey]; ok {
		bits, err := strconv.Atoi(raw)
		if err != nil || (bits != 32 && bits != 64) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedOffsetWidth, raw)
		}
		m.offsetBits = bits
	}

	return m, nil
}

// Get returns the raw metadata value for key ("" if absent).
func (m *Metadata) Get(key string) string {
	return m.values[key]
}

// OffsetBits returns the index offset width in bits (32 or 64).
func (m *Metadata) OffsetBits() int {
	return m.offsetBits
}

// WordCountHint returns the producer's declared entry count, or 0 when
// absent or unparseable. It is a sizing hint only; the index is
// authoritative.
func (m *Metadata) WordCountHint() int {
	n, err := strconv.Atoi(m.values[wordCountKey])
	if err != nil || n < 0 {
		return 0
	}
	return n
}
