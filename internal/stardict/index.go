package stardict

import (
	"bytes"
	"encoding/binary"
)

// IndexEntry addresses one dictionary entry: the headword and the byte
// range of its payload in the decompressed data blob.
type IndexEntry struct {
	Word   string
	Offset uint64
	Length uint32
}

// IndexScanner streams a packed binary index into IndexEntry values in
// file order. Each record is a NUL-terminated UTF-8 word followed by a
// big-endian offset (4 or 8 bytes, per the archive metadata) and a
// big-endian 4-byte length.
//
// Scanning stops cleanly at end of buffer. A truncated trailing record
// (no NUL before the end, or fewer numeric bytes than a full record)
// ends the stream without error: producers are known to truncate
// fixtures, and a dangling tail is end-of-data, not corruption.
type IndexScanner struct {
	data       []byte
	pos        int
	offsetSize int
	entry      IndexEntry
}

// NewIndexScanner creates a scanner over the raw index bytes.
// offsetBits must be 32 or 64, as validated by ParseMetadata.
func NewIndexScanner(data []byte, offsetBits int) *IndexScanner {
	size := 4
	if offsetBits == 64 {
		size = 8
	}
	return &IndexScanner{data: data, offsetSize: size}
}

// Scan advances to the next index record. It returns false at end of
// data; there is no error state.
func (s *IndexScanner) Scan() bool {
	if s.pos >= len(s.data) {
		return false
	}

	nul := bytes.IndexByte(s.data[s.pos:], 0)
	if nul < 0 {
		// Dangling word bytes with no terminator: treat as end-of-data.
		s.pos = len(s.data)
		return false
	}
	word := s.data[s.pos : s.pos+nul]
	rest := s.pos + nul + 1

	if len(s.data)-rest < s.offsetSize+4 {
		// Word terminated but the numeric tail is short: end-of-data.
		s.pos = len(s.data)
		return false
	}

	var offset uint64
	if s.offsetSize == 8 {
		offset = binary.BigEndian.Uint64(s.data[rest:])
	} else {
		offset = uint64(binary.BigEndian.Uint32(s.data[rest:]))
	}
	length := binary.BigEndian.Uint32(s.data[rest+s.offsetSize:])

	s.entry = IndexEntry{
		Word:   string(word),
		Offset: offset,
		Length: length,
	}
	s.pos = rest + s.offsetSize + 4
	return true
}

// Entry returns the record produced by the last successful Scan.
func (s *IndexScanner) Entry() IndexEntry {
	return s.entry
}
