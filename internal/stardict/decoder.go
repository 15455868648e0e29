package stardict

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RawEntry is one decoded dictionary entry. The payload may contain
// markup; decoding it to plain text is the normalizer's job, not the
// decoder's.
type RawEntry struct {
	Word    string
	Payload []byte
}

// Text returns the payload decoded as UTF-8 with invalid byte sequences
// replaced. It never fails.
func (e RawEntry) Text() string {
	return strings.ToValidUTF8(string(e.Payload), "�")
}

// Stats counts decode outcomes for one scan.
type Stats struct {
	// Entries is the number of entries yielded so far.
	Entries int
	// SkippedTruncated is the number of index entries whose payload
	// range fell outside the data blob and were skipped.
	SkippedTruncated int
}

// Decoder composes metadata, index scanner, and payload store into a
// lazy, finite, single-pass sequence of RawEntry in index order.
// No entry is decoded twice; the index is the dominant working set.
type Decoder struct {
	meta  *Metadata
	idx   *IndexScanner
	store *PayloadStore
	entry RawEntry
	stats Stats
}

// NewDecoder creates a decoder over an already-parsed metadata block,
// raw index bytes, and a payload store.
func NewDecoder(meta *Metadata, index []byte, store *PayloadStore) *Decoder {
	return &Decoder{
		meta:  meta,
		idx:   NewIndexScanner(index, meta.OffsetBits()),
		store: store,
	}
}

// Open discovers the .ifo/.idx/.dict(.dz) triplet in a package
// directory and builds a decoder over it.
func Open(dir string) (*Decoder, error) {
	ifo, err := findOne(dir, ".ifo")
	if err != nil {
		return nil, err
	}
	idxPath, err := findOne(dir, ".idx")
	if err != nil {
		return nil, err
	}
	dictPath, err := findPayload(dir)
	if err != nil {
		return nil, err
	}

	metaBytes, err := os.ReadFile(ifo)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	meta, err := ParseMetadata(metaBytes)
	if err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", ifo, err)
	}

	index, err := os.ReadFile(idxPath)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	store, err := OpenPayload(dictPath)
	if err != nil {
		return nil, err
	}

	return NewDecoder(meta, index, store), nil
}

// Scan advances to the next readable entry. Entries whose payload range
// is out of bounds are skipped and counted; Scan returns false only at
// end of index.
func (d *Decoder) Scan() bool {
	for d.idx.Scan() {
		ie := d.idx.Entry()
		payload, err := d.store.Slice(ie.Offset, ie.Length)
		if err != nil {
			d.stats.SkippedTruncated++
			continue
		}
		d.entry = RawEntry{Word: ie.Word, Payload: payload}
		d.stats.Entries++
		return true
	}
	return false
}

// Entry returns the entry produced by the last successful Scan.
func (d *Decoder) Entry() RawEntry {
	return d.entry
}

// Metadata returns the archive metadata.
func (d *Decoder) Metadata() *Metadata {
	return d.meta
}

// Stats returns decode counters accumulated so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// findOne locates exactly the first file with the given extension in dir.
func findOne(dir, ext string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no %s file in %s", ext, dir)
	}
	return matches[0], nil
}

// findPayload locates the .dict or .dict.dz blob in dir.
func findPayload(dir string) (string, error) {
	for _, pattern := range []string{"*.dict.dz", "*.dict"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err == nil && len(matches) > 0 {
			return matches[0], nil
		}
	}
	return "", fmt.Errorf("no .dict/.dict.dz file in %s", dir)
}
