package stardict

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildArchive assembles an in-memory archive from word→definition
// pairs and returns the index and payload buffers.
func buildArchive(t *testing.T, offsetBits int, defs [][2]string) (index, payload []byte) {
	t.Helper()

	var entries []IndexEntry
	for _, d := range defs {
		body := []byte(d[1])
		entries = append(entries, IndexEntry{
			Word:   d[0],
			Offset: uint64(len(payload)),
			Length: uint32(len(body)),
		})
		payload = append(payload, body...)
	}
	return buildIndex(t, offsetBits, entries), payload
}

func decodeAll(d *Decoder) [][2]string {
	var out [][2]string
	for d.Scan() {
		e := d.Entry()
		out = append(out, [2]string{e.Word, e.Text()})
	}
	return out
}

func TestDecoderRoundTrip(t *testing.T) {
	defs := [][2]string{
		{"rex", "<i>noun</i> king"},
		{"regina", "<i>noun</i> queen"},
		{"regere", "<i>verb</i> to rule"},
	}

	for _, bits := range []int{32, 64} {
		meta, err := ParseMetadata([]byte("idxoffsetbits=" + map[int]string{32: "32", 64: "64"}[bits]))
		if err != nil {
			t.Fatalf("metadata: %v", err)
		}

		index, payload := buildArchive(t, bits, defs)
		store, err := NewPayloadStore(payload, false)
		if err != nil {
			t.Fatalf("payload store: %v", err)
		}

		got := decodeAll(NewDecoder(meta, index, store))
		if len(got) != len(defs) {
			t.Fatalf("offsetBits=%d: decoded %d entries, want %d", bits, len(got), len(defs))
		}
		for i := range defs {
			if got[i] != defs[i] {
				t.Errorf("offsetBits=%d entry %d = %v, want %v", bits, i, got[i], defs[i])
			}
		}
	}
}

func TestDecoderSkipsTruncatedPayload(t *testing.T) {
	meta, err := ParseMetadata(nil)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}

	index, payload := buildArchive(t, 32, [][2]string{
		{"good", "fine entry"},
		{"bad", "clipped"},
		{"tail", "last entry"},
	})
	// Clip the payload so the middle entry's range runs past the end,
	// then re-point the final entry inside the remaining bytes.
	entries := scanAll(NewIndexScanner(index, 32))
	entries[2].Offset = 0
	entries[2].Length = 4
	index = buildIndex(t, 32, entries)
	payload = payload[:len("fine entry")+3]

	store, err := NewPayloadStore(payload, false)
	if err != nil {
		t.Fatalf("payload store: %v", err)
	}

	d := NewDecoder(meta, index, store)
	got := decodeAll(d)

	if len(got) != 2 {
		t.Fatalf("decoded %d entries, want 2 (bad one skipped): %v", len(got), got)
	}
	if got[0][0] != "good" || got[1][0] != "tail" {
		t.Errorf("decoded words %q, %q; want good, tail", got[0][0], got[1][0])
	}

	stats := d.Stats()
	if stats.SkippedTruncated != 1 {
		t.Errorf("SkippedTruncated = %d, want 1", stats.SkippedTruncated)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
}

func TestRawEntryTextReplacesInvalidUTF8(t *testing.T) {
	e := RawEntry{Word: "x", Payload: []byte{'o', 'k', 0xff, 0xfe, '!'}}
	got := e.Text()
	if !strings.HasPrefix(got, "ok") || !strings.HasSuffix(got, "!") {
		t.Fatalf("Text() = %q, want ok…! shape", got)
	}
	if strings.ContainsRune(got, 0xff) {
		t.Errorf("Text() = %q still contains invalid bytes", got)
	}
}

func TestOpenDiscoversTriplet(t *testing.T) {
	dir := t.TempDir()

	index, payload := buildArchive(t, 32, [][2]string{
		{"verbum", "word"},
		{"vox", "voice"},
	})

	writeFile := func(name string, data []byte) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeFile("latin.ifo", []byte("bookname=Latin\nwordcount=2\n"))
	writeFile("latin.idx", index)
	writeFile("latin.dict.dz", gzipBytes(t, payload))

	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if hint := d.Metadata().WordCountHint(); hint != 2 {
		t.Errorf("WordCountHint() = %d, want 2", hint)
	}

	got := decodeAll(d)
	if len(got) != 2 || got[0][1] != "word" || got[1][1] != "voice" {
		t.Errorf("decoded %v, want verbum/word vox/voice", got)
	}
}

func TestOpenMissingFiles(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("Open on empty dir: expected error, got nil")
	}
}
