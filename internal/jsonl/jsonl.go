// Package jsonl handles the JSON Lines files the ingest stages
// exchange: streaming line iteration, deterministic writing, and
// per-file manifests (checksum, row count, generator tag).
package jsonl

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// maxLineSize is the scanner buffer limit (16 MB), matching the widest
// rows seen in upstream dumps.
const maxLineSize = 16 << 20

// ForEachLine streams non-empty lines from r into fn. Iteration stops
// on the first fn error, which is returned as-is.
func ForEachLine(r io.Reader, fn func(line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// Writer emits one JSON object per line, creating parent directories on
// open. Rows are counted so batch operations can report totals.
type Writer struct {
	f    *os.File
	buf  *bufio.Writer
	rows int
}

// NewWriter creates (or truncates) the file at path.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &Writer{f: f, buf: bufio.NewWriter(f)}, nil
}

// Write marshals v and appends it as one line.
func (w *Writer) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	if _, err := w.buf.Write(data); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	w.rows++
	return nil
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int {
	return w.rows
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Manifest describes one emitted JSONL file.
type Manifest struct {
	File          string `json:"file"`
	SHA256        string `json:"sha256"`
	RowCount      int    `json:"row_count"`
	SchemaVersion string `json:"schema_version"`
	GeneratedBy   string `json:"generated_by"`
}

// WriteManifest hashes and counts the target file and writes the
// manifest JSON next to it (target path + ".manifest.json").
func WriteManifest(target, schemaVersion, generatedBy string) (Manifest, error) {
	sum, err := sha256File(target)
	if err != nil {
		return Manifest{}, err
	}
	rows, err := countRows(target)
	if err != nil {
		return Manifest{}, err
	}

	m := Manifest{
		File:          target,
		SHA256:        sum,
		RowCount:      rows,
		SchemaVersion: schemaVersion,
		GeneratedBy:   generatedBy,
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(target+".manifest.json", append(data, '\n'), 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func countRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n := 0
	err = ForEachLine(f, func([]byte) error {
		n++
		return nil
	})
	return n, err
}
