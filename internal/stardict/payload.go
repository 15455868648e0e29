package stardict

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrTruncatedPayload is returned when an (offset, length) pair reaches
// past the end of the decompressed data blob. Callers recover by
// skipping the entry; isolated corrupt entries are common in large
// scraped archives and must not block the rest of the stream.
var ErrTruncatedPayload = fmt.Errorf("payload range out of bounds")

// PayloadStore exposes random-access byte slices over the dictionary
// data blob. Compressed blobs are decompressed fully, once, before any
// slice is taken; the decompressed view lives for the archive's
// lifetime.
type PayloadStore struct {
	data []byte
}

// NewPayloadStore wraps raw payload bytes. If compressed is true, data
// is treated as a single gzip stream covering the whole blob and
// decompressed up front.
func NewPayloadStore(data []byte, compressed bool) (*PayloadStore, error) {
	if !compressed {
		return &PayloadStore{data: data}, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip payload: %w", err)
	}
	defer zr.Close()

	plain, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return &PayloadStore{data: plain}, nil
}

// OpenPayload reads a payload file, detecting gzip compression by the
// .dz / .gz extension.
func OpenPayload(path string) (*PayloadStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	compressed := strings.HasSuffix(path, ".dz") || strings.HasSuffix(path, ".gz")
	return NewPayloadStore(data, compressed)
}

// Size returns the decompressed payload length in bytes.
func (p *PayloadStore) Size() int {
	return len(p.data)
}

// Slice returns the byte range [offset, offset+length) of the
// decompressed view. Ranges past the end return ErrTruncatedPayload.
// The returned slice aliases the store's buffer and must not be
// modified.
func (p *PayloadStore) Slice(offset uint64, length uint32) ([]byte, error) {
	end := offset + uint64(length)
	if end < offset || end > uint64(len(p.data)) {
		return nil, fmt.Errorf("%w: [%d, %d) of %d bytes", ErrTruncatedPayload, offset, end, len(p.data))
	}
	return p.data[offset:end], nil
}
