package schema

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// IDPrefix is the namespace tag for lexeme identifiers.
const IDPrefix = "lex"

// idHexLen is the digest prefix length kept in identifiers.
const idHexLen = 16

// StableID derives a deterministic identifier from an ordered field
// tuple: the fields are joined with '|', SHA-1 hashed, and the first 16
// hex digits are kept under the namespace prefix. Identical tuples
// always yield identical IDs; there is no randomness, clock, or process
// state involved.
func StableID(prefix string, fields ...string) string {
	payload := strings.Join(fields, "|")
	sum := sha1.Sum([]byte(payload))
	return prefix + ":" + hex.EncodeToString(sum[:])[:idHexLen]
}

// IDDeduper assigns stable IDs while guaranteeing uniqueness within one
// output file. When two distinct logical records produce the same tuple
// (homographs with no disambiguating field), the tuple is extended with
// an incrementing disambiguator until the ID is fresh.
//
// The deduper is scoped to a single output: create a new one per file.
type IDDeduper struct {
	prefix string
	seen   map[string]bool
}

// NewIDDeduper creates a deduper issuing IDs under the given prefix.
func NewIDDeduper(prefix string) *IDDeduper {
	return &IDDeduper{prefix: prefix, seen: make(map[string]bool)}
}

// Assign returns a unique stable ID for the field tuple, extending it
// with a disambiguator on collision.
func (d *IDDeduper) Assign(fields ...string) string {
	id := StableID(d.prefix, fields...)
	for n := 2; d.seen[id]; n++ {
		id = StableID(d.prefix, append(append([]string(nil), fields...), strconv.Itoa(n))...)
	}
	d.seen[id] = true
	return id
}
