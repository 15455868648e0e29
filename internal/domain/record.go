package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is a single lexeme row as produced by a source adapter, before
// reconciliation. Known fields are typed; any other key a producer emits
// lands in Extra and must survive merging untouched.
//
// The zero value is a valid (empty) record. JSON encoding flattens Extra
// into the object, so the wire format stays the flat open-schema JSONL
// the adapters exchange.
type Record struct {
	ID          string
	Lemma       string
	Language    string
	Source      string
	SourceRef   string
	LemmaStatus Status
	Translit    string
	IPA         string
	IPARaw      string
	Root        string
	POS         []string
	GlossHTML   string
	GlossPlain  string
	Definition  string

	// Extra holds producer-specific fields that are not part of the
	// typed core. Values are kept as decoded (string, float64, bool,
	// []any, map[string]any).
	Extra map[string]any
}

// typedKeys are the JSON keys mapped to typed Record fields.
// Everything else round-trips through Extra.
var typedKeys = map[string]bool{
	"id": true, "lemma": true, "language": true, "source": true,
	"source_ref": true, "lemma_status": true, "translit": true,
	"ipa": true, "ipa_raw": true, "root": true, "pos": true,
	"gloss_html": true, "gloss_plain": true, "definition": true,
	"sources": true, "n_sources": true,
}

// Clone returns a deep copy of the record. POS and Extra are copied;
// nested slices/maps inside Extra values are shared.
func (r *Record) Clone() *Record {
	out := *r
	if r.POS != nil {
		out.POS = append([]string(nil), r.POS...)
	}
	if r.Extra != nil {
		out.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

// ExtraString returns the extra field key coerced to a string.
// Missing keys and nil values yield "".
func (r *Record) ExtraString(key string) string {
	if r.Extra == nil {
		return ""
	}
	return stringify(r.Extra[key])
}

// SetExtra stores a producer-specific field, allocating the map lazily.
func (r *Record) SetExtra(key string, v any) {
	if r.Extra == nil {
		r.Extra = make(map[string]any)
	}
	r.Extra[key] = v
}

// HasIPA reports whether any IPA-bearing field was supplied.
func (r *Record) HasIPA() bool {
	return r.IPA != "" || r.IPARaw != ""
}

// IsEmptyValue reports whether an extra-field value counts as empty
// for merge purposes: nil, the empty string, or an empty list.
func IsEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	default:
		return false
	}
}

// stringify renders an extra-field value by its string representation.
// nil yields "".
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// toMap builds the flat JSON object for the record. Required keys are
// always present (possibly empty); optional typed fields are emitted only
// when set; Extra keys are passed through, typed keys shadowing them.
func (r *Record) toMap() map[string]any {
	m := make(map[string]any, len(r.Extra)+16)
	for k, v := range r.Extra {
		if !typedKeys[k] {
			m[k] = v
		}
	}

	m["id"] = r.ID
	m["lemma"] = r.Lemma
	m["language"] = r.Language
	m["source"] = r.Source
	m["lemma_status"] = string(r.LemmaStatus)

	if r.SourceRef != "" {
		m["source_ref"] = r.SourceRef
	}
	if r.Translit != "" {
		m["translit"] = r.Translit
	}
	if r.IPA != "" || r.IPARaw != "" {
		m["ipa"] = r.IPA
		m["ipa_raw"] = r.IPARaw
	}
	if r.Root != "" {
		m["root"] = r.Root
	}
	if r.POS != nil {
		m["pos"] = r.POS
	}
	if r.GlossHTML != "" {
		m["gloss_html"] = r.GlossHTML
	}
	if r.GlossPlain != "" {
		m["gloss_plain"] = r.GlossPlain
	}
	if r.Definition != "" {
		m["definition"] = r.Definition
	}
	return m
}

// MarshalJSON encodes the record as a flat JSON object. Key order is
// the deterministic sorted order of encoding/json map marshalling.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toMap())
}

// UnmarshalJSON decodes a flat JSON object, routing known keys into
// typed fields and everything else into Extra. Scalar "pos" values are
// coerced to single-element lists; decoding never fails on shape
// surprises, only on invalid JSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{}
	for k, v := range raw {
		switch k {
		case "id":
			r.ID = stringify(v)
		case "lemma":
			r.Lemma = stringify(v)
		case "language":
			r.Language = stringify(v)
		case "source":
			r.Source = stringify(v)
		case "source_ref":
			r.SourceRef = stringify(v)
		case "lemma_status":
			r.LemmaStatus = Status(stringify(v))
		case "translit":
			r.Translit = stringify(v)
		case "ipa":
			r.IPA = stringify(v)
		case "ipa_raw":
			r.IPARaw = stringify(v)
		case "root":
			r.Root = stringify(v)
		case "gloss_html":
			r.GlossHTML = stringify(v)
		case "gloss_plain":
			r.GlossPlain = stringify(v)
		case "definition":
			r.Definition = stringify(v)
		case "pos":
			r.POS = coerceStringList(v)
		default:
			r.SetExtra(k, v)
		}
	}
	return nil
}

// coerceStringList accepts a scalar, a list, or nil and returns an
// ordered list of non-empty strings. nil input yields nil.
func coerceStringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s := stringify(item)
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		return out
	default:
		s := stringify(t)
		if s == "" {
			return []string{}
		}
		return []string{s}
	}
}

// Canonical is the reconciled record for one merge key: the merged
// Record plus the ordered, deduplicated set of producer tags that
// contributed to it. After finalization a Canonical is immutable.
type Canonical struct {
	Record

	Sources  []string
	NSources int
}

// MarshalJSON encodes the canonical record. On top of the Record
// encoding it always emits sources/n_sources, and the translit and ipa
// keys are always present (possibly empty) so consumers can distinguish
// "attempted, empty" from absent columns.
func (c *Canonical) MarshalJSON() ([]byte, error) {
	m := c.toMap()
	m["sources"] = c.Sources
	m["n_sources"] = c.NSources
	if _, ok := m["translit"]; !ok {
		m["translit"] = ""
	}
	if _, ok := m["ipa"]; !ok {
		m["ipa"] = ""
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes a canonical JSONL row.
func (c *Canonical) UnmarshalJSON(data []byte) error {
	if err := c.Record.UnmarshalJSON(data); err != nil {
		return err
	}
	if c.Extra != nil {
		if v, ok := c.Extra["sources"]; ok {
			c.Sources = coerceStringList(v)
			delete(c.Extra, "sources")
		}
		if v, ok := c.Extra["n_sources"]; ok {
			if f, isNum := v.(float64); isNum {
				c.NSources = int(f)
			}
			delete(c.Extra, "n_sources")
		}
	}
	return nil
}
