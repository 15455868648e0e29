// Package schema enforces the minimal-schema contract on lexeme
// records regardless of producer: required fields, IPA normalization,
// POS coercion, gloss plain-texting, and stable-ID assignment.
package schema

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/heartmarshall/lexicore/internal/domain"
)

// Defaults supplies fallback values for required fields. Empty defaults
// leave the empty string in place (never null/absent).
type Defaults struct {
	Language    string
	Source      string
	LemmaStatus domain.Status
}

// Normalizer applies the minimal-schema contract. It carries no mutable
// state: construct one per configuration and share freely.
type Normalizer struct {
	defaults Defaults
}

// NewNormalizer creates a Normalizer with the given defaults.
func NewNormalizer(d Defaults) *Normalizer {
	return &Normalizer{defaults: d}
}

// Normalize applies the schema contract to r in place and returns it.
// The transformation is idempotent: Normalize(Normalize(r)) leaves r
// unchanged after the first application.
//
// It never invents a lemma: a record whose lemma is empty after
// trimming is the caller's to drop, not the normalizer's.
func (n *Normalizer) Normalize(r *domain.Record) *domain.Record {
	r.Lemma = strings.TrimSpace(r.Lemma)
	r.Language = fallback(r.Language, n.defaults.Language)
	r.Source = fallback(r.Source, n.defaults.Source)
	r.LemmaStatus = domain.Status(fallback(string(r.LemmaStatus), string(n.defaults.LemmaStatus)))

	// Populate both IPA fields from whichever is present. Neither
	// present means the producer did not attempt IPA: add nothing.
	if r.HasIPA() {
		raw := r.IPARaw
		if raw == "" {
			raw = r.IPA
		}
		r.IPARaw = raw
		r.IPA = NormalizeIPA(raw)
	}

	if r.POS != nil {
		r.POS = dropEmpty(r.POS)
	}

	// Producers that emit a bare "gloss" key get it promoted to the
	// HTML slot; the plain variant is derived only when absent.
	if r.GlossHTML == "" {
		if g := r.ExtraString("gloss"); g != "" {
			r.GlossHTML = g
		}
	}
	if r.GlossHTML != "" && r.GlossPlain == "" {
		r.GlossPlain = StripHTML(r.GlossHTML)
	}

	if r.ID == "" {
		r.ID = StableID(IDPrefix, IDTuple(r)...)
	}

	return r
}

// IDTuple is the fixed, ordered field tuple stable IDs derive from.
// Stage, script, and orthography are producer extras when present.
// Callers that need collision-free IDs within one output pass the tuple
// through an IDDeduper before normalization.
func IDTuple(r *domain.Record) []string {
	ipa := r.IPA
	if ipa == "" {
		ipa = r.IPARaw
	}
	return []string{
		r.Language,
		r.ExtraString("stage"),
		r.ExtraString("script"),
		r.Source,
		r.Lemma,
		r.ExtraString("orthography"),
		r.Root,
		ipa,
		r.Translit,
	}
}

func fallback(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return strings.TrimSpace(def)
	}
	return v
}

func dropEmpty(ss []string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// stressMarks are removed from normalized IPA: primary (ˈ) and
// secondary (ˌ) stress plus the plain apostrophe some sources use.
var stressMarks = strings.NewReplacer("ˈ", "", "ˌ", "", "'", "")

// NormalizeIPA canonicalizes an IPA transcription: strips a single
// /…/ or […] wrapper, applies Unicode NFC, removes all whitespace,
// and drops stress marks. Empty input yields "".
func NormalizeIPA(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '/' && s[len(s)-1] == '/') || (s[0] == '[' && s[len(s)-1] == ']') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), "")
	return stressMarks.Replace(s)
}

// CoercePOS turns a scalar, list, or absent POS value into an ordered
// list of non-empty strings. nil input yields an empty list.
func CoercePOS(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return dropEmpty(append([]string(nil), t...))
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}
		}
		return []string{strings.TrimSpace(t)}
	default:
		return []string{}
	}
}
