// Package merge reconciles lexeme records from multiple independent
// producers into one canonical record per semantic key. Field conflicts
// resolve by the lemma-status quality ranking, list fields union in
// first-seen order, and every canonical record gets a stable
// content-derived identifier at finalization.
package merge

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/heartmarshall/lexicore/internal/domain"
	"github.com/heartmarshall/lexicore/internal/schema"
)

// maxLineSize is the buffer size for bufio.Scanner (16 MB).
const maxLineSize = 16 << 20

// Key identifies a canonical record across sources. The default shape
// is (normalized lemma, normalized root), but callers may produce any
// two-element tuple. Keys are computed once per raw record and never
// recomputed after the record enters the accumulator.
type Key [2]string

// KeyFunc maps a raw record to its merge key.
type KeyFunc func(*domain.Record) Key

// LemmaRootKey is the default key function: case-normalized lemma plus
// case-normalized root. The record's stored root keeps its original
// form; only the grouping key is normalized.
func LemmaRootKey(r *domain.Record) Key {
	return Key{domain.NormalizeText(r.Lemma), domain.NormalizeText(r.Root)}
}

// Source is one producer's JSONL record stream.
type Source struct {
	// Tag identifies the producer in the canonical sources list.
	Tag string
	// R streams the producer's records, one JSON object per line.
	R io.Reader
}

// MalformedRecordError reports an unparseable source line. Outside
// strict mode these are counted and skipped, never returned.
type MalformedRecordError struct {
	Source string
	Line   int
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("source %s line %d: malformed record: %v", e.Source, e.Line, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Stats counts merge outcomes. Every dropped row is accounted for;
// nothing disappears without a counter.
type Stats struct {
	RowsIn     int
	Malformed  int
	EmptyLemma int
	RowsOut    int
}

// Options configure an Engine.
type Options struct {
	// Key maps records to merge keys. Defaults to LemmaRootKey.
	Key KeyFunc
	// ListFields names extra (untyped) fields unioned as ordered,
	// deduplicated lists instead of first-wins scalars.
	ListFields []string
	// CollectSourceRefs gathers each record's source_ref into a
	// "source_refs" list on the canonical record.
	CollectSourceRefs bool
	// Strict fails the whole run on the first malformed line instead
	// of counting and skipping it.
	Strict bool
	// Normalizer fills required fields and assigns IDs at
	// finalization. Defaults to a normalizer with empty defaults.
	Normalizer *schema.Normalizer
	// Logger receives per-source progress. Defaults to slog.Default.
	Logger *slog.Logger
}

// Engine merges N source streams into canonical records. An engine is
// single-use: it exclusively owns its accumulator for the duration of
// one Merge call.
type Engine struct {
	opts       Options
	listFields map[string]bool
	acc        map[Key]*domain.Canonical
	tagged     map[Key]map[string]bool
	stats      Stats
}

// New creates an Engine for one merge run.
func New(opts Options) *Engine {
	if opts.Key == nil {
		opts.Key = LemmaRootKey
	}
	if opts.Normalizer == nil {
		opts.Normalizer = schema.NewNormalizer(schema.Defaults{})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	lf := make(map[string]bool, len(opts.ListFields))
	for _, f := range opts.ListFields {
		lf[f] = true
	}

	return &Engine{
		opts:       opts,
		listFields: lf,
		acc:        make(map[Key]*domain.Canonical),
		tagged:     make(map[Key]map[string]bool),
	}
}

// Merge consumes every source stream fully, reconciles records by key,
// and returns finalized canonical records sorted by key. Sources merge
// commutatively except for the documented tie-break rules, so stream
// arrival order does not change tie-break-insensitive output.
func (e *Engine) Merge(sources []Source) ([]*domain.Canonical, Stats, error) {
	for _, src := range sources {
		if err := e.consume(src); err != nil {
			return nil, e.stats, err
		}
	}

	out := e.finalize()
	e.stats.RowsOut = len(out)
	return out, e.stats, nil
}

// consume streams one source's records into the accumulator.
func (e *Engine) consume(src Source) error {
	scanner := bufio.NewScanner(src.R)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	rows := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec domain.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			e.stats.Malformed++
			if e.opts.Strict {
				return &MalformedRecordError{Source: src.Tag, Line: line, Err: err}
			}
			continue
		}

		e.stats.RowsIn++
		rows++
		e.apply(src.Tag, &rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("source %s: scanner error: %w", src.Tag, err)
	}

	e.opts.Logger.Debug("source consumed",
		slog.String("source", src.Tag),
		slog.Int("rows", rows),
	)
	return nil
}

// apply reconciles one raw record into the accumulator.
func (e *Engine) apply(tag string, rec *domain.Record) {
	rec.Lemma = strings.TrimSpace(rec.Lemma)
	if rec.Lemma == "" {
		e.stats.EmptyLemma++
		return
	}

	key := e.opts.Key(rec)

	cur, ok := e.acc[key]
	if !ok {
		cur = &domain.Canonical{Record: *rec.Clone()}
		// The seed's list fields go through the same union path as
		// later sightings, so a declared field seen once is still a
		// list and self-duplicates collapse immediately.
		cur.POS = dedupeStrings(cur.POS)
		for k := range e.listFields {
			if v, present := cur.Extra[k]; present {
				delete(cur.Extra, k)
				e.unionExtraList(cur, k, v)
			}
		}
		e.acc[key] = cur
		e.tagged[key] = make(map[string]bool, 2)
	} else {
		e.reconcile(cur, rec)
	}

	if !e.tagged[key][tag] {
		e.tagged[key][tag] = true
		cur.Sources = append(cur.Sources, tag)
	}
	if e.opts.CollectSourceRefs && rec.SourceRef != "" {
		e.unionExtraList(cur, "source_refs", rec.SourceRef)
	}
}

// reconcile folds an incoming record into the canonical one.
// lemmaStatus takes the maximum tier (ties keep the current value);
// scalars are first-wins-unless-empty; list fields union in first-seen
// order without re-sorting.
func (e *Engine) reconcile(cur *domain.Canonical, rec *domain.Record) {
	cur.LemmaStatus = domain.BestStatus(cur.LemmaStatus, rec.LemmaStatus)

	pickString(&cur.Translit, rec.Translit)
	pickString(&cur.IPA, rec.IPA)
	pickString(&cur.IPARaw, rec.IPARaw)
	pickString(&cur.Root, rec.Root)
	pickString(&cur.GlossPlain, rec.GlossPlain)
	pickString(&cur.GlossHTML, rec.GlossHTML)
	pickString(&cur.Definition, rec.Definition)

	if len(rec.POS) > 0 {
		cur.POS = dedupeStrings(append(cur.POS, rec.POS...))
	}

	for k, v := range rec.Extra {
		if e.listFields[k] {
			e.unionExtraList(cur, k, v)
			continue
		}
		if domain.IsEmptyValue(v) {
			continue
		}
		if cur.Extra == nil || domain.IsEmptyValue(cur.Extra[k]) {
			cur.SetExtra(k, v)
		}
	}
}

// unionExtraList appends v (scalar or list) to the named extra list,
// deduplicating by string representation in first-seen order.
func (e *Engine) unionExtraList(cur *domain.Canonical, key string, v any) {
	if domain.IsEmptyValue(v) {
		return
	}

	var items []any
	if existing, ok := cur.Extra[key]; ok {
		if list, isList := existing.([]any); isList {
			items = list
		} else if !domain.IsEmptyValue(existing) {
			items = []any{existing}
		}
	}

	switch t := v.(type) {
	case []any:
		items = append(items, t...)
	default:
		items = append(items, t)
	}

	cur.SetExtra(key, dedupeAny(items))
}

// finalize runs once per key at the end of the run: sources are sorted
// and deduplicated, counts set, the normalizer fills remaining required
// fields and assigns the canonical ID. The emitted records are sorted
// by key and immutable from here on.
func (e *Engine) finalize() []*domain.Canonical {
	keys := make([]Key, 0, len(e.acc))
	for k := range e.acc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	out := make([]*domain.Canonical, 0, len(keys))
	for _, k := range keys {
		c := e.acc[k]
		c.Sources = dedupeStrings(c.Sources)
		sort.Strings(c.Sources)
		c.NSources = len(c.Sources)
		e.opts.Normalizer.Normalize(&c.Record)
		out = append(out, c)
	}
	return out
}

func pickString(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func dedupeStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func dedupeAny(items []any) []any {
	seen := make(map[string]struct{}, len(items))
	out := make([]any, 0, len(items))
	for _, item := range items {
		s := fmt.Sprintf("%v", item)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, item)
	}
	return out
}
