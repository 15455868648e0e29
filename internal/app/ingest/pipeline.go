package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/lexicore/internal/app/ingest/archive"
	"github.com/heartmarshall/lexicore/internal/app/ingest/cmudict"
	"github.com/heartmarshall/lexicore/internal/app/ingest/rootmap"
	"github.com/heartmarshall/lexicore/internal/domain"
	"github.com/heartmarshall/lexicore/internal/jsonl"
	"github.com/heartmarshall/lexicore/internal/merge"
	"github.com/heartmarshall/lexicore/internal/schema"
)

// generatedBy tags the manifests written by this pipeline.
const generatedBy = "lexicore-ingest"

// allPhases defines the canonical execution order.
var allPhases = []string{"archive", "cmudict", "rootmap", "merge", "store"}

// PhaseResult holds the outcome of a single pipeline phase.
type PhaseResult struct {
	Emitted   int
	Inserted  int
	Skipped   int
	Malformed int
	Duration  time.Duration
	Err       error
}

// Pipeline orchestrates the 5-phase ingestion process.
type Pipeline struct {
	log     *slog.Logger
	repo    LexemeBulkRepo
	cfg     Config
	runID   uuid.UUID
	results map[string]PhaseResult
}

// NewPipeline creates a new Pipeline. Each pipeline carries a fresh run
// ID that tags every log line of the run.
func NewPipeline(log *slog.Logger, repo LexemeBulkRepo, cfg Config) *Pipeline {
	runID := uuid.New()
	return &Pipeline{
		log:     log.With(slog.String("run_id", runID.String())),
		repo:    repo,
		cfg:     cfg,
		runID:   runID,
		results: make(map[string]PhaseResult),
	}
}

// RunID returns the identifier of this pipeline run.
func (p *Pipeline) RunID() uuid.UUID {
	return p.runID
}

// Results returns phase results after Run completes.
func (p *Pipeline) Results() map[string]PhaseResult {
	return p.results
}

// HasErrors returns true if any phase failed.
func (p *Pipeline) HasErrors() bool {
	for _, r := range p.results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Run executes the pipeline. If phases is non-empty, only the listed
// phases run, still in canonical order.
func (p *Pipeline) Run(ctx context.Context, phases []string) error {
	toRun := allPhases
	if len(phases) > 0 {
		filter := make(map[string]bool, len(phases))
		for _, ph := range phases {
			filter[ph] = true
		}
		var filtered []string
		for _, ph := range allPhases {
			if filter[ph] {
				filtered = append(filtered, ph)
			}
		}
		toRun = filtered
	}

	for _, phase := range toRun {
		start := time.Now()
		p.log.Info("starting phase", slog.String("phase", phase))

		var result PhaseResult
		switch phase {
		case "archive":
			result = p.runArchive()
		case "cmudict":
			result = p.runCMUDict()
		case "rootmap":
			result = p.runRootMap()
		case "merge":
			result = p.runMerge()
		case "store":
			result = p.runStore(ctx)
		}
		result.Duration = time.Since(start)
		p.results[phase] = result

		if result.Err != nil {
			p.log.Warn("phase failed",
				slog.String("phase", phase),
				slog.String("error", result.Err.Error()),
				slog.Duration("duration", result.Duration),
			)
		} else {
			p.log.Info("phase completed",
				slog.String("phase", phase),
				slog.Int("emitted", result.Emitted),
				slog.Int("inserted", result.Inserted),
				slog.Int("skipped", result.Skipped),
				slog.Int("malformed", result.Malformed),
				slog.Duration("duration", result.Duration),
			)
		}
	}

	p.log.Info("pipeline completed", slog.Int("phases_run", len(toRun)))
	return nil
}

// runArchive converts every discovered StarDict package into one
// intermediate JSONL file per package.
func (p *Pipeline) runArchive() PhaseResult {
	if p.cfg.ArchiveRoot == "" {
		return PhaseResult{Skipped: 1, Err: fmt.Errorf("archive root not configured")}
	}

	pkgs, err := archive.Discover(p.cfg.ArchiveRoot)
	if err != nil {
		return PhaseResult{Err: fmt.Errorf("discover packages: %w", err)}
	}
	if len(pkgs) == 0 {
		return PhaseResult{Err: fmt.Errorf("no packages under %s", p.cfg.ArchiveRoot)}
	}
	sort.Strings(pkgs)

	var result PhaseResult
	for _, pkg := range pkgs {
		res, err := archive.Convert(pkg, archive.Options{
			Language: p.cfg.ArchiveLanguage,
			Limit:    p.cfg.Limit,
		})
		if err != nil {
			return PhaseResult{Err: fmt.Errorf("convert %s: %w", pkg, err)}
		}
		p.log.Info("package converted",
			slog.String("package", res.Slug),
			slog.Int("entries", res.Stats.TotalEntries),
			slog.Int("symbol_lemmas", res.Stats.SymbolLemmas),
			slog.Int("truncated", res.Stats.SkippedTruncated),
		)
		result.Skipped += res.Stats.SymbolLemmas
		result.Malformed += res.Stats.SkippedTruncated

		if p.cfg.DryRun {
			result.Emitted += len(res.Records)
			continue
		}

		defaults := schema.Defaults{LemmaStatus: domain.StatusAutoBrut}
		path := filepath.Join(p.cfg.IntermediateDir(), res.Slug+".jsonl")
		emitted, dropped, err := p.writeRecords(path, res.Records, defaults)
		if err != nil {
			return PhaseResult{Err: err}
		}
		result.Emitted += emitted
		result.Skipped += dropped
	}

	return result
}

// runCMUDict converts the CMU pronouncing dictionary.
func (p *Pipeline) runCMUDict() PhaseResult {
	if p.cfg.CMUDictPath == "" {
		return PhaseResult{Skipped: 1, Err: fmt.Errorf("cmudict path not configured")}
	}

	parsed, err := cmudict.Parse(p.cfg.CMUDictPath)
	if err != nil {
		return PhaseResult{Err: fmt.Errorf("parse cmudict: %w", err)}
	}
	p.log.Info("cmudict parsed",
		slog.Int("lines", parsed.Stats.TotalLines),
		slog.Int("records", parsed.Stats.ParsedLines),
	)

	if p.cfg.DryRun {
		return PhaseResult{Emitted: len(parsed.Records)}
	}

	defaults := schema.Defaults{Language: "eng", Source: "cmudict", LemmaStatus: domain.StatusAutoBrut}
	path := filepath.Join(p.cfg.IntermediateDir(), "cmudict.jsonl")
	emitted, dropped, err := p.writeRecords(path, parsed.Records, defaults)
	if err != nil {
		return PhaseResult{Err: err}
	}
	return PhaseResult{Emitted: emitted, Skipped: dropped}
}

// runRootMap converts the word-to-root CSV map.
func (p *Pipeline) runRootMap() PhaseResult {
	if p.cfg.RootMapPath == "" {
		return PhaseResult{Skipped: 1, Err: fmt.Errorf("rootmap path not configured")}
	}

	parsed, err := rootmap.Parse(p.cfg.RootMapPath, rootmap.Options{})
	if err != nil {
		return PhaseResult{Err: fmt.Errorf("parse rootmap: %w", err)}
	}
	p.log.Info("rootmap parsed",
		slog.Int("rows", parsed.Stats.TotalRows),
		slog.Int("empty_root", parsed.Stats.EmptyRoot),
	)

	if p.cfg.DryRun {
		return PhaseResult{Emitted: len(parsed.Records), Skipped: parsed.Stats.EmptyRoot}
	}

	defaults := schema.Defaults{Language: "ara", LemmaStatus: domain.StatusAutoBrut}
	path := filepath.Join(p.cfg.IntermediateDir(), "rootmap.jsonl")
	emitted, dropped, err := p.writeRecords(path, parsed.Records, defaults)
	if err != nil {
		return PhaseResult{Err: err}
	}
	return PhaseResult{Emitted: emitted, Skipped: dropped + parsed.Stats.EmptyRoot}
}

// runMerge reconciles all intermediate files into one canonical JSONL.
func (p *Pipeline) runMerge() PhaseResult {
	files, err := filepath.Glob(filepath.Join(p.cfg.IntermediateDir(), "*.jsonl"))
	if err != nil || len(files) == 0 {
		return PhaseResult{Err: fmt.Errorf("no intermediate files in %s", p.cfg.IntermediateDir())}
	}
	sort.Strings(files)

	var sources []merge.Source
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return PhaseResult{Err: fmt.Errorf("open %s: %w", file, err)}
		}
		defer f.Close()
		tag := strings.TrimSuffix(filepath.Base(file), ".jsonl")
		sources = append(sources, merge.Source{Tag: tag, R: f})
	}

	engine := merge.New(merge.Options{
		ListFields:        p.cfg.ListFields,
		CollectSourceRefs: p.cfg.CollectSourceRefs,
		Strict:            p.cfg.Strict,
		Normalizer:        schema.NewNormalizer(schema.Defaults{LemmaStatus: domain.StatusAutoBrut}),
		Logger:            p.log,
	})
	merged, stats, err := engine.Merge(sources)
	if err != nil {
		return PhaseResult{Err: fmt.Errorf("merge: %w", err)}
	}
	p.log.Info("sources merged",
		slog.Int("rows_in", stats.RowsIn),
		slog.Int("rows_out", stats.RowsOut),
		slog.Int("malformed", stats.Malformed),
		slog.Int("empty_lemma", stats.EmptyLemma),
	)

	result := PhaseResult{
		Emitted:   stats.RowsOut,
		Skipped:   stats.EmptyLemma,
		Malformed: stats.Malformed,
	}
	if p.cfg.DryRun {
		return result
	}

	w, err := jsonl.NewWriter(p.cfg.CanonicalPath())
	if err != nil {
		return PhaseResult{Err: err}
	}
	for _, c := range merged {
		if err := w.Write(c); err != nil {
			w.Close()
			return PhaseResult{Err: fmt.Errorf("write canonical row: %w", err)}
		}
	}
	if err := w.Close(); err != nil {
		return PhaseResult{Err: fmt.Errorf("close canonical output: %w", err)}
	}
	if _, err := jsonl.WriteManifest(p.cfg.CanonicalPath(), p.cfg.SchemaVersion, generatedBy); err != nil {
		return PhaseResult{Err: err}
	}

	return result
}

// runStore loads the canonical JSONL into the lexeme catalog.
func (p *Pipeline) runStore(ctx context.Context) PhaseResult {
	if p.repo == nil {
		return PhaseResult{Skipped: 1, Err: fmt.Errorf("no repository configured")}
	}

	f, err := os.Open(p.cfg.CanonicalPath())
	if err != nil {
		return PhaseResult{Err: fmt.Errorf("open canonical file: %w", err)}
	}
	defer f.Close()

	var lexemes []*domain.Canonical
	err = jsonl.ForEachLine(f, func(line []byte) error {
		var c domain.Canonical
		if err := c.UnmarshalJSON(line); err != nil {
			return fmt.Errorf("decode canonical row: %w", err)
		}
		lexemes = append(lexemes, &c)
		return nil
	})
	if err != nil {
		return PhaseResult{Err: err}
	}

	if p.cfg.DryRun {
		return PhaseResult{Skipped: len(lexemes)}
	}

	inserted, err := batchProcess(lexemes, p.cfg.BatchSize, func(batch []*domain.Canonical) (int, error) {
		return p.repo.BulkInsertLexemes(ctx, batch)
	})
	if err != nil {
		return PhaseResult{Err: fmt.Errorf("insert lexemes: %w", err)}
	}

	return PhaseResult{Inserted: inserted, Skipped: len(lexemes) - inserted}
}

// writeRecords normalizes records, assigns collision-free IDs scoped to
// the output file, drops empty-lemma rows, and writes JSONL plus its
// manifest. Returns emitted and dropped counts.
func (p *Pipeline) writeRecords(path string, recs []*domain.Record, defaults schema.Defaults) (int, int, error) {
	norm := schema.NewNormalizer(defaults)
	dedup := schema.NewIDDeduper(schema.IDPrefix)

	w, err := jsonl.NewWriter(path)
	if err != nil {
		return 0, 0, err
	}

	dropped := 0
	for _, rec := range recs {
		norm.Normalize(rec)
		if rec.Lemma == "" {
			dropped++
			continue
		}
		rec.ID = dedup.Assign(schema.IDTuple(rec)...)
		if err := w.Write(rec); err != nil {
			w.Close()
			return 0, 0, fmt.Errorf("write record: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return 0, 0, fmt.Errorf("close %s: %w", path, err)
	}

	if _, err := jsonl.WriteManifest(path, p.cfg.SchemaVersion, generatedBy); err != nil {
		return 0, 0, err
	}
	return w.Rows(), dropped, nil
}

// batchProcess splits items into batches and processes each via fn.
func batchProcess[T any](items []T, batchSize int, fn func([]T) (int, error)) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	total := 0
	for i := 0; i < len(items); i += batchSize {
		end := min(i+batchSize, len(items))
		n, err := fn(items[i:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
