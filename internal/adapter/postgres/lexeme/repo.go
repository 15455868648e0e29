// Package lexeme implements the canonical lexeme catalog repository
// using PostgreSQL. The catalog is append-mostly: rows are bulk-loaded
// by the ingest pipeline and replaced per source on re-ingest.
package lexeme

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/lexicore/internal/adapter/postgres"
	"github.com/heartmarshall/lexicore/internal/domain"
)

// Repo provides lexeme catalog persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	txm  *postgres.TxManager
}

// New creates a new lexeme catalog repository.
func New(pool *pgxpool.Pool, txm *postgres.TxManager) *Repo {
	return &Repo{pool: pool, txm: txm}
}

const insertLexemeSQL = `INSERT INTO lexemes
	(id, lemma, language, source, lemma_status, translit, ipa, ipa_raw, root,
	 pos, gloss_html, gloss_plain, definition, sources, n_sources, extra)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
 ON CONFLICT (id) DO NOTHING`

// BulkInsertLexemes inserts canonical lexemes using pgx.Batch. Existing
// rows (by id) are skipped via ON CONFLICT DO NOTHING. Returns the
// number of actually inserted rows.
func (r *Repo) BulkInsertLexemes(ctx context.Context, lexemes []*domain.Canonical) (int, error) {
	if len(lexemes) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, l := range lexemes {
		batch.Queue(insertLexemeSQL, insertArgs(l)...)
	}

	return r.sendBatchExec(ctx, batch)
}

// ReplaceSource atomically swaps all rows carrying the given source tag
// for the supplied set. Used on re-ingest of a single source.
func (r *Repo) ReplaceSource(ctx context.Context, source string, lexemes []*domain.Canonical) error {
	return r.txm.RunInTx(ctx, func(txCtx context.Context) error {
		q := postgres.QuerierFromCtx(txCtx, r.pool)
		if _, err := q.Exec(txCtx, `DELETE FROM lexemes WHERE $1 = ANY(sources)`, source); err != nil {
			return fmt.Errorf("delete source %s: %w", source, err)
		}

		batch := &pgx.Batch{}
		for _, l := range lexemes {
			batch.Queue(insertLexemeSQL, insertArgs(l)...)
		}
		if _, err := r.sendBatchExec(txCtx, batch); err != nil {
			return fmt.Errorf("reinsert source %s: %w", source, err)
		}
		return nil
	})
}

// GetByID returns one lexeme. Returns domain.ErrNotFound if absent.
func (r *Repo) GetByID(ctx context.Context, id string) (*domain.Canonical, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	row := q.QueryRow(ctx,
		`SELECT id, lemma, language, source, lemma_status, translit, ipa, ipa_raw,
		        root, pos, gloss_html, gloss_plain, definition, sources, n_sources, extra
		   FROM lexemes WHERE id = $1`, id)

	c, err := scanLexeme(row)
	if err != nil {
		return nil, postgres.MapError(err, "lexeme", id)
	}
	return c, nil
}

// GetByLemma returns all lexemes with the given lemma and language,
// ordered by root then id for stable output.
func (r *Repo) GetByLemma(ctx context.Context, language, lemma string) ([]*domain.Canonical, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := q.Query(ctx,
		`SELECT id, lemma, language, source, lemma_status, translit, ipa, ipa_raw,
		        root, pos, gloss_html, gloss_plain, definition, sources, n_sources, extra
		   FROM lexemes WHERE language = $1 AND lemma = $2
		  ORDER BY root, id`, language, lemma)
	if err != nil {
		return nil, fmt.Errorf("query lexemes by lemma: %w", err)
	}
	defer rows.Close()

	var out []*domain.Canonical
	for rows.Next() {
		c, err := scanLexeme(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lexeme: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexemes: %w", err)
	}
	return out, nil
}

// CountByLanguage returns row counts per language code.
func (r *Repo) CountByLanguage(ctx context.Context) (map[string]int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := q.Query(ctx, `SELECT language, count(*) FROM lexemes GROUP BY language`)
	if err != nil {
		return nil, fmt.Errorf("count lexemes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[lang] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

func insertArgs(l *domain.Canonical) []any {
	pos := l.POS
	if pos == nil {
		pos = []string{}
	}
	extra := l.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	sources := l.Sources
	if sources == nil {
		sources = []string{}
	}
	return []any{
		l.ID, l.Lemma, l.Language, l.Source, string(l.LemmaStatus),
		l.Translit, l.IPA, l.IPARaw, l.Root,
		pos, l.GlossHTML, l.GlossPlain, l.Definition,
		sources, l.NSources, extra,
	}
}

func scanLexeme(row pgx.Row) (*domain.Canonical, error) {
	var c domain.Canonical
	var status string
	if err := row.Scan(
		&c.ID, &c.Lemma, &c.Language, &c.Source, &status,
		&c.Translit, &c.IPA, &c.IPARaw, &c.Root,
		&c.POS, &c.GlossHTML, &c.GlossPlain, &c.Definition,
		&c.Sources, &c.NSources, &c.Extra,
	); err != nil {
		return nil, err
	}
	c.LemmaStatus = domain.Status(status)
	if len(c.Extra) == 0 {
		c.Extra = nil
	}
	return &c, nil
}

func (r *Repo) sendBatchExec(ctx context.Context, batch *pgx.Batch) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	results := q.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int
	for range batch.Len() {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("batch exec: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}
