// Package ingest orchestrates the multi-source lexicon ingestion
// pipeline: per-source conversion phases, the merge phase, and the
// catalog store phase.
package ingest

import (
	"context"

	"github.com/heartmarshall/lexicore/internal/domain"
)

// LexemeBulkRepo is the batch repository contract consumed by the store
// phase. All methods use only domain types, no adapter imports.
// Implemented by lexeme.Repo.
type LexemeBulkRepo interface {
	// BulkInsertLexemes inserts canonical records, skipping rows whose
	// ID already exists. Returns the number of rows actually inserted.
	BulkInsertLexemes(ctx context.Context, lexemes []*domain.Canonical) (int, error)
}
