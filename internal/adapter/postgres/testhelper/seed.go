package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/lexicore/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedLexeme inserts a canonical lexeme row with a unique lemma and ID.
// Returns the inserted record.
func SeedLexeme(t *testing.T, pool *pgxpool.Pool) *domain.Canonical {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	c := &domain.Canonical{
		Record: domain.Record{
			ID:          "lex:test" + suffix,
			Lemma:       "lemma-" + suffix,
			Language:    "lat",
			Source:      "testhelper",
			LemmaStatus: domain.StatusAutoBrut,
			POS:         []string{"N"},
		},
		Sources:  []string{"testhelper"},
		NSources: 1,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO lexemes (id, lemma, language, source, lemma_status, pos, sources, n_sources)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Lemma, c.Language, c.Source, string(c.LemmaStatus), c.POS, c.Sources, c.NSources,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedLexeme insert: %v", err)
	}

	return c
}
