// Command store loads a canonical JSONL file into the lexeme catalog
// without running the rest of the pipeline. Useful for re-loading a
// previously merged file or for shipping a file produced elsewhere.
//
// Flags:
//
//	--input           path to the canonical JSONL file (required)
//	--batch-size      rows per insert batch
//	--replace-source  delete rows carrying this source tag before loading
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/lexicore/internal/adapter/postgres"
	"github.com/heartmarshall/lexicore/internal/adapter/postgres/lexeme"
	"github.com/heartmarshall/lexicore/internal/app"
	"github.com/heartmarshall/lexicore/internal/config"
	"github.com/heartmarshall/lexicore/internal/domain"
	"github.com/heartmarshall/lexicore/internal/jsonl"
)

func main() {
	inputFlag := flag.String("input", "", "path to canonical JSONL file (required)")
	batchFlag := flag.Int("batch-size", 500, "rows per insert batch")
	replaceFlag := flag.String("replace-source", "", "delete rows with this source tag before loading")
	flag.Parse()

	if *inputFlag == "" {
		log.Fatal("--input is required")
	}

	appCfg, err := config.Load()
	if err != nil {
		log.Fatalf("load app config: %v", err)
	}
	if appCfg.Database.DSN == "" {
		log.Fatal("DATABASE_DSN is required")
	}

	logger := app.NewLogger(appCfg.Log)
	logger.Info("starting store", slog.String("version", app.BuildVersion()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, appCfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	repo := lexeme.New(pool, postgres.NewTxManager(pool))

	lexemes, err := readCanonical(*inputFlag)
	if err != nil {
		logger.Error("read input", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("loaded canonical file",
		slog.String("path", *inputFlag),
		slog.Int("rows", len(lexemes)))

	if *replaceFlag != "" {
		if err := repo.ReplaceSource(ctx, *replaceFlag, lexemes); err != nil {
			logger.Error("replace source", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("replaced source",
			slog.String("source", *replaceFlag),
			slog.Int("rows", len(lexemes)))
		return
	}

	total := 0
	for start := 0; start < len(lexemes); start += *batchFlag {
		end := min(start+*batchFlag, len(lexemes))
		inserted, err := repo.BulkInsertLexemes(ctx, lexemes[start:end])
		if err != nil {
			logger.Error("insert batch", slog.String("error", err.Error()))
			os.Exit(1)
		}
		total += inserted
	}

	logger.Info("store completed",
		slog.Int("rows", len(lexemes)),
		slog.Int("inserted", total),
		slog.Int("skipped", len(lexemes)-total))
}

// readCanonical streams the JSONL file into memory as canonical lexemes.
func readCanonical(path string) ([]*domain.Canonical, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*domain.Canonical
	err = jsonl.ForEachLine(f, func(line []byte) error {
		var c domain.Canonical
		if err := c.UnmarshalJSON(line); err != nil {
			return err
		}
		out = append(out, &c)
		return nil
	})
	return out, err
}
