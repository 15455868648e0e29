// Command ingest runs the lexicon ingestion pipeline: per-source
// conversion of raw datasets (StarDict archives, CMUdict, word-root
// maps) into intermediate JSONL, multi-source merging into canonical
// records, and loading into the lexeme catalog.
//
// Flags:
//
//	--phase          comma-separated list of phases to run (default: all)
//	--dry-run        parse and count without writing files or rows
//	--ingest-config  path to ingest YAML config file
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/heartmarshall/lexicore/internal/adapter/postgres"
	"github.com/heartmarshall/lexicore/internal/adapter/postgres/lexeme"
	"github.com/heartmarshall/lexicore/internal/app"
	"github.com/heartmarshall/lexicore/internal/app/ingest"
	"github.com/heartmarshall/lexicore/internal/config"
)

// Compile-time interface assertion.
var _ ingest.LexemeBulkRepo = (*lexeme.Repo)(nil)

func main() {
	phaseFlag := flag.String("phase", "", "comma-separated phases to run (default: all)")
	dryRunFlag := flag.Bool("dry-run", false, "parse and count without writing files or rows")
	ingestConfigFlag := flag.String("ingest-config", "", "path to ingest YAML config file")
	flag.Parse()

	appCfg, err := config.Load()
	if err != nil {
		log.Fatalf("load app config: %v", err)
	}

	logger := app.NewLogger(appCfg.Log)
	logger.Info("starting ingest", slog.String("version", app.BuildVersion()))

	ingestCfg, err := ingest.LoadConfig(*ingestConfigFlag)
	if err != nil {
		logger.Error("load ingest config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// CLI flags override config.
	if *dryRunFlag {
		ingestCfg.DryRun = true
	}

	var phases []string
	if *phaseFlag != "" {
		phases = strings.Split(*phaseFlag, ",")
		for i := range phases {
			phases[i] = strings.TrimSpace(phases[i])
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	// The database is only needed for the store phase.
	var repo ingest.LexemeBulkRepo
	if needsStore(phases) && !ingestCfg.DryRun {
		if appCfg.Database.DSN == "" {
			logger.Error("store phase requires DATABASE_DSN")
			os.Exit(1)
		}
		pool, err := postgres.NewPool(ctx, appCfg.Database)
		if err != nil {
			logger.Error("connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		repo = lexeme.New(pool, postgres.NewTxManager(pool))
	}

	pipeline := ingest.NewPipeline(logger, repo, *ingestCfg)
	if err := pipeline.Run(ctx, phases); err != nil {
		logger.Error("pipeline failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if pipeline.HasErrors() {
		logger.Warn("pipeline completed with errors")
		os.Exit(1)
	}

	logger.Info("pipeline completed successfully")
}

// needsStore reports whether the store phase will run given the filter.
func needsStore(phases []string) bool {
	return len(phases) == 0 || slices.Contains(phases, "store")
}
