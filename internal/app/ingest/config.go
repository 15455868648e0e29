package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds ingest pipeline settings.
type Config struct {
	ArchiveRoot       string   `yaml:"archive_root"        env:"INGEST_ARCHIVE_ROOT"`
	ArchiveLanguage   string   `yaml:"archive_language"    env:"INGEST_ARCHIVE_LANGUAGE"`
	CMUDictPath       string   `yaml:"cmudict_path"        env:"INGEST_CMUDICT_PATH"`
	RootMapPath       string   `yaml:"rootmap_path"        env:"INGEST_ROOTMAP_PATH"`
	OutDir            string   `yaml:"out_dir"             env:"INGEST_OUT_DIR"        env-default:"data/processed"`
	SchemaVersion     string   `yaml:"schema_version"      env:"INGEST_SCHEMA_VERSION" env-default:"v1"`
	BatchSize         int      `yaml:"batch_size"          env:"INGEST_BATCH_SIZE"     env-default:"500"`
	Limit             int      `yaml:"limit"               env:"INGEST_LIMIT"`
	ListFields        []string `yaml:"list_fields"         env:"INGEST_LIST_FIELDS"    env-separator:","`
	CollectSourceRefs bool     `yaml:"collect_source_refs" env:"INGEST_COLLECT_SOURCE_REFS"`
	Strict            bool     `yaml:"strict"              env:"INGEST_STRICT"`
	DryRun            bool     `yaml:"dry_run"             env:"INGEST_DRY_RUN"`
}

// LoadConfig reads ingest configuration from a YAML file and environment
// variables. Priority: ENV > YAML > defaults (via env-default tags).
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("ingest config: read %s: %w", path, err)
			}
			return &cfg, nil
		}
		return nil, fmt.Errorf("ingest config: file %s not found", path)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ingest config: read env: %w", err)
	}

	return &cfg, nil
}

// IntermediateDir is where per-source JSONL files land before merging.
func (c Config) IntermediateDir() string {
	return filepath.Join(c.OutDir, "_intermediate")
}

// CanonicalPath is the merged output file.
func (c Config) CanonicalPath() string {
	return filepath.Join(c.OutDir, "canonical.jsonl")
}
