package config

import (
	"fmt"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds the application configuration loaded from environment
// variables.
type Config struct {
	// StagingDir is the base path of the staging filesystem
	// (incoming/working/output/archive live under it).
	// Environment variable: INGEST_STAGING_DIR
	StagingDir string `koanf:"INGEST_STAGING_DIR"`

	// UserID scopes accounts, categories and transactions in the
	// persistence layer.
	// Environment variable: INGEST_USER_ID
	UserID string `koanf:"INGEST_USER_ID"`

	// BigQuery persistence collaborator settings.
	ProjectID string `koanf:"BQ_PROJECT_ID"`
	Dataset   string `koanf:"BQ_DATASET"`

	// ArchiveBucket, when set, receives a copy of every absorbed source
	// file. Empty disables GCS archiving; the local archive directory is
	// always used.
	// Environment variable: ARCHIVE_BUCKET
	ArchiveBucket string `koanf:"ARCHIVE_BUCKET"`

	// GeminiTagging enables the model-backed tag suggestion that runs
	// only when no waterfall rule fired. Off by default.
	// Environment variable: GEMINI_TAGGING
	GeminiTagging bool `koanf:"GEMINI_TAGGING"`

	// GeminiModel names the model used when GeminiTagging is on.
	// Environment variable: GEMINI_MODEL
	GeminiModel string `koanf:"GEMINI_MODEL"`
}

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultStagingDir  = "staging"
	DefaultUserID      = "denis"
	DefaultDataset     = "finance"
	DefaultGeminiModel = "gemini-2.5-flash"
)

// Load reads the configuration from the environment and applies defaults.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("Load: reading environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("Load: unmarshaling config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.StagingDir == "" {
		c.StagingDir = DefaultStagingDir
	}
	if c.UserID == "" {
		c.UserID = DefaultUserID
	}
	if c.Dataset == "" {
		c.Dataset = DefaultDataset
	}
	if c.GeminiModel == "" {
		c.GeminiModel = DefaultGeminiModel
	}
}

// Validate reports configuration that cannot support a run. The project
// ID has no sensible default; everything else does.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("Validate: BQ_PROJECT_ID is required")
	}
	return nil
}
