package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/bank-ingest/internal/archive"
	"github.com/dvloznov/bank-ingest/internal/config"
	"github.com/dvloznov/bank-ingest/internal/logger"
	"github.com/dvloznov/bank-ingest/internal/pipeline"
	"github.com/dvloznov/bank-ingest/internal/runs/inmemory"
	"github.com/dvloznov/bank-ingest/internal/staging"
	"github.com/dvloznov/bank-ingest/internal/store/bigquery"
	"github.com/dvloznov/bank-ingest/internal/tag"
)

func main() {
	log := logger.New()

	runID := flag.String("run-id", "", "run identifier (defaults to a new UUID)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	id := *runID
	if id == "" {
		id = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	ledger, err := bigquery.NewStore(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger store")
	}
	defer ledger.Close()

	tagger := tag.New(log)
	if cfg.GeminiTagging {
		tagger = tag.NewWithSuggester(log, tag.NewGeminiSuggester(cfg.GeminiModel))
	}

	areas := staging.NewAreas(cfg.StagingDir)
	runStore := inmemory.NewStore()

	orch := pipeline.New(log, areas, tagger, ledger, runStore, cfg.UserID)
	if cfg.ArchiveBucket != "" {
		orch = orch.WithUploader(archive.NewUploader(cfg.ArchiveBucket, "statements"))
	}

	log.Info().Str("run_id", id).Str("staging_dir", cfg.StagingDir).Msg("Starting batch run")

	run, err := orch.Run(ctx, id)
	if err != nil {
		log.Fatal().Err(err).Str("run_id", id).Msg("Batch run failed")
	}

	out, err := json.MarshalIndent(run.Stats, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render run stats")
	}
	fmt.Println(string(out))
}
