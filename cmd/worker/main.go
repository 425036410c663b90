package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/bank-ingest/internal/archive"
	"github.com/dvloznov/bank-ingest/internal/config"
	"github.com/dvloznov/bank-ingest/internal/logger"
	"github.com/dvloznov/bank-ingest/internal/pipeline"
	"github.com/dvloznov/bank-ingest/internal/runs"
	"github.com/dvloznov/bank-ingest/internal/runs/inmemory"
	"github.com/dvloznov/bank-ingest/internal/staging"
	"github.com/dvloznov/bank-ingest/internal/store/bigquery"
	"github.com/dvloznov/bank-ingest/internal/tag"
)

func main() {
	log := logger.New()

	poll := flag.Duration("poll", 30*time.Second, "how often to check incoming for new files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
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
	if err := areas.Ensure(); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare staging directories")
	}

	runStore := inmemory.NewStore()
	// In production this would be replaced with Cloud Tasks or Pub/Sub.
	queue := inmemory.NewQueue(100)

	orch := pipeline.New(log, areas, tagger, ledger, runStore, cfg.UserID)
	if cfg.ArchiveBucket != "" {
		orch = orch.WithUploader(archive.NewUploader(cfg.ArchiveBucket, "statements"))
	}

	if err := queue.Start(ctx, orch.Handler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start batch consumer")
	}

	log.Info().Str("staging_dir", cfg.StagingDir).Dur("poll", *poll).Msg("Worker started, watching incoming")

	// Poll incoming and enqueue a run whenever files are waiting. Runs
	// execute one at a time because the staging tree is shared.
	go func() {
		ticker := time.NewTicker(*poll)
		defer ticker.Stop()
		var lastSeen string
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			files, err := areas.IncomingFiles()
			if err != nil {
				log.Error().Err(err).Msg("Failed to list incoming files")
				continue
			}
			if len(files) == 0 {
				lastSeen = ""
				continue
			}

			// Rejected files stay in incoming; only enqueue when the set
			// has changed since the last run was queued.
			seen := strings.Join(files, "\n")
			if seen == lastSeen {
				continue
			}
			lastSeen = seen

			req := &runs.BatchRequest{RunID: uuid.NewString(), CreatedAt: time.Now()}
			if err := queue.PublishBatch(ctx, req); err != nil {
				log.Error().Err(err).Str("run_id", req.RunID).Msg("Failed to enqueue batch run")
				continue
			}
			log.Info().Str("run_id", req.RunID).Int("files", len(files)).Msg("Batch run enqueued")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := queue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close batch queue")
	}

	log.Info().Msg("Worker exited")
}
