// Package pipeline orchestrates a batch run over the staging tree:
// classify incoming files, parse them into canonical records, tag and
// deduplicate, then persist through the ledger collaborators.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/bank-ingest/internal/archive"
	"github.com/dvloznov/bank-ingest/internal/model"
	"github.com/dvloznov/bank-ingest/internal/runs"
	"github.com/dvloznov/bank-ingest/internal/staging"
	"github.com/dvloznov/bank-ingest/internal/store"
	"github.com/dvloznov/bank-ingest/internal/tag"
)

// Step is a single stage of a batch run.
type Step interface {
	Name() runs.StepName
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the steps of one run.
type State struct {
	Run     *runs.Run
	Staged  []staging.StagedFile
	Records []*model.Record
}

// Orchestrator wires the steps together and reports progress through
// the run store after every step transition.
type Orchestrator struct {
	log      zerolog.Logger
	areas    staging.Areas
	tagger   *tag.Tagger
	ledger   store.Ledger
	runStore runs.RunStore
	userID   string
	uploader *archive.Uploader
}

// New creates an Orchestrator. The uploader is optional; set it with
// WithUploader when an archive bucket is configured.
func New(log zerolog.Logger, areas staging.Areas, tagger *tag.Tagger, ledger store.Ledger, runStore runs.RunStore, userID string) *Orchestrator {
	return &Orchestrator{
		log:      log,
		areas:    areas,
		tagger:   tagger,
		ledger:   ledger,
		runStore: runStore,
		userID:   userID,
	}
}

// WithUploader enables cloud archiving of absorbed source files.
func (o *Orchestrator) WithUploader(u *archive.Uploader) *Orchestrator {
	o.uploader = u
	return o
}

// steps returns the run's steps in execution order.
func (o *Orchestrator) steps() []Step {
	return []Step{
		&ClassifyStep{log: o.log, areas: o.areas},
		&ParseStep{log: o.log, areas: o.areas},
		&TagStep{log: o.log, tagger: o.tagger},
		&DedupeStep{log: o.log},
		&PersistStep{
			log:      o.log,
			areas:    o.areas,
			ledger:   o.ledger,
			userID:   o.userID,
			uploader: o.uploader,
		},
	}
}

// Run executes one batch run end to end. The returned run reflects the
// final state even when an error is returned.
func (o *Orchestrator) Run(ctx context.Context, runID string) (*runs.Run, error) {
	run := runs.NewRun(runID)
	state := &State{Run: run}

	if err := o.runStore.SaveRun(ctx, run); err != nil {
		return run, fmt.Errorf("Run: saving initial run state: %w", err)
	}

	for _, step := range o.steps() {
		name := step.Name()
		run.Step(name).Status = runs.StepProcessing
		o.saveRun(ctx, run)

		o.log.Info().Str("run_id", runID).Str("step", string(name)).Msg("step started")

		if err := step.Execute(ctx, state); err != nil {
			run.Fail(name, err)
			o.saveRun(ctx, run)
			o.log.Error().Err(err).Str("run_id", runID).Str("step", string(name)).Msg("step failed")
			return run, fmt.Errorf("Run: step %s: %w", name, err)
		}

		run.Step(name).Status = runs.StepCompleted
		o.saveRun(ctx, run)
	}

	run.Complete()
	o.saveRun(ctx, run)
	o.log.Info().
		Str("run_id", runID).
		Int("files", run.Stats.FilesClassified).
		Int("saved", run.Stats.RecordsSaved).
		Msg("run completed")

	return run, nil
}

// Handler adapts the orchestrator to the queue consumer contract.
func (o *Orchestrator) Handler() runs.Handler {
	return func(ctx context.Context, req *runs.BatchRequest) error {
		_, err := o.Run(ctx, req.RunID)
		return err
	}
}

// saveRun persists intermediate run state. Progress reporting is best
// effort; a store failure must not abort the run itself.
func (o *Orchestrator) saveRun(ctx context.Context, run *runs.Run) {
	if err := o.runStore.SaveRun(ctx, run); err != nil {
		o.log.Warn().Err(err).Str("run_id", run.ID).Msg("saving run state")
	}
}
