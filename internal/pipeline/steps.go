package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/dvloznov/bank-ingest/internal/archive"
	"github.com/dvloznov/bank-ingest/internal/classify"
	"github.com/dvloznov/bank-ingest/internal/dedupe"
	"github.com/dvloznov/bank-ingest/internal/model"
	"github.com/dvloznov/bank-ingest/internal/parse"
	"github.com/dvloznov/bank-ingest/internal/runs"
	"github.com/dvloznov/bank-ingest/internal/staging"
	"github.com/dvloznov/bank-ingest/internal/store"
	"github.com/dvloznov/bank-ingest/internal/tag"
	"github.com/dvloznov/bank-ingest/internal/transfer"
)

// ClassifyStep rebuilds the working area from the incoming files,
// staging each recognized file under its type prefix. Unrecognized
// files are left in incoming so they can be inspected and retried.
type ClassifyStep struct {
	log   zerolog.Logger
	areas staging.Areas
}

func (s *ClassifyStep) Name() runs.StepName { return runs.StepClassifying }

func (s *ClassifyStep) Execute(ctx context.Context, state *State) error {
	if err := s.areas.Ensure(); err != nil {
		return fmt.Errorf("ClassifyStep: %w", err)
	}
	if err := s.areas.ResetWorking(); err != nil {
		return fmt.Errorf("ClassifyStep: %w", err)
	}

	files, err := s.areas.IncomingFiles()
	if err != nil {
		return fmt.Errorf("ClassifyStep: %w", err)
	}

	step := state.Run.Step(s.Name())
	for _, path := range files {
		name := filepath.Base(path)

		fileType, err := classify.ClassifyFile(path)
		if err != nil {
			s.log.Warn().Err(err).Str("file", name).Msg("classification failed, rejecting file")
			fileType = model.TypeUnknown
		}
		if fileType == model.TypeUnknown {
			state.Run.Stats.FilesRejected++
			step.Output = append(step.Output, fmt.Sprintf("rejected %s", name))
			s.log.Warn().Str("file", name).Msg("unrecognized format, leaving in incoming")
			continue
		}

		if _, err := s.areas.Stage(path, fileType); err != nil {
			return fmt.Errorf("ClassifyStep: %w", err)
		}
		state.Run.Stats.FilesClassified++
		step.Output = append(step.Output, fmt.Sprintf("%s: %s", name, fileType))
		s.log.Info().Str("file", name).Str("type", string(fileType)).Msg("file classified")
	}

	step.Count = state.Run.Stats.FilesClassified
	return nil
}

// ParseStep parses every staged file into canonical records.
type ParseStep struct {
	log   zerolog.Logger
	areas staging.Areas
}

func (s *ParseStep) Name() runs.StepName { return runs.StepParsing }

func (s *ParseStep) Execute(ctx context.Context, state *State) error {
	staged, err := s.areas.StagedFiles()
	if err != nil {
		return fmt.Errorf("ParseStep: %w", err)
	}
	state.Staged = staged

	step := state.Run.Step(s.Name())
	for _, file := range staged {
		res, err := parse.Staged(s.log, file)
		if err != nil {
			return fmt.Errorf("ParseStep: parsing %s: %w", file.OriginalName, err)
		}
		state.Records = append(state.Records, res.Records...)
		state.Run.Stats.RecordsParsed += res.Parsed
		state.Run.Stats.RecordsSkipped += res.Skipped
		step.Output = append(step.Output, fmt.Sprintf("%s: %d records", file.OriginalName, res.Parsed))
	}

	step.Count = len(state.Records)
	return nil
}

// TagStep removes droppable and internal-transfer records, then assigns
// a tag to everything that survives.
type TagStep struct {
	log    zerolog.Logger
	tagger *tag.Tagger
}

func (s *TagStep) Name() runs.StepName { return runs.StepTagging }

func (s *TagStep) Execute(ctx context.Context, state *State) error {
	kept := state.Records[:0]
	dropped := 0
	for _, rec := range state.Records {
		if s.tagger.ShouldFilter(rec.Description) {
			dropped++
			s.log.Debug().Str("description", rec.Description).Msg("dropping record")
			continue
		}
		kept = append(kept, rec)
	}

	filtered, transfers := transfer.Filter(kept)
	state.Records = filtered
	state.Run.Stats.RecordsFiltered = dropped + transfers

	tagged := 0
	for _, rec := range state.Records {
		rec.Tag = s.tagger.Tag(ctx, rec.Description, rec.Amount)
		if rec.Tag != "" {
			tagged++
		}
	}
	state.Run.Stats.RecordsTagged = tagged

	step := state.Run.Step(s.Name())
	step.Count = len(state.Records)
	step.Output = append(step.Output,
		fmt.Sprintf("dropped %d, filtered %d transfers, tagged %d of %d", dropped, transfers, tagged, len(state.Records)))
	return nil
}

// DedupeStep flags repeated records within each (spender, source)
// partition.
type DedupeStep struct {
	log zerolog.Logger
}

func (s *DedupeStep) Name() runs.StepName { return runs.StepDeduplicating }

func (s *DedupeStep) Execute(ctx context.Context, state *State) error {
	flagged := dedupe.Flag(state.Records)
	state.Run.Stats.Duplicates = flagged

	step := state.Run.Step(s.Name())
	step.Count = flagged
	step.Output = append(step.Output, fmt.Sprintf("%d duplicates flagged", flagged))
	return nil
}

// PersistStep writes the output artifacts, saves unflagged records
// through the ledger, then archives the absorbed source files.
type PersistStep struct {
	log      zerolog.Logger
	areas    staging.Areas
	ledger   store.Ledger
	userID   string
	uploader *archive.Uploader
}

func (s *PersistStep) Name() runs.StepName { return runs.StepPersisting }

func (s *PersistStep) Execute(ctx context.Context, state *State) error {
	combined := filepath.Join(s.areas.Output, "combined.csv")
	if err := staging.WriteCanonical(combined, state.Records); err != nil {
		return fmt.Errorf("PersistStep: %w", err)
	}

	keepers := make([]*model.Record, 0, len(state.Records))
	for _, rec := range state.Records {
		if rec.Duplicate == dedupe.FlagNo {
			keepers = append(keepers, rec)
		}
	}
	taggedOut := filepath.Join(s.areas.Output, "tagged.csv")
	if err := staging.WriteCanonical(taggedOut, keepers); err != nil {
		return fmt.Errorf("PersistStep: %w", err)
	}

	// All categories are resolved before the first insert so a failing
	// category lookup aborts the step with nothing half-written.
	categories := make(map[string]*store.Category)
	for _, rec := range keepers {
		if rec.Tag == "" {
			continue
		}
		if _, ok := categories[rec.Tag]; ok {
			continue
		}
		cat, err := s.ledger.ResolveCategory(ctx, s.userID, rec.Tag)
		if err != nil {
			return fmt.Errorf("PersistStep: resolving category %q: %w", rec.Tag, err)
		}
		categories[rec.Tag] = cat
	}

	accounts := make(map[string]*store.Account)
	txs := make([]*store.Transaction, 0, len(keepers))
	checkDegraded := false
	for _, rec := range keepers {
		amount, err := model.ParseAmount(rec.Amount)
		if err != nil {
			s.log.Warn().Str("amount", rec.Amount).Str("description", rec.Description).
				Msg("unparseable amount, not persisting record")
			continue
		}

		key := store.AccountKey(rec.Source, rec.Spender)
		account, ok := accounts[key]
		if !ok {
			account, err = s.ledger.ResolveAccount(ctx, s.userID, rec.Source, rec.Spender)
			if err != nil {
				return fmt.Errorf("PersistStep: resolving account %q: %w", key, err)
			}
			accounts[key] = account
		}

		// The existence check is advisory. When the ledger cannot
		// answer, the record is inserted anyway rather than silently
		// lost.
		exists, err := s.ledger.TransactionExists(ctx, s.userID, rec.Date, amount, rec.Description)
		if err != nil {
			checkDegraded = true
			s.log.Warn().Err(err).Str("description", rec.Description).
				Msg("existence check failed, inserting anyway")
		} else if exists {
			s.log.Debug().Str("description", rec.Description).Msg("already persisted, skipping")
			continue
		}

		categoryID := ""
		if cat, ok := categories[rec.Tag]; ok {
			categoryID = cat.ID
		}
		txs = append(txs, &store.Transaction{
			UserID:      s.userID,
			AccountID:   account.ID,
			CategoryID:  categoryID,
			Date:        rec.Date,
			Description: rec.Description,
			Amount:      amount,
			Type:        string(rec.Type),
			Processed:   true,
		})
	}

	if err := s.ledger.InsertTransactions(ctx, txs); err != nil {
		return fmt.Errorf("PersistStep: %w", err)
	}
	state.Run.Stats.RecordsSaved = len(txs)

	if err := writeSummary(filepath.Join(s.areas.Output, "summary.json"), state); err != nil {
		return fmt.Errorf("PersistStep: %w", err)
	}

	for _, file := range state.Staged {
		incomingPath := filepath.Join(s.areas.Incoming, file.OriginalName)
		if err := s.areas.ArchiveLocal(file.Path, incomingPath); err != nil {
			return fmt.Errorf("PersistStep: %w", err)
		}
		if s.uploader != nil {
			archived := filepath.Join(s.areas.Archive, filepath.Base(file.Path))
			if err := s.uploader.Upload(ctx, archived); err != nil {
				s.log.Warn().Err(err).Str("file", file.OriginalName).
					Msg("cloud archive upload failed, local copy kept")
			}
		}
	}

	step := state.Run.Step(s.Name())
	step.Count = len(txs)
	step.Output = append(step.Output, fmt.Sprintf("%d transactions saved", len(txs)))
	if checkDegraded {
		step.Output = append(step.Output, "duplicate check degraded")
	}
	return nil
}
