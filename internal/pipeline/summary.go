package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Summary is the machine-readable recap written next to the CSV
// artifacts at the end of a run.
type Summary struct {
	RunID        string        `json:"run_id"`
	ProcessedAt  time.Time     `json:"processed_at"`
	Files        []SummaryFile `json:"files"`
	TotalRecords int           `json:"total_records"`
	Saved        int           `json:"saved"`
	Duplicates   int           `json:"duplicates"`
	Filtered     int           `json:"filtered"`
	AutoTagged   int           `json:"auto_tagged"`
	AccuracyNote string        `json:"accuracy_note"`
}

// SummaryFile describes one absorbed source file.
type SummaryFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func buildSummary(state *State) *Summary {
	s := &Summary{
		RunID:        state.Run.ID,
		ProcessedAt:  time.Now().UTC(),
		TotalRecords: len(state.Records),
		Saved:        state.Run.Stats.RecordsSaved,
		Duplicates:   state.Run.Stats.Duplicates,
		Filtered:     state.Run.Stats.RecordsFiltered,
		AutoTagged:   state.Run.Stats.RecordsTagged,
	}
	for _, file := range state.Staged {
		s.Files = append(s.Files, SummaryFile{Name: file.OriginalName, Type: string(file.Type)})
	}
	if s.TotalRecords > 0 {
		s.AccuracyNote = fmt.Sprintf(
			"rules tagged %d of %d records (%.0f%%); review untagged rows before approving",
			s.AutoTagged, s.TotalRecords, 100*float64(s.AutoTagged)/float64(s.TotalRecords))
	}
	return s
}

func writeSummary(path string, state *State) error {
	data, err := json.MarshalIndent(buildSummary(state), "", "  ")
	if err != nil {
		return fmt.Errorf("writeSummary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writeSummary: writing %q: %w", path, err)
	}
	return nil
}
