package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/bank-ingest/internal/runs"
)

// Store is an in-memory implementation of RunStore. Entries live for the
// process lifetime only; there is no expiry and no persistence.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*runs.Run
}

// NewStore creates a new in-memory run store.
func NewStore() *Store {
	return &Store{
		runs: make(map[string]*runs.Run),
	}
}

// SaveRun implements the RunStore interface.
func (s *Store) SaveRun(ctx context.Context, run *runs.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy so later caller mutations don't leak in.
	s.runs[run.ID] = run.Clone()
	return nil
}

// GetRun implements the RunStore interface.
func (s *Store) GetRun(ctx context.Context, id string) (*runs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return run.Clone(), nil
}

// ListRuns implements the RunStore interface.
func (s *Store) ListRuns(ctx context.Context, filter runs.RunFilter) ([]*runs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*runs.Run
	for _, run := range s.runs {
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		result = append(result, run.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Ensure Store implements RunStore.
var _ runs.RunStore = (*Store)(nil)
