// Package runs defines the per-invocation processing record: one Run per
// batch request, with an ordered list of named steps, per-step output
// and a final statistics summary. Runs are created when processing
// starts, mutated by the orchestrator as steps complete, and read-only
// once finished.
package runs

import (
	"context"
	"time"
)

// RunStatus is the overall status of one processing invocation.
type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// StepStatus is the status of a single named step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// StepName identifies a pipeline step.
type StepName string

const (
	StepClassifying   StepName = "classifying"
	StepParsing       StepName = "parsing"
	StepTagging       StepName = "tagging"
	StepDeduplicating StepName = "deduplicating"
	StepPersisting    StepName = "persisting"
)

// StepOrder is the fixed execution order of a batch run.
var StepOrder = []StepName{
	StepClassifying,
	StepParsing,
	StepTagging,
	StepDeduplicating,
	StepPersisting,
}

// Step is one named stage of a run, with its own status, free-text
// output lines and a numeric outcome (files classified, records parsed,
// and so on).
type Step struct {
	Name   StepName   `json:"name"`
	Status StepStatus `json:"status"`
	Output []string   `json:"output,omitempty"`
	Count  int        `json:"count"`
}

// Stats is the final statistics summary of a run.
type Stats struct {
	FilesClassified int `json:"files_classified"`
	FilesRejected   int `json:"files_rejected"`
	RecordsParsed   int `json:"records_parsed"`
	RecordsSkipped  int `json:"records_skipped"`
	RecordsFiltered int `json:"records_filtered"`
	RecordsTagged   int `json:"records_tagged"`
	Duplicates      int `json:"duplicates"`
	RecordsSaved    int `json:"records_saved"`
}

// Run is one processing invocation.
type Run struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	Steps       []Step     `json:"steps"`
	Error       string     `json:"error,omitempty"`
	Stats       Stats      `json:"stats"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewRun creates a started run with every step pending, in order.
func NewRun(id string) *Run {
	steps := make([]Step, len(StepOrder))
	for i, name := range StepOrder {
		steps[i] = Step{Name: name, Status: StepPending}
	}
	return &Run{
		ID:        id,
		Status:    RunStarted,
		Steps:     steps,
		CreatedAt: time.Now(),
	}
}

// Step returns the named step, or nil.
func (r *Run) Step(name StepName) *Step {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// Clone deep-copies the run so store implementations can hand out copies
// that callers cannot mutate behind the store's back.
func (r *Run) Clone() *Run {
	cp := *r
	cp.Steps = make([]Step, len(r.Steps))
	for i, s := range r.Steps {
		cp.Steps[i] = s
		cp.Steps[i].Output = append([]string(nil), s.Output...)
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// Complete marks the run finished.
func (r *Run) Complete() {
	r.Status = RunCompleted
	now := time.Now()
	r.CompletedAt = &now
}

// Fail marks the named step and the whole run failed. Subsequent steps
// stay pending; prior side effects are not rolled back.
func (r *Run) Fail(step StepName, err error) {
	if s := r.Step(step); s != nil {
		s.Status = StepFailed
	}
	r.Status = RunFailed
	r.Error = err.Error()
	now := time.Now()
	r.CompletedAt = &now
}

// RunFilter narrows ListRuns results.
type RunFilter struct {
	Status RunStatus
	Limit  int
}

// RunStore stores and retrieves run status for callers polling progress.
type RunStore interface {
	// SaveRun saves or replaces a run's state.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns retrieves runs matching the filter, newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
}

// BatchRequest asks the worker to execute one batch run over the shared
// staging tree.
type BatchRequest struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Handler executes one batch request.
type Handler func(ctx context.Context, req *BatchRequest) error

// Publisher enqueues batch requests.
type Publisher interface {
	PublishBatch(ctx context.Context, req *BatchRequest) error
	Close() error
}

// Consumer pulls batch requests and hands them to a Handler.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}
