package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/bank-ingest/internal/runs"
)

func TestStoreSaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	run := runs.NewRun("run-1")
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != runs.RunStarted {
		t.Errorf("status = %q, want started", got.Status)
	}
	if len(got.Steps) != len(runs.StepOrder) {
		t.Errorf("got %d steps, want %d", len(got.Steps), len(runs.StepOrder))
	}
	for i, step := range got.Steps {
		if step.Name != runs.StepOrder[i] {
			t.Errorf("step %d = %q, want %q", i, step.Name, runs.StepOrder[i])
		}
		if step.Status != runs.StepPending {
			t.Errorf("step %q status = %q, want pending", step.Name, step.Status)
		}
	}
}

func TestStoreRequiresID(t *testing.T) {
	store := NewStore()
	if err := store.SaveRun(context.Background(), &runs.Run{}); err == nil {
		t.Error("SaveRun accepted a run without an ID")
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := NewStore()
	if _, err := store.GetRun(context.Background(), "nope"); err == nil {
		t.Error("GetRun returned a run that was never saved")
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	run := runs.NewRun("run-1")
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	// Mutate the original after saving; the stored run must not change.
	run.Status = runs.RunFailed
	run.Steps[0].Status = runs.StepFailed
	run.Steps[0].Output = append(run.Steps[0].Output, "tampered")

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != runs.RunStarted {
		t.Error("stored run status changed through external mutation")
	}
	if got.Steps[0].Status != runs.StepPending || len(got.Steps[0].Output) != 0 {
		t.Error("stored step changed through external mutation")
	}

	// And mutating the returned copy must not affect the store either.
	got.Steps[1].Status = runs.StepCompleted
	again, _ := store.GetRun(ctx, "run-1")
	if again.Steps[1].Status != runs.StepPending {
		t.Error("returned run shares state with the store")
	}
}

func TestStoreListRuns(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	a := runs.NewRun("run-a")
	a.CreatedAt = time.Now().Add(-2 * time.Hour)
	a.Complete()
	b := runs.NewRun("run-b")
	b.CreatedAt = time.Now().Add(-1 * time.Hour)
	b.Fail(runs.StepPersisting, errors.New("store down"))
	c := runs.NewRun("run-c")

	for _, r := range []*runs.Run{a, b, c} {
		if err := store.SaveRun(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListRuns(ctx, runs.RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("listed %d runs, want 3", len(all))
	}
	if all[0].ID != "run-c" {
		t.Errorf("newest first expected, got %q", all[0].ID)
	}

	failed, err := store.ListRuns(ctx, runs.RunFilter{Status: runs.RunFailed})
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].ID != "run-b" {
		t.Errorf("failed filter returned %+v", failed)
	}

	limited, err := store.ListRuns(ctx, runs.RunFilter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit ignored, got %d runs", len(limited))
	}
}

func TestQueueDeliversInOrder(t *testing.T) {
	q := NewQueue(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	done := make(chan struct{}, 3)

	handler := func(ctx context.Context, req *runs.BatchRequest) error {
		mu.Lock()
		seen = append(seen, req.RunID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, id := range []string{"r1", "r2", "r3"} {
		if err := q.PublishBatch(ctx, &runs.BatchRequest{RunID: id}); err != nil {
			t.Fatalf("PublishBatch(%s): %v", id, err)
		}
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for handler")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	// A single worker serializes batches, so order is preserved.
	if seen[0] != "r1" || seen[1] != "r2" || seen[2] != "r3" {
		t.Errorf("delivery order = %v", seen)
	}

	if err := q.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if err := q.PublishBatch(context.Background(), &runs.BatchRequest{RunID: "r4"}); err == nil {
		t.Error("PublishBatch succeeded on a closed queue")
	}
}
