package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/bank-ingest/internal/runs"
)

// Queue is an in-memory batch-request queue built on a Go channel.
//
// It runs exactly ONE worker: the staging filesystem is a shared mutable
// resource across the whole process, and concurrent batch runs would
// race on the working area (classification wipes and rebuilds it). A
// failed run is terminal; there are no retries.
type Queue struct {
	reqChan   chan *runs.BatchRequest
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
}

// NewQueue creates a new in-memory queue. bufferSize determines how many
// requests can wait before PublishBatch blocks.
func NewQueue(bufferSize int) *Queue {
	return &Queue{
		reqChan:   make(chan *runs.BatchRequest, bufferSize),
		closeChan: make(chan struct{}),
	}
}

// PublishBatch implements the Publisher interface.
func (q *Queue) PublishBatch(ctx context.Context, req *runs.BatchRequest) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	select {
	case q.reqChan <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the Consumer interface. The single worker serializes
// every batch run.
func (q *Queue) Start(ctx context.Context, handler runs.Handler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	q.wg.Add(1)
	go q.worker(ctx, handler)
	return nil
}

func (q *Queue) worker(ctx context.Context, handler runs.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case req := <-q.reqChan:
			if req == nil {
				return
			}
			// The handler records success or failure on the run itself;
			// the queue has nothing left to do with the error.
			_ = handler(ctx, req)
		}
	}
}

// Stop implements the Consumer interface. It stops the queue and waits
// for an in-flight run to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer.
var _ runs.Publisher = (*Queue)(nil)
var _ runs.Consumer = (*Queue)(nil)
