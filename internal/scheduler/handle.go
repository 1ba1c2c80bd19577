package scheduler

import (
	"context"
	"sync"

	"go-query-coordinator/internal/model"
)

// BatchHandle tracks one submitted batch until it reaches a terminal status.
type BatchHandle struct {
	batch *model.Batch
	done  chan struct{}

	mu      sync.Mutex
	status  model.BatchStatus
	results []model.QueryResult
	err     error
}

func newHandle(batch *model.Batch) *BatchHandle {
	return &BatchHandle{
		batch:  batch,
		done:   make(chan struct{}),
		status: model.BatchPending,
	}
}

func (h *BatchHandle) ID() string {
	return h.batch.ID
}

// Batch returns the submitted batch. It must not be modified.
func (h *BatchHandle) Batch() *model.Batch {
	return h.batch
}

func (h *BatchHandle) Status() model.BatchStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Done is closed once the batch completed, failed, timed out or was dropped.
func (h *BatchHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the batch resolves or ctx ends. Giving up on ctx leaves the
// batch scheduled.
func (h *BatchHandle) Wait(ctx context.Context) ([]model.QueryResult, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.results, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *BatchHandle) setStatus(status model.BatchStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.status.Terminal() {
		h.status = status
	}
}

// resolve moves the handle to a terminal status. Later calls are ignored.
func (h *BatchHandle) resolve(status model.BatchStatus, results []model.QueryResult, err error) {
	h.mu.Lock()
	if h.status.Terminal() {
		h.mu.Unlock()
		return
	}
	h.status = status
	h.results = results
	h.err = err
	h.mu.Unlock()
	close(h.done)
}
