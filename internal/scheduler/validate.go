package scheduler

import (
	"github.com/pkg/errors"

	"go-query-coordinator/internal/model"
)

var (
	ErrBatchTooLarge     = errors.New("batch too large")
	ErrBatchTimeout      = errors.New("batch timed out before dispatch")
	ErrEmptyBatch        = errors.New("batch has no queries")
	ErrDuplicateQueryID  = errors.New("duplicate query id in batch")
	ErrSchedulerStopped  = errors.New("scheduler stopped")
	ErrInvalidPriority   = errors.New("invalid priority")
	errBatchDispatchFail = errors.New("batch dispatch failed")
)

// validateSubmission rejects a submission before anything is queued.
func validateSubmission(queries []model.Query, priority model.Priority, maxBatchSize int) error {
	if !priority.Valid() {
		return errors.Wrapf(ErrInvalidPriority, "priority %d", int(priority))
	}
	if len(queries) == 0 {
		return ErrEmptyBatch
	}
	if len(queries) > maxBatchSize {
		return errors.Wrapf(ErrBatchTooLarge, "%d queries exceeds the limit of %d", len(queries), maxBatchSize)
	}

	seen := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		if _, ok := seen[q.ID]; ok {
			return errors.Wrapf(ErrDuplicateQueryID, "query %q", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}
