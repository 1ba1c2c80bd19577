package model

import "time"

// BatchStatus tracks a batch through the scheduler.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchDispatched BatchStatus = "dispatched"
	BatchCompleted  BatchStatus = "completed"
	BatchTimedOut   BatchStatus = "timed_out"
	BatchDropped    BatchStatus = "dropped"
	BatchFailed     BatchStatus = "failed"
)

// Terminal reports whether no further transition can happen.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchCompleted, BatchTimedOut, BatchDropped, BatchFailed:
		return true
	}
	return false
}

// Batch is a group of queries scheduled together. It is read-only once created.
type Batch struct {
	ID        string        `json:"id"`
	Queries   []Query       `json:"queries"`
	Priority  Priority      `json:"priority"`
	Timeout   time.Duration `json:"timeout"`
	CreatedAt time.Time     `json:"created_at"`
}

// Deadline is the instant after which an undrained batch is discarded.
func (b *Batch) Deadline() time.Time {
	return b.CreatedAt.Add(b.Timeout)
}
