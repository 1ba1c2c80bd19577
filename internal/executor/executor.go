package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"go-query-coordinator/internal/model"
)

// DataAccessor is the storage side of the coordinator. Implementations own
// connections, pooling and retries; they must be safe for concurrent use.
type DataAccessor interface {
	Execute(ctx context.Context, query model.Query) (model.RawResult, error)
}

// Recorder receives one observation per executed query.
type Recorder interface {
	RecordExecution(t model.QueryType, executionTime time.Duration, fromCache bool)
}

// ExecutionObserver is notified after each query of a batch completes.
type ExecutionObserver interface {
	QueryExecuted(batchID string, result model.QueryResult)
}

// QueryExecutionError marks a single failed query of a batch.
type QueryExecutionError struct {
	QueryID string
	Type    model.QueryType
	Err     error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query %s (%s) failed: %v", e.QueryID, e.Type, e.Err)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}

// Executor runs batches query by query against a DataAccessor.
type Executor struct {
	accessor     DataAccessor
	recorder     Recorder
	observer     ExecutionObserver
	queryTimeout time.Duration
	clock        clock.PassiveClock
}

// Option configures an Executor.
type Option func(*Executor)

// WithQueryTimeout bounds each accessor call. Zero leaves calls unbounded.
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.queryTimeout = d
	}
}

// WithClock sets the clock used to time queries.
func WithClock(c clock.PassiveClock) Option {
	return func(e *Executor) {
		e.clock = c
	}
}

// WithObserver receives every finished query, e.g. for the batch journal.
func WithObserver(o ExecutionObserver) Option {
	return func(e *Executor) {
		e.observer = o
	}
}

// New creates an Executor that records every execution in recorder.
func New(accessor DataAccessor, recorder Recorder, opts ...Option) *Executor {
	e := &Executor{
		accessor: accessor,
		recorder: recorder,
		clock:    clock.RealClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the queries of batch one after another and returns one result per
// query in batch order. A failing query is reported in its result and does not
// stop the rest of the batch.
func (e *Executor) Run(ctx context.Context, batch *model.Batch) []model.QueryResult {
	start := e.clock.Now()
	results := make([]model.QueryResult, 0, len(batch.Queries))
	failures := 0

	for _, q := range batch.Queries {
		result := e.runQuery(ctx, q)
		if result.Failed() {
			failures++
			log.WithFields(log.Fields{
				"batch_id":   batch.ID,
				"query_id":   q.ID,
				"query_type": q.Type.String(),
			}).WithError(result.Err).Warn("query failed")
		}
		if e.recorder != nil {
			e.recorder.RecordExecution(q.Type, result.ExecutionTime, result.FromCache)
		}
		if e.observer != nil {
			e.observer.QueryExecuted(batch.ID, result)
		}
		results = append(results, result)
	}

	log.WithFields(log.Fields{
		"batch_id": batch.ID,
		"priority": batch.Priority.String(),
		"duration": e.clock.Since(start),
		"results":  len(results),
		"failures": failures,
	}).Info("batch executed")
	return results
}

func (e *Executor) runQuery(ctx context.Context, q model.Query) model.QueryResult {
	result := model.QueryResult{QueryID: q.ID, Type: q.Type, IndexesUsed: []string{}}

	start := e.clock.Now()
	raw, err := e.execute(ctx, q)
	result.ExecutionTime = e.clock.Since(start)
	if result.ExecutionTime < 0 {
		result.ExecutionTime = 0
	}

	if err != nil {
		qerr := &QueryExecutionError{QueryID: q.ID, Type: q.Type, Err: err}
		result.Err = qerr
		result.Error = qerr.Error()
		return result
	}

	result.Data = raw.Data
	result.RowsAffected = raw.RowsAffected
	if result.RowsAffected < 0 {
		result.RowsAffected = 0
	}
	result.FromCache = raw.FromCache
	for _, idx := range raw.IndexesUsed {
		if q.DeclaresIndex(idx) {
			result.IndexesUsed = append(result.IndexesUsed, idx)
		}
	}
	return result
}

type executeResult struct {
	raw model.RawResult
	err error
}

func (e *Executor) execute(ctx context.Context, q model.Query) (raw model.RawResult, err error) {
	if e.queryTimeout <= 0 {
		return e.call(ctx, q)
	}

	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	// The accessor may ignore ctx, so the call runs on its own goroutine and a
	// late result is discarded.
	done := make(chan executeResult, 1)
	go func() {
		r, err := e.call(ctx, q)
		done <- executeResult{raw: r, err: err}
	}()

	select {
	case r := <-done:
		return r.raw, r.err
	case <-ctx.Done():
		return model.RawResult{}, errors.Wrapf(ctx.Err(), "query %s exceeded %s", q.ID, e.queryTimeout)
	}
}

func (e *Executor) call(ctx context.Context, q model.Query) (raw model.RawResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("accessor panicked: %v", r)
		}
	}()
	return e.accessor.Execute(ctx, q)
}

// Failures combines the per-query errors of results, or returns nil when every
// query succeeded.
func Failures(results []model.QueryResult) error {
	var result *multierror.Error
	for _, r := range results {
		switch {
		case r.Err != nil:
			result = multierror.Append(result, r.Err)
		case r.Error != "":
			result = multierror.Append(result, errors.New(r.Error))
		}
	}
	return result.ErrorOrNil()
}
