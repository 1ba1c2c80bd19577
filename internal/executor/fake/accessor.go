// Package fake provides a simulated DataAccessor for tests and local runs.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go-query-coordinator/internal/model"
)

// Accessor sleeps CostUnit per unit of EstimatedCost and returns canned rows.
// It reports every declared index of the query as used.
type Accessor struct {
	CostUnit time.Duration

	mu        sync.Mutex
	failures  map[string]error
	data      map[string]interface{}
	cacheHits map[string]bool
	calls     []string
}

func NewAccessor(costUnit time.Duration) *Accessor {
	return &Accessor{
		CostUnit:  costUnit,
		failures:  make(map[string]error),
		data:      make(map[string]interface{}),
		cacheHits: make(map[string]bool),
	}
}

// FailQuery makes every execution of queryID return err.
func (a *Accessor) FailQuery(queryID string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[queryID] = err
}

// SetData replaces the canned payload of queryID.
func (a *Accessor) SetData(queryID string, data interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[queryID] = data
}

// ReportCacheHit makes queryID claim it was served from a cache.
func (a *Accessor) ReportCacheHit(queryID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cacheHits[queryID] = true
}

// Calls returns the executed query ids in call order.
func (a *Accessor) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *Accessor) Execute(ctx context.Context, query model.Query) (model.RawResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, query.ID)
	failure := a.failures[query.ID]
	data, ok := a.data[query.ID]
	hit := a.cacheHits[query.ID]
	a.mu.Unlock()

	if delay := time.Duration(query.EstimatedCost) * a.CostUnit; delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return model.RawResult{}, errors.WithStack(ctx.Err())
		}
	}
	if failure != nil {
		return model.RawResult{}, failure
	}
	if !ok {
		data = []map[string]interface{}{
			{"query_id": query.ID, "query_type": query.Type.String(), "args": query.Args()},
		}
	}
	return model.RawResult{
		Data:         data,
		RowsAffected: 1,
		FromCache:    hit,
		IndexesUsed:  append([]string(nil), query.Indexes...),
	}, nil
}
