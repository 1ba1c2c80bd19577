package metrics

import (
	"sync"
	"time"

	"k8s.io/utils/clock"

	"go-query-coordinator/internal/model"
)

const defaultIndexEfficiency = 1.0

// record guards the metrics of a single query type. Writers of different types
// never share a lock.
type record struct {
	mu      sync.Mutex
	metrics model.QueryPerformanceMetrics
}

// Registry holds rolling performance counters per query type. Construct one per
// coordinator; there is no package-level instance.
type Registry struct {
	mu            sync.RWMutex
	records       map[model.QueryType]*record
	slowThreshold time.Duration
	clock         clock.PassiveClock
}

type Option func(*Registry)

// WithSlowQueryThreshold overrides model.SlowQueryThreshold.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(r *Registry) {
		r.slowThreshold = d
	}
}

func WithClock(c clock.PassiveClock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		records:       make(map[model.QueryType]*record),
		slowThreshold: model.SlowQueryThreshold,
		clock:         clock.RealClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) get(t model.QueryType) (*record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[t]
	return rec, ok
}

func (r *Registry) getOrCreate(t model.QueryType) *record {
	if rec, ok := r.get(t); ok {
		return rec
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[t]; ok {
		return rec
	}
	rec := &record{metrics: model.QueryPerformanceMetrics{
		QueryType:       t,
		IndexEfficiency: defaultIndexEfficiency,
	}}
	r.records[t] = rec
	return rec
}

// RecordExecution folds one execution into the running means and counters of t.
func (r *Registry) RecordExecution(t model.QueryType, executionTime time.Duration, fromCache bool) {
	if executionTime < 0 {
		executionTime = 0
	}
	millis := float64(executionTime) / float64(time.Millisecond)
	hit := 0.0
	if fromCache {
		hit = 1.0
	}

	rec := r.getOrCreate(t)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	m := &rec.metrics
	n := float64(m.TotalExecutions)
	m.AverageExecutionTime = (m.AverageExecutionTime*n + millis) / (n + 1)
	m.CacheHitRate = clamp01((m.CacheHitRate*n + hit) / (n + 1))
	m.TotalExecutions++
	if executionTime > r.slowThreshold {
		m.SlowQueries++
	}
	m.LastExecutedAt = r.clock.Now()
}

// SetIndexEfficiency stores an externally derived efficiency, clamped to [0,1].
func (r *Registry) SetIndexEfficiency(t model.QueryType, efficiency float64) {
	rec := r.getOrCreate(t)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.metrics.IndexEfficiency = clamp01(efficiency)
}

// Get returns a copy of the metrics of t.
func (r *Registry) Get(t model.QueryType) (model.QueryPerformanceMetrics, bool) {
	rec, ok := r.get(t)
	if !ok {
		return model.QueryPerformanceMetrics{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.metrics, true
}

// Snapshot returns an independent copy of every record.
func (r *Registry) Snapshot() map[model.QueryType]model.QueryPerformanceMetrics {
	r.mu.RLock()
	records := make(map[model.QueryType]*record, len(r.records))
	for t, rec := range r.records {
		records[t] = rec
	}
	r.mu.RUnlock()

	snapshot := make(map[model.QueryType]model.QueryPerformanceMetrics, len(records))
	for t, rec := range records {
		rec.mu.Lock()
		snapshot[t] = rec.metrics
		rec.mu.Unlock()
	}
	return snapshot
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
