// Package coordinator wires the query catalog, scheduler, executor, metrics
// registry and advisor into the single entry point used by the API and CLI.
package coordinator

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"go-query-coordinator/internal/advisor"
	"go-query-coordinator/internal/catalog"
	"go-query-coordinator/internal/executor"
	"go-query-coordinator/internal/metrics"
	"go-query-coordinator/internal/model"
	"go-query-coordinator/internal/scheduler"
)

var ErrUnknownQuery = errors.New("unknown query")

// Journal records batch transitions and individual query executions.
type Journal interface {
	scheduler.Journal
	executor.ExecutionObserver
}

// QueryRequest names a catalog query and the values to bind to it.
type QueryRequest struct {
	ID         string            `json:"id"`
	Parameters []model.Parameter `json:"parameters,omitempty"`
}

type options struct {
	journal Journal
	clock   clock.WithTicker
}

type Option func(*options)

func WithJournal(j Journal) Option {
	return func(o *options) {
		o.journal = j
	}
}

func WithClock(c clock.WithTicker) Option {
	return func(o *options) {
		o.clock = c
	}
}

type Coordinator struct {
	registry  *metrics.Registry
	executor  *executor.Executor
	scheduler *scheduler.Scheduler
	advisor   *advisor.Advisor
	indexes   catalog.IndexCatalog
	cache     *executor.CachingAccessor
}

// New builds a coordinator around accessor. Nothing runs until Start.
func New(cfg model.CoordinatorConfig, accessor executor.DataAccessor, opts ...Option) (*Coordinator, error) {
	o := options{clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	indexes := catalog.Indexes()
	if err := indexes.Validate(); err != nil {
		return nil, errors.Wrap(err, "index catalog")
	}

	c := &Coordinator{indexes: indexes}
	if cfg.Cache.Enabled {
		c.cache = executor.NewCachingAccessor(accessor, cfg.Cache.TTL, cfg.Cache.CleanupInterval)
		accessor = c.cache
	}

	thresholds := cfg.Advisor
	if thresholds == (model.AdvisorConfig{}) {
		thresholds = model.DefaultAdvisorConfig
	}
	registryOpts := []metrics.Option{metrics.WithClock(o.clock)}
	if thresholds.SlowQueryThreshold > 0 {
		registryOpts = append(registryOpts, metrics.WithSlowQueryThreshold(thresholds.SlowQueryThreshold))
	}
	c.registry = metrics.NewRegistry(registryOpts...)

	execOpts := []executor.Option{
		executor.WithQueryTimeout(cfg.Executor.QueryTimeout),
		executor.WithClock(o.clock),
	}
	schedOpts := []scheduler.Option{scheduler.WithClock(o.clock)}
	if o.journal != nil {
		execOpts = append(execOpts, executor.WithObserver(o.journal))
		schedOpts = append(schedOpts, scheduler.WithJournal(o.journal))
	}
	c.executor = executor.New(accessor, c.registry, execOpts...)

	s, err := scheduler.New(c.executor, cfg.Scheduler, schedOpts...)
	if err != nil {
		return nil, err
	}
	c.scheduler = s

	c.advisor = advisor.New(c.registry,
		advisor.WithThresholds(thresholds),
		advisor.WithIndexHints(catalog.IndexesForType),
	)
	return c, nil
}

// Start launches the scheduler drain loop.
func (c *Coordinator) Start(ctx context.Context) {
	c.scheduler.Start(ctx)
	log.WithFields(log.Fields{
		"tick_interval":          c.scheduler.Config().TickInterval,
		"max_batch_size":         c.scheduler.Config().MaxBatchSize,
		"max_concurrent_batches": c.scheduler.Config().MaxConcurrentBatches,
	}).Info("coordinator started")
}

// Submit queues queries as one batch and returns its handle.
func (c *Coordinator) Submit(ctx context.Context, queries []model.Query, priority model.Priority) (*scheduler.BatchHandle, error) {
	return c.scheduler.Submit(ctx, queries, priority)
}

// SubmitBatch submits queries and waits for their results.
func (c *Coordinator) SubmitBatch(ctx context.Context, queries []model.Query, priority model.Priority) ([]model.QueryResult, error) {
	h, err := c.scheduler.Submit(ctx, queries, priority)
	if err != nil {
		return nil, err
	}
	return h.Wait(ctx)
}

// ResolveQueries looks up each request in the query catalog and binds its
// parameters.
func (c *Coordinator) ResolveQueries(requests []QueryRequest) ([]model.Query, error) {
	queries := make([]model.Query, 0, len(requests))
	for _, req := range requests {
		q, ok := catalog.Lookup(req.ID)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownQuery, "%q", req.ID)
		}
		bound, err := q.Bind(req.Parameters...)
		if err != nil {
			return nil, err
		}
		queries = append(queries, bound)
	}
	return queries, nil
}

func (c *Coordinator) Catalog(t model.QueryType) []model.Query {
	return catalog.ForType(t)
}

// LookupQuery finds a catalog query by id.
func (c *Coordinator) LookupQuery(id string) (model.Query, bool) {
	return catalog.Lookup(id)
}

func (c *Coordinator) MetricsSnapshot() map[model.QueryType]model.QueryPerformanceMetrics {
	return c.registry.Snapshot()
}

func (c *Coordinator) Analyze(t model.QueryType) model.AdvisorReport {
	return c.advisor.Analyze(t)
}

func (c *Coordinator) AnalyzeAll() []model.AdvisorReport {
	return c.advisor.AnalyzeAll()
}

func (c *Coordinator) GenerateIndexSQL() []string {
	return c.indexes.GenerateCreationStatements()
}

func (c *Coordinator) IndexDefinitions() []model.IndexDefinition {
	return c.indexes.Definitions()
}

func (c *Coordinator) IndexCatalogVersion() int {
	return c.indexes.Version
}

// Registry exposes the metrics registry for collectors and efficiency updates.
func (c *Coordinator) Registry() *metrics.Registry {
	return c.registry
}

// PendingBatches is the number of batches waiting for a tick.
func (c *Coordinator) PendingBatches() int {
	return c.scheduler.Pending()
}

// InvalidateCache drops cached results. It is a no-op when caching is off.
func (c *Coordinator) InvalidateCache() {
	if c.cache != nil {
		c.cache.Invalidate()
	}
}

// Shutdown stops the drain loop, drops pending batches and waits for running ones.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	err := c.scheduler.Shutdown(ctx)
	log.Info("coordinator stopped")
	return err
}
