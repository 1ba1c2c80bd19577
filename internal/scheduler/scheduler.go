package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"go-query-coordinator/internal/model"
)

// BatchRunner executes every query of a batch and returns results in batch order.
type BatchRunner interface {
	Run(ctx context.Context, batch *model.Batch) []model.QueryResult
}

// Journal is told about every batch transition. Implementations must not block
// for long and must handle their own errors.
type Journal interface {
	BatchSubmitted(batch *model.Batch)
	BatchStatusChanged(id string, status model.BatchStatus)
	BatchCompleted(id string, results []model.QueryResult)
	BatchFailed(id string, status model.BatchStatus, err error)
}

type noopJournal struct{}

func (noopJournal) BatchSubmitted(*model.Batch) {}
func (noopJournal) BatchStatusChanged(string, model.BatchStatus) {}
func (noopJournal) BatchCompleted(string, []model.QueryResult) {}
func (noopJournal) BatchFailed(string, model.BatchStatus, error) {}

type pendingBatch struct {
	handle *BatchHandle
	seq    uint64
}

// Scheduler groups submitted queries into batches. High priority batches run on
// the submitting goroutine; everything else waits for the next tick, which
// expires overdue batches and hands the rest to a bounded worker pool.
type Scheduler struct {
	runner  BatchRunner
	journal Journal
	cfg     model.SchedulerConfig
	clock   clock.WithTicker
	pool    *ants.Pool

	mu       sync.Mutex
	pending  map[string]*pendingBatch
	seq      uint64
	inflight int
	started  bool
	stopped  bool

	cancelLoop context.CancelFunc
	loopDone   chan struct{}
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopErr    error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithJournal records batch transitions in j. A nil j keeps the no-op journal.
func WithJournal(j Journal) Option {
	return func(s *Scheduler) {
		if j != nil {
			s.journal = j
		}
	}
}

// WithClock replaces the real clock, mostly for tests.
func WithClock(c clock.WithTicker) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// New creates a stopped scheduler backed by a worker pool of
// cfg.MaxConcurrentBatches. Zero config values take the defaults.
func New(runner BatchRunner, cfg model.SchedulerConfig, opts ...Option) (*Scheduler, error) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = model.DefaultSchedulerConfig.TickInterval
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = model.DefaultSchedulerConfig.MaxBatchSize
	}
	if cfg.MaxConcurrentBatches <= 0 {
		cfg.MaxConcurrentBatches = model.DefaultSchedulerConfig.MaxConcurrentBatches
	}

	s := &Scheduler{
		runner:   runner,
		journal:  noopJournal{},
		cfg:      cfg,
		clock:    clock.RealClock{},
		pending:  make(map[string]*pendingBatch),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	pool, err := ants.NewPool(cfg.MaxConcurrentBatches, ants.WithPanicHandler(func(v any) {
		log.Errorf("batch worker panic: %v", v)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "creating batch worker pool")
	}
	s.pool = pool
	return s, nil
}

// Config returns the effective configuration after defaults.
func (s *Scheduler) Config() model.SchedulerConfig {
	return s.cfg
}

// Pending returns the number of batches waiting for a tick.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Submit creates a batch from queries. A high priority batch is executed before
// Submit returns and its handle is already resolved; other batches are queued
// and resolve when drained, timed out or dropped.
func (s *Scheduler) Submit(ctx context.Context, queries []model.Query, priority model.Priority) (*BatchHandle, error) {
	if err := validateSubmission(queries, priority, s.cfg.MaxBatchSize); err != nil {
		return nil, err
	}

	batch := &model.Batch{
		ID:        uuid.NewString(),
		Queries:   append([]model.Query(nil), queries...),
		Priority:  priority,
		Timeout:   priority.Timeout(),
		CreatedAt: s.clock.Now(),
	}
	h := newHandle(batch)

	if s.isStopped() {
		return nil, ErrSchedulerStopped
	}
	// The pending record must exist before a tick can see the batch.
	s.journal.BatchSubmitted(batch)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.journal.BatchFailed(batch.ID, model.BatchDropped, ErrSchedulerStopped)
		return nil, ErrSchedulerStopped
	}
	if priority == model.PriorityHigh {
		s.wg.Add(1)
		s.mu.Unlock()
		s.runImmediate(ctx, h)
		return h, nil
	}
	s.seq++
	s.pending[batch.ID] = &pendingBatch{handle: h, seq: s.seq}
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"batch_id": batch.ID,
		"priority": priority.String(),
		"queries":  len(batch.Queries),
	}).Debug("batch queued")
	return h, nil
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Scheduler) runImmediate(ctx context.Context, h *BatchHandle) {
	defer s.wg.Done()
	s.markDispatched(h)
	results, err := s.execute(ctx, h.batch)
	s.finish(h, results, err)
}

// Start runs the drain loop until ctx ends or Shutdown is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	ctx, s.cancelLoop = context.WithCancel(ctx)
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.loopDone)
	ticker := s.clock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	log.Infof("Will drain batches every %s", s.cfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			log.Debug("scheduler loop stopped")
			return
		case <-ticker.C():
			s.safeTick()
		}
	}
}

func (s *Scheduler) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("scheduler tick panic: %v", r)
		}
	}()
	s.tick()
}

// tick expires overdue batches and dispatches the highest priority, oldest
// remaining ones up to the free concurrency.
func (s *Scheduler) tick() {
	now := s.clock.Now()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	var expired []*BatchHandle
	ready := make([]*pendingBatch, 0, len(s.pending))
	for id, p := range s.pending {
		if !now.Before(p.handle.batch.Deadline()) {
			expired = append(expired, p.handle)
			delete(s.pending, id)
			continue
		}
		ready = append(ready, p)
	}
	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i].handle.batch, ready[j].handle.batch
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return ready[i].seq < ready[j].seq
	})
	limit := s.cfg.MaxConcurrentBatches - s.inflight
	if limit < 0 {
		limit = 0
	}
	if len(ready) > limit {
		ready = ready[:limit]
	}
	for _, p := range ready {
		delete(s.pending, p.handle.batch.ID)
		s.inflight++
		s.wg.Add(1)
	}
	s.mu.Unlock()

	for _, h := range expired {
		err := errors.Wrapf(ErrBatchTimeout, "batch %s not dispatched within %s", h.batch.ID, h.batch.Timeout)
		s.journal.BatchFailed(h.batch.ID, model.BatchTimedOut, err)
		h.resolve(model.BatchTimedOut, nil, err)
		log.WithField("batch_id", h.batch.ID).Warn("batch timed out")
	}

	for _, p := range ready {
		h := p.handle
		s.markDispatched(h)
		if err := s.pool.Submit(func() { s.dispatch(h) }); err != nil {
			s.releaseSlot()
			s.finish(h, nil, errors.Wrap(errBatchDispatchFail, err.Error()))
			s.wg.Done()
		}
	}
}

func (s *Scheduler) dispatch(h *BatchHandle) {
	defer s.wg.Done()
	results, err := s.execute(context.Background(), h.batch)
	s.releaseSlot()
	s.finish(h, results, err)
}

// releaseSlot frees concurrency before the handle resolves, so a caller woken by
// the handle sees the slot available on the next tick.
func (s *Scheduler) releaseSlot() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

func (s *Scheduler) markDispatched(h *BatchHandle) {
	h.setStatus(model.BatchDispatched)
	s.journal.BatchStatusChanged(h.batch.ID, model.BatchDispatched)
}

func (s *Scheduler) execute(ctx context.Context, batch *model.Batch) (results []model.QueryResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("batch %s panicked: %v", batch.ID, r)
		}
	}()
	return s.runner.Run(ctx, batch), nil
}

// finish journals the outcome before resolving h, so a woken waiter can read it
// back from the journal.
func (s *Scheduler) finish(h *BatchHandle, results []model.QueryResult, err error) {
	if err != nil {
		log.WithField("batch_id", h.batch.ID).WithError(err).Error("batch failed")
		s.journal.BatchFailed(h.batch.ID, model.BatchFailed, err)
		h.resolve(model.BatchFailed, nil, err)
		return
	}
	s.journal.BatchCompleted(h.batch.ID, results)
	h.resolve(model.BatchCompleted, results, nil)
}

// Shutdown stops the drain loop, drops every pending batch with
// ErrSchedulerStopped and waits for dispatched batches to finish. It returns
// ctx.Err() if the wait is cut short.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		started := s.started
		cancel := s.cancelLoop
		dropped := make([]*BatchHandle, 0, len(s.pending))
		for id, p := range s.pending {
			dropped = append(dropped, p.handle)
			delete(s.pending, id)
		}
		s.mu.Unlock()

		if started {
			cancel()
			<-s.loopDone
		}

		for _, h := range dropped {
			s.journal.BatchFailed(h.batch.ID, model.BatchDropped, ErrSchedulerStopped)
			h.resolve(model.BatchDropped, nil, ErrSchedulerStopped)
		}
		if len(dropped) > 0 {
			log.Infof("dropped %d pending batches", len(dropped))
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.stopErr = ctx.Err()
		}
		s.pool.Release()
	})
	return s.stopErr
}
