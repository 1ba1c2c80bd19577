package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"go-query-coordinator/internal/executor"
	"go-query-coordinator/internal/executor/fake"
	"go-query-coordinator/internal/metrics"
	"go-query-coordinator/internal/model"
)

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type runnerFunc func(ctx context.Context, batch *model.Batch) []model.QueryResult

func (f runnerFunc) Run(ctx context.Context, batch *model.Batch) []model.QueryResult {
	return f(ctx, batch)
}

// echoRunner returns one successful result per query.
func echoRunner() runnerFunc {
	return func(ctx context.Context, batch *model.Batch) []model.QueryResult {
		results := make([]model.QueryResult, len(batch.Queries))
		for i, q := range batch.Queries {
			results[i] = model.QueryResult{QueryID: q.ID, Type: q.Type}
		}
		return results
	}
}

// gatedRunner blocks every batch until release is closed.
type gatedRunner struct {
	release chan struct{}
	started chan string
	calls   atomic.Int32
}

func newGatedRunner() *gatedRunner {
	return &gatedRunner{release: make(chan struct{}), started: make(chan string, 100)}
}

func (g *gatedRunner) Run(ctx context.Context, batch *model.Batch) []model.QueryResult {
	g.calls.Add(1)
	g.started <- batch.ID
	<-g.release
	return echoRunner()(ctx, batch)
}

type journalEvent struct {
	id     string
	status model.BatchStatus
}

type recordingJournal struct {
	mu     sync.Mutex
	events []journalEvent
}

func (j *recordingJournal) add(id string, status model.BatchStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, journalEvent{id, status})
}

func (j *recordingJournal) BatchSubmitted(b *model.Batch) { j.add(b.ID, model.BatchPending) }
func (j *recordingJournal) BatchStatusChanged(id string, s model.BatchStatus) {
	j.add(id, s)
}
func (j *recordingJournal) BatchCompleted(id string, _ []model.QueryResult) {
	j.add(id, model.BatchCompleted)
}
func (j *recordingJournal) BatchFailed(id string, s model.BatchStatus, _ error) { j.add(id, s) }

func (j *recordingJournal) statuses(id string) []model.BatchStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []model.BatchStatus
	for _, e := range j.events {
		if e.id == id {
			out = append(out, e.status)
		}
	}
	return out
}

func queries(prefix string, n int) []model.Query {
	out := make([]model.Query, n)
	for i := range out {
		out[i] = model.Query{
			ID:            fmt.Sprintf("%s-%d", prefix, i),
			Type:          model.QueryTypeUserBehavior,
			Body:          "SELECT 1",
			EstimatedCost: 1,
		}
	}
	return out
}

func newTestScheduler(t *testing.T, runner BatchRunner, cfg model.SchedulerConfig, opts ...Option) *Scheduler {
	t.Helper()
	s, err := New(runner, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func waitFor(t *testing.T, h *BatchHandle) ([]model.QueryResult, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.Wait(ctx)
}

func TestSubmit_TimeoutFollowsPriority(t *testing.T) {
	s := newTestScheduler(t, echoRunner(), model.DefaultSchedulerConfig,
		WithClock(testingclock.NewFakeClock(baseTime)))

	tests := map[model.Priority]time.Duration{
		model.PriorityHigh:   5 * time.Second,
		model.PriorityMedium: 15 * time.Second,
		model.PriorityLow:    30 * time.Second,
	}
	for priority, want := range tests {
		h, err := s.Submit(context.Background(), queries(priority.String(), 1), priority)
		require.NoError(t, err)
		assert.Equal(t, want, h.Batch().Timeout, priority.String())
		assert.Equal(t, priority, h.Batch().Priority)
		assert.NotEmpty(t, h.ID())
	}
}

func TestSubmit_TooLarge(t *testing.T) {
	s := newTestScheduler(t, echoRunner(), model.DefaultSchedulerConfig)

	h, err := s.Submit(context.Background(), queries("q", 51), model.PriorityMedium)
	assert.Nil(t, h)
	assert.True(t, errors.Is(err, ErrBatchTooLarge))
	assert.Equal(t, 0, s.Pending())

	_, err = s.Submit(context.Background(), queries("q", 50), model.PriorityMedium)
	assert.NoError(t, err)
	assert.Equal(t, 1, s.Pending())
}

func TestSubmit_Rejections(t *testing.T) {
	s := newTestScheduler(t, echoRunner(), model.DefaultSchedulerConfig)

	_, err := s.Submit(context.Background(), nil, model.PriorityLow)
	assert.True(t, errors.Is(err, ErrEmptyBatch))

	dup := append(queries("q", 2), queries("q", 1)...)
	_, err = s.Submit(context.Background(), dup, model.PriorityLow)
	assert.True(t, errors.Is(err, ErrDuplicateQueryID))

	_, err = s.Submit(context.Background(), queries("q", 1), model.Priority(7))
	assert.True(t, errors.Is(err, ErrInvalidPriority))

	assert.Equal(t, 0, s.Pending())
}

func TestSubmit_HighPriorityRunsImmediately(t *testing.T) {
	registry := metrics.NewRegistry()
	exec := executor.New(fake.NewAccessor(time.Millisecond), registry)
	s := newTestScheduler(t, exec, model.DefaultSchedulerConfig)

	start := time.Now()
	h, err := s.Submit(context.Background(), queries("hi", 1), model.PriorityHigh)
	require.NoError(t, err)

	select {
	case <-h.Done():
	default:
		t.Fatal("high priority handle not resolved on return")
	}
	results, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, results, 1)
	assert.Equal(t, "hi-0", results[0].QueryID)
	assert.Equal(t, model.BatchCompleted, h.Status())
	assert.Equal(t, 0, s.Pending())
}

func TestSubmit_ConcurrentHighPriorityBatchesStaySeparate(t *testing.T) {
	exec := executor.New(fake.NewAccessor(100*time.Microsecond), metrics.NewRegistry())
	s := newTestScheduler(t, exec, model.DefaultSchedulerConfig)

	const callers = 2
	results := make([][]model.QueryResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := s.Submit(context.Background(), queries(fmt.Sprintf("caller%d", i), 10), model.PriorityHigh)
			if !assert.NoError(t, err) {
				return
			}
			results[i], err = h.Wait(context.Background())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.Len(t, results[i], 10)
		for j, r := range results[i] {
			assert.Equal(t, fmt.Sprintf("caller%d-%d", i, j), r.QueryID)
		}
	}
}

func TestTick_DrainsPending(t *testing.T) {
	s := newTestScheduler(t, echoRunner(), model.DefaultSchedulerConfig,
		WithClock(testingclock.NewFakeClock(baseTime)))

	h, err := s.Submit(context.Background(), queries("m", 3), model.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, model.BatchPending, h.Status())

	s.tick()
	results, err := waitFor(t, h)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("m-%d", i), r.QueryID)
	}
	assert.Equal(t, model.BatchCompleted, h.Status())
	assert.Equal(t, 0, s.Pending())
}

func TestTick_PriorityThenAgeOrder(t *testing.T) {
	fakeClock := testingclock.NewFakeClock(baseTime)
	cfg := model.DefaultSchedulerConfig
	cfg.MaxConcurrentBatches = 1
	s := newTestScheduler(t, echoRunner(), cfg, WithClock(fakeClock))

	submit := func(prefix string, p model.Priority) *BatchHandle {
		h, err := s.Submit(context.Background(), queries(prefix, 1), p)
		require.NoError(t, err)
		fakeClock.Step(time.Second)
		return h
	}
	lowOld := submit("low-old", model.PriorityLow)
	medOld := submit("med-old", model.PriorityMedium)
	medNew := submit("med-new", model.PriorityMedium)
	lowNew := submit("low-new", model.PriorityLow)

	for _, want := range []*BatchHandle{medOld, medNew, lowOld, lowNew} {
		s.tick()
		_, err := waitFor(t, want)
		require.NoError(t, err, want.Batch().Queries[0].ID)
	}
	assert.Equal(t, 0, s.Pending())
}

func TestTick_RespectsConcurrencyLimit(t *testing.T) {
	runner := newGatedRunner()
	cfg := model.DefaultSchedulerConfig
	cfg.MaxConcurrentBatches = 2
	s := newTestScheduler(t, runner, cfg, WithClock(testingclock.NewFakeClock(baseTime)))

	handles := make([]*BatchHandle, 4)
	for i := range handles {
		h, err := s.Submit(context.Background(), queries(fmt.Sprintf("b%d", i), 1), model.PriorityLow)
		require.NoError(t, err)
		handles[i] = h
	}

	s.tick()
	<-runner.started
	<-runner.started
	assert.Equal(t, 2, s.Pending())

	s.tick()
	assert.Equal(t, 2, s.Pending())
	assert.Equal(t, int32(2), runner.calls.Load())

	close(runner.release)
	for _, h := range handles[:2] {
		_, err := waitFor(t, h)
		require.NoError(t, err)
	}

	s.tick()
	for _, h := range handles[2:] {
		_, err := waitFor(t, h)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(4), runner.calls.Load())
}

func TestTick_ExpiresOverdueBatches(t *testing.T) {
	fakeClock := testingclock.NewFakeClock(baseTime)
	journal := &recordingJournal{}
	var calls atomic.Int32
	runner := runnerFunc(func(ctx context.Context, b *model.Batch) []model.QueryResult {
		calls.Add(1)
		return nil
	})
	s := newTestScheduler(t, runner, model.DefaultSchedulerConfig, WithClock(fakeClock), WithJournal(journal))

	medium, err := s.Submit(context.Background(), queries("m", 1), model.PriorityMedium)
	require.NoError(t, err)
	low, err := s.Submit(context.Background(), queries("l", 1), model.PriorityLow)
	require.NoError(t, err)

	fakeClock.Step(15 * time.Second)
	s.cfg.MaxConcurrentBatches = 0
	s.tick()

	_, err = waitFor(t, medium)
	assert.True(t, errors.Is(err, ErrBatchTimeout))
	assert.Equal(t, model.BatchTimedOut, medium.Status())
	assert.Equal(t, model.BatchPending, low.Status())
	assert.Equal(t, 1, s.Pending())

	fakeClock.Step(15 * time.Second)
	s.tick()
	_, err = waitFor(t, low)
	assert.True(t, errors.Is(err, ErrBatchTimeout))

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, []model.BatchStatus{model.BatchPending, model.BatchTimedOut}, journal.statuses(medium.ID()))
}

func TestTick_AtMostOnceDispatch(t *testing.T) {
	var calls atomic.Int32
	runner := runnerFunc(func(ctx context.Context, b *model.Batch) []model.QueryResult {
		calls.Add(1)
		return echoRunner()(ctx, b)
	})
	s := newTestScheduler(t, runner, model.DefaultSchedulerConfig, WithClock(testingclock.NewFakeClock(baseTime)))

	h, err := s.Submit(context.Background(), queries("once", 2), model.PriorityMedium)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.tick()
		}()
	}
	wg.Wait()

	_, err = waitFor(t, h)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTick_RecoversRunnerPanic(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context, b *model.Batch) []model.QueryResult {
		panic("boom")
	})
	s := newTestScheduler(t, runner, model.DefaultSchedulerConfig, WithClock(testingclock.NewFakeClock(baseTime)))

	h, err := s.Submit(context.Background(), queries("p", 1), model.PriorityLow)
	require.NoError(t, err)
	s.tick()

	_, err = waitFor(t, h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, model.BatchFailed, h.Status())
}

func TestStart_DrainsOnTicker(t *testing.T) {
	cfg := model.DefaultSchedulerConfig
	cfg.TickInterval = 10 * time.Millisecond
	s := newTestScheduler(t, echoRunner(), cfg)
	s.Start(context.Background())

	h, err := s.Submit(context.Background(), queries("bg", 2), model.PriorityLow)
	require.NoError(t, err)
	results, err := waitFor(t, h)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestShutdown_DropsPending(t *testing.T) {
	journal := &recordingJournal{}
	var calls atomic.Int32
	runner := runnerFunc(func(ctx context.Context, b *model.Batch) []model.QueryResult {
		calls.Add(1)
		return nil
	})
	s, err := New(runner, model.DefaultSchedulerConfig, WithJournal(journal))
	require.NoError(t, err)

	h, err := s.Submit(context.Background(), queries("late", 1), model.PriorityLow)
	require.NoError(t, err)
	require.NoError(t, s.Shutdown(context.Background()))

	_, err = waitFor(t, h)
	assert.True(t, errors.Is(err, ErrSchedulerStopped))
	assert.Equal(t, model.BatchDropped, h.Status())
	assert.Equal(t, []model.BatchStatus{model.BatchPending, model.BatchDropped}, journal.statuses(h.ID()))
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 0, s.Pending())

	_, err = s.Submit(context.Background(), queries("after", 1), model.PriorityHigh)
	assert.True(t, errors.Is(err, ErrSchedulerStopped))
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestShutdown_WaitsForDispatched(t *testing.T) {
	runner := newGatedRunner()
	s, err := New(runner, model.DefaultSchedulerConfig, WithClock(testingclock.NewFakeClock(baseTime)))
	require.NoError(t, err)

	h, err := s.Submit(context.Background(), queries("inflight", 1), model.PriorityMedium)
	require.NoError(t, err)
	s.tick()
	<-runner.started

	stopped := make(chan error, 1)
	go func() { stopped <- s.Shutdown(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("shutdown returned while a batch was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	require.NoError(t, <-stopped)
	results, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestWait_ContextEndsFirst(t *testing.T) {
	s := newTestScheduler(t, echoRunner(), model.DefaultSchedulerConfig)
	h, err := s.Submit(context.Background(), queries("w", 1), model.PriorityLow)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.BatchPending, h.Status())
	assert.Equal(t, 1, s.Pending())
}

// slowJournal holds BatchSubmitted until release is closed.
type slowJournal struct {
	recordingJournal
	entered chan string
	release chan struct{}
}

func newSlowJournal() *slowJournal {
	return &slowJournal{entered: make(chan string, 1), release: make(chan struct{})}
}

func (j *slowJournal) BatchSubmitted(b *model.Batch) {
	j.entered <- b.ID
	<-j.release
	j.recordingJournal.BatchSubmitted(b)
}

func TestSubmit_JournalsPendingBeforeTickCanDispatch(t *testing.T) {
	journal := newSlowJournal()
	s := newTestScheduler(t, echoRunner(), model.DefaultSchedulerConfig, WithJournal(journal))

	type submitted struct {
		h   *BatchHandle
		err error
	}
	out := make(chan submitted, 1)
	go func() {
		h, err := s.Submit(context.Background(), queries("q", 1), model.PriorityMedium)
		out <- submitted{h, err}
	}()

	id := <-journal.entered
	s.tick()
	assert.Empty(t, journal.statuses(id))
	close(journal.release)

	res := <-out
	require.NoError(t, res.err)
	s.tick()
	_, err := waitFor(t, res.h)
	require.NoError(t, err)
	assert.Equal(t,
		[]model.BatchStatus{model.BatchPending, model.BatchDispatched, model.BatchCompleted},
		journal.statuses(id))
}

func TestSubmit_StoppedWhileJournalingIsDropped(t *testing.T) {
	journal := newSlowJournal()
	s := newTestScheduler(t, echoRunner(), model.DefaultSchedulerConfig, WithJournal(journal))

	errs := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), queries("q", 1), model.PriorityLow)
		errs <- err
	}()

	id := <-journal.entered
	require.NoError(t, s.Shutdown(context.Background()))
	close(journal.release)

	assert.True(t, errors.Is(<-errs, ErrSchedulerStopped))
	assert.Equal(t, []model.BatchStatus{model.BatchPending, model.BatchDropped}, journal.statuses(id))
	assert.Equal(t, 0, s.Pending())
}
