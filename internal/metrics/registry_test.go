package metrics

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"go-query-coordinator/internal/model"
)

func TestRecordExecution_MeanMatchesArithmeticMean(t *testing.T) {
	r := NewRegistry()
	samples := []time.Duration{120 * time.Millisecond, 80 * time.Millisecond, 1500 * time.Millisecond, 3 * time.Millisecond, 0}

	var sum float64
	for _, s := range samples {
		r.RecordExecution(model.QueryTypeUserBehavior, s, false)
		sum += float64(s) / float64(time.Millisecond)
	}

	m, ok := r.Get(model.QueryTypeUserBehavior)
	require.True(t, ok)
	assert.InDelta(t, sum/float64(len(samples)), m.AverageExecutionTime, 1e-9)
	assert.Equal(t, int64(len(samples)), m.TotalExecutions)
	assert.Equal(t, int64(1), m.SlowQueries)
}

func TestRecordExecution_SlowThresholdIsStrict(t *testing.T) {
	r := NewRegistry()
	r.RecordExecution(model.QueryTypeScreenPerformance, model.SlowQueryThreshold, false)
	r.RecordExecution(model.QueryTypeScreenPerformance, model.SlowQueryThreshold+time.Millisecond, false)

	m, _ := r.Get(model.QueryTypeScreenPerformance)
	assert.Equal(t, int64(1), m.SlowQueries)
}

func TestRecordExecution_CacheHitRateInRange(t *testing.T) {
	r := NewRegistry()
	rng := rand.New(rand.NewSource(7))
	hits := 0
	for i := 1; i <= 500; i++ {
		hit := rng.Intn(3) == 0
		if hit {
			hits++
		}
		r.RecordExecution(model.QueryTypeTrendingAnalysis, time.Millisecond, hit)

		m, _ := r.Get(model.QueryTypeTrendingAnalysis)
		require.GreaterOrEqual(t, m.CacheHitRate, 0.0)
		require.LessOrEqual(t, m.CacheHitRate, 1.0)
		require.InDelta(t, float64(hits)/float64(i), m.CacheHitRate, 1e-9)
	}
}

func TestRecordExecution_AllHits(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 1000; i++ {
		r.RecordExecution(model.QueryTypeRecommendationData, time.Millisecond, true)
	}
	m, _ := r.Get(model.QueryTypeRecommendationData)
	assert.LessOrEqual(t, m.CacheHitRate, 1.0)
	assert.InDelta(t, 1.0, m.CacheHitRate, 1e-9)
}

func TestRecordExecution_StampsClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(WithClock(testingclock.NewFakePassiveClock(now)))
	r.RecordExecution(model.QueryTypeUserBehavior, time.Millisecond, false)
	m, _ := r.Get(model.QueryTypeUserBehavior)
	assert.Equal(t, now, m.LastExecutedAt)
}

func TestSetIndexEfficiency_Clamped(t *testing.T) {
	r := NewRegistry()
	r.SetIndexEfficiency(model.QueryTypeUserBehavior, 1.7)
	m, _ := r.Get(model.QueryTypeUserBehavior)
	assert.Equal(t, 1.0, m.IndexEfficiency)

	r.SetIndexEfficiency(model.QueryTypeUserBehavior, -0.2)
	m, _ = r.Get(model.QueryTypeUserBehavior)
	assert.Equal(t, 0.0, m.IndexEfficiency)
	assert.Equal(t, int64(0), m.TotalExecutions)
}

func TestDefaultIndexEfficiency(t *testing.T) {
	r := NewRegistry()
	r.RecordExecution(model.QueryTypeUserBehavior, time.Millisecond, false)
	m, _ := r.Get(model.QueryTypeUserBehavior)
	assert.Equal(t, 1.0, m.IndexEfficiency)
}

func TestSnapshot_IsImmutable(t *testing.T) {
	r := NewRegistry()
	r.RecordExecution(model.QueryTypeUserBehavior, 10*time.Millisecond, false)

	snapshot := r.Snapshot()
	before := snapshot[model.QueryTypeUserBehavior]

	r.RecordExecution(model.QueryTypeUserBehavior, 990*time.Millisecond, true)
	r.RecordExecution(model.QueryTypeScreenPerformance, time.Millisecond, false)

	assert.Equal(t, before, snapshot[model.QueryTypeUserBehavior])
	assert.Len(t, snapshot, 1)
	assert.Len(t, r.Snapshot(), 2)
}

func TestGet_Unknown(t *testing.T) {
	_, ok := NewRegistry().Get(model.QueryTypeTrendingAnalysis)
	assert.False(t, ok)
}

func TestRecordExecution_Concurrent(t *testing.T) {
	r := NewRegistry()
	const perWriter = 200
	var wg sync.WaitGroup
	for _, qt := range model.AllQueryTypes() {
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(qt model.QueryType) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					r.RecordExecution(qt, 10*time.Millisecond, i%2 == 0)
				}
			}(qt)
		}
	}
	wg.Wait()

	snapshot := r.Snapshot()
	require.Len(t, snapshot, len(model.AllQueryTypes()))
	for qt, m := range snapshot {
		assert.Equal(t, int64(4*perWriter), m.TotalExecutions, qt.String())
		assert.InDelta(t, 10.0, m.AverageExecutionTime, 1e-9)
		assert.InDelta(t, 0.5, m.CacheHitRate, 1e-9)
	}
}

func TestCollector(t *testing.T) {
	r := NewRegistry()
	c := NewCollector(r)
	assert.Equal(t, 0, testutil.CollectAndCount(c))

	r.RecordExecution(model.QueryTypeUserBehavior, 1200*time.Millisecond, false)
	r.RecordExecution(model.QueryTypeScreenPerformance, 10*time.Millisecond, true)
	assert.Equal(t, 10, testutil.CollectAndCount(c))
	assert.Equal(t, 4, testutil.CollectAndCount(c, "query_coordinator_executions_total", "query_coordinator_slow_queries_total"))
}
