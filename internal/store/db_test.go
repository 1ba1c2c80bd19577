package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"go-query-coordinator/internal/executor"
	"go-query-coordinator/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testBatch(id string, priority model.Priority, createdAt time.Time, queryIDs ...string) *model.Batch {
	b := &model.Batch{ID: id, Priority: priority, Timeout: priority.Timeout(), CreatedAt: createdAt}
	for _, qid := range queryIDs {
		b.Queries = append(b.Queries, model.Query{ID: qid, Type: model.QueryTypeUserBehavior})
	}
	return b
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveBatch(context.Background(), testBatch("b1", model.PriorityLow, time.Now(), "q1")))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	batch, err := second.GetBatch(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchPending, batch.Status)
}

func TestSaveAndGetBatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	created := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveBatch(ctx, testBatch("b1", model.PriorityMedium, created, "q1", "q2")))

	batch, err := db.GetBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", batch.ID)
	assert.Equal(t, "medium", batch.Priority)
	assert.Equal(t, model.BatchPending, batch.Status)
	assert.Equal(t, model.StringList{"q1", "q2"}, batch.QueryIDs)
	assert.Equal(t, int64(15000), batch.TimeoutMs)
	assert.True(t, created.Equal(batch.CreatedAt))
	assert.False(t, batch.CompletedAt.Valid)

	_, err = db.GetBatch(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateBatchStatus(t *testing.T) {
	db := openTestDB(t)
	completedAt := time.Date(2024, 2, 1, 10, 0, 3, 0, time.UTC)
	db.clock = testingclock.NewFakePassiveClock(completedAt)
	ctx := context.Background()

	require.NoError(t, db.SaveBatch(ctx, testBatch("b1", model.PriorityLow, completedAt, "q1")))
	require.NoError(t, db.UpdateBatchStatus(ctx, "b1", model.BatchDispatched))

	batch, err := db.GetBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchDispatched, batch.Status)
	assert.False(t, batch.CompletedAt.Valid)

	require.NoError(t, db.UpdateBatchStatus(ctx, "b1", model.BatchCompleted))
	batch, err = db.GetBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, batch.Status)
	require.True(t, batch.CompletedAt.Valid)
	assert.True(t, completedAt.Equal(batch.CompletedAt.Time))
}

func TestListBatches_Filters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveBatch(ctx, testBatch("old-low", model.PriorityLow, base, "q")))
	require.NoError(t, db.SaveBatch(ctx, testBatch("mid-med", model.PriorityMedium, base.Add(time.Minute), "q")))
	require.NoError(t, db.SaveBatch(ctx, testBatch("new-low", model.PriorityLow, base.Add(2*time.Minute), "q")))
	require.NoError(t, db.UpdateBatchStatus(ctx, "mid-med", model.BatchCompleted))

	all, err := db.ListBatches(ctx, model.BatchFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new-low", all[0].ID)
	assert.Equal(t, "mid-med", all[1].ID)
	assert.Equal(t, "old-low", all[2].ID)

	low, err := db.ListBatches(ctx, model.BatchFilter{Priority: "low"})
	require.NoError(t, err)
	assert.Len(t, low, 2)

	completed, err := db.ListBatches(ctx, model.BatchFilter{Status: model.BatchCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "mid-med", completed[0].ID)

	limited, err := db.ListBatches(ctx, model.BatchFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new-low", limited[0].ID)

	none, err := db.ListBatches(ctx, model.BatchFilter{Status: model.BatchDropped})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestJournal_RecordsExecutionsAndErrors(t *testing.T) {
	db := openTestDB(t)
	j := NewJournal(db)
	ctx := context.Background()

	batch := testBatch("b1", model.PriorityMedium, time.Now(), "ok", "bad")
	j.BatchSubmitted(batch)
	j.BatchStatusChanged("b1", model.BatchDispatched)
	j.QueryExecuted("b1", model.QueryResult{
		QueryID:       "ok",
		Type:          model.QueryTypeTrendingAnalysis,
		ExecutionTime: 12 * time.Millisecond,
		RowsAffected:  3,
		FromCache:     true,
		IndexesUsed:   []string{"idx_a"},
	})
	failure := &executor.QueryExecutionError{QueryID: "bad", Type: model.QueryTypeTrendingAnalysis, Err: errors.New("syntax error")}
	j.QueryExecuted("b1", model.QueryResult{QueryID: "bad", Type: model.QueryTypeTrendingAnalysis, Err: failure, Error: failure.Error()})
	j.BatchCompleted("b1", nil)

	batchRecord, err := db.GetBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, batchRecord.Status)

	executions, err := db.GetQueryExecutions(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "ok", executions[0].QueryID)
	assert.Equal(t, "trending_analysis", executions[0].QueryType)
	assert.InDelta(t, 12.0, executions[0].ExecutionMs, 1e-9)
	assert.Equal(t, int64(3), executions[0].RowsAffected)
	assert.True(t, executions[0].FromCache)
	assert.Equal(t, model.StringList{"idx_a"}, executions[0].IndexesUsed)
	assert.Contains(t, executions[1].Error, "syntax error")

	batchErrors, err := db.GetBatchErrors(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, batchErrors, 1)
	assert.Equal(t, "bad", batchErrors[0].QueryID)
	assert.Contains(t, batchErrors[0].ErrorMessage, "syntax error")
}

func TestJournal_BatchFailed(t *testing.T) {
	db := openTestDB(t)
	j := NewJournal(db)

	j.BatchSubmitted(testBatch("b1", model.PriorityLow, time.Now(), "q"))
	j.BatchFailed("b1", model.BatchTimedOut, errors.New("batch timed out before dispatch"))

	batch, err := db.GetBatch(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchTimedOut, batch.Status)
	assert.True(t, batch.CompletedAt.Valid)

	batchErrors, err := db.GetBatchErrors(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, batchErrors, 1)
	assert.Empty(t, batchErrors[0].QueryID)
}
