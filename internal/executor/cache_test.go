package executor

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-query-coordinator/internal/executor/fake"
	"go-query-coordinator/internal/model"
)

func boundQuery(t *testing.T, value interface{}) model.Query {
	q := model.Query{
		ID:         "user_session_summary",
		Type:       model.QueryTypeUserBehavior,
		Body:       "SELECT $1",
		Parameters: []model.Parameter{{Name: "user_id"}},
		Indexes:    []string{"idx_a"},
	}
	bound, err := q.Bind(model.Parameter{Name: "user_id", Value: value})
	require.NoError(t, err)
	return bound
}

func TestCachingAccessor_HitAfterMiss(t *testing.T) {
	backend := fake.NewAccessor(0)
	c := NewCachingAccessor(backend, time.Minute, time.Minute)
	q := boundQuery(t, "u1")

	first, err := c.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := c.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, []string{"idx_a"}, second.IndexesUsed)

	assert.Len(t, backend.Calls(), 1)
	assert.Equal(t, 1, c.Len())
}

func TestCachingAccessor_KeyIncludesArgs(t *testing.T) {
	backend := fake.NewAccessor(0)
	c := NewCachingAccessor(backend, time.Minute, time.Minute)

	_, err := c.Execute(context.Background(), boundQuery(t, "u1"))
	require.NoError(t, err)
	r, err := c.Execute(context.Background(), boundQuery(t, "u2"))
	require.NoError(t, err)
	assert.False(t, r.FromCache)
	assert.Len(t, backend.Calls(), 2)
}

func TestCachingAccessor_ErrorsNotCached(t *testing.T) {
	backend := fake.NewAccessor(0)
	backend.FailQuery("user_session_summary", errors.New("database is locked"))
	c := NewCachingAccessor(backend, time.Minute, time.Minute)
	q := boundQuery(t, "u1")

	_, err := c.Execute(context.Background(), q)
	require.Error(t, err)
	_, err = c.Execute(context.Background(), q)
	require.Error(t, err)
	assert.Len(t, backend.Calls(), 2)
	assert.Equal(t, 0, c.Len())
}

func TestCachingAccessor_Invalidate(t *testing.T) {
	backend := fake.NewAccessor(0)
	c := NewCachingAccessor(backend, time.Minute, time.Minute)
	q := boundQuery(t, "u1")

	_, _ = c.Execute(context.Background(), q)
	c.Invalidate()
	r, err := c.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, r.FromCache)
}
