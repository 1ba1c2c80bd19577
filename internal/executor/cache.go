package executor

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"go-query-coordinator/internal/model"
)

// CachingAccessor serves repeated queries from memory. Results are keyed by
// Query.CacheKey, so the same template with different bound values misses.
type CachingAccessor struct {
	next  DataAccessor
	cache *cache.Cache
}

// NewCachingAccessor wraps next with a TTL cache keyed by Query.CacheKey.
func NewCachingAccessor(next DataAccessor, ttl, cleanupInterval time.Duration) *CachingAccessor {
	return &CachingAccessor{
		next:  next,
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (c *CachingAccessor) Execute(ctx context.Context, query model.Query) (model.RawResult, error) {
	key := query.CacheKey()
	if v, ok := c.cache.Get(key); ok {
		raw := v.(model.RawResult)
		raw.FromCache = true
		raw.IndexesUsed = append([]string(nil), raw.IndexesUsed...)
		return raw, nil
	}

	raw, err := c.next.Execute(ctx, query)
	if err != nil {
		return raw, err
	}
	raw.FromCache = false
	c.cache.SetDefault(key, raw)
	return raw, nil
}

// Invalidate drops every cached result.
func (c *CachingAccessor) Invalidate() {
	c.cache.Flush()
}

func (c *CachingAccessor) Len() int {
	return c.cache.ItemCount()
}
