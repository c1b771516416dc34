package druginfo

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/pillbox/internal/metrics"
	"github.com/hyperjump/pillbox/internal/models"
	"github.com/hyperjump/pillbox/internal/storage"
)

// CachedClient serves lookups from a storage.Cache and falls through to the
// wrapped client on a miss. Cache failures are logged and never fail a lookup.
type CachedClient struct {
	next    Client
	cache   storage.Cache
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// CachedOption configures a CachedClient.
type CachedOption func(*CachedClient)

// WithCacheLogger sets the logger.
func WithCacheLogger(l *zap.Logger) CachedOption {
	return func(c *CachedClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records cache hits and misses.
func WithMetrics(m *metrics.Metrics) CachedOption {
	return func(c *CachedClient) { c.metrics = m }
}

// NewCachedClient wraps next with cache. ttl of zero stores entries without expiry.
func NewCachedClient(next Client, cache storage.Cache, ttl time.Duration, opts ...CachedOption) *CachedClient {
	c := &CachedClient{next: next, cache: cache, ttl: ttl, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cached entry for name, or fetches and stores it.
// Not-found results are not cached.
func (c *CachedClient) Lookup(ctx context.Context, name string) (*models.DrugInfo, error) {
	key := storage.Key(name)
	info, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		c.metrics.RecordCacheAccess(true)
		return info, nil
	case !errors.Is(err, storage.ErrCacheMiss):
		c.logger.Warn("drug info cache read failed", zap.String("name", name), zap.Error(err))
	}
	c.metrics.RecordCacheAccess(false)

	info, err = c.next.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, info, c.ttl); err != nil {
		c.logger.Warn("drug info cache write failed", zap.String("name", name), zap.Error(err))
	}
	return info, nil
}
