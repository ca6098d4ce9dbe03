package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"magick-workers/internal/common/logger"
	"magick-workers/internal/common/metrics"
	"magick-workers/internal/models"
)

// CachedLoader keeps a JSON snapshot of the inner loader's catalog in Redis.
// Redis failures never fail a load; they fall through to the inner loader.
type CachedLoader struct {
	inner  Loader
	redis  redis.Cmdable
	key    string
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedLoader(inner Loader, client redis.Cmdable, key string, ttl time.Duration, log logger.Logger) *CachedLoader {
	return &CachedLoader{
		inner:  inner,
		redis:  client,
		key:    key,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "catalog.cache", "key": key}),
	}
}

func (c *CachedLoader) Name() string { return SourceName(c.inner) }

func (c *CachedLoader) Load(ctx context.Context) ([]models.Business, error) {
	val, err := c.redis.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var businesses []models.Business
		jsonErr := json.Unmarshal(val, &businesses)
		if jsonErr == nil {
			metrics.CatalogCacheResults.WithLabelValues("hit").Inc()
			return businesses, nil
		}
		c.logger.Warn("discarding corrupt catalog snapshot", map[string]interface{}{"error": jsonErr.Error()})
	case errors.Is(err, redis.Nil):
	default:
		metrics.CatalogCacheResults.WithLabelValues("error").Inc()
		c.logger.Warn("catalog cache read failed", map[string]interface{}{"error": err.Error()})
	}
	metrics.CatalogCacheResults.WithLabelValues("miss").Inc()

	businesses, err := c.inner.Load(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(businesses); err == nil {
		if err := c.redis.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("catalog cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return businesses, nil
}

// Invalidate drops the snapshot so the next Load reads the inner loader.
func (c *CachedLoader) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, c.key).Err()
}
