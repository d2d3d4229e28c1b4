package redis

import (
	"context"
	"time"

	"payment-events/internal/domain/ports/adapter"
	"payment-events/internal/infra/metrics"
)

var _ adapter.ProcessedCache = (*ProcessedCache)(nil)

// ProcessedCache remembers provider event ids whose ledger row is processed.
// It never stores pending or failed ids, so a stale entry can only ever
// repeat a true "already processed" answer.
type ProcessedCache struct {
	cli    RedisClient
	prefix string
}

func NewProcessedCache(cli RedisClient, prefix string) *ProcessedCache {
	return &ProcessedCache{cli: cli, prefix: prefix}
}

func (c *ProcessedCache) key(id string) string {
	return c.prefix + ":processed:" + id
}

func (c *ProcessedCache) IsProcessed(ctx context.Context, id string) (bool, error) {
	_, err := c.cli.Get(ctx, c.key(id))
	switch {
	case err == nil:
		metrics.IncCacheRequest("processed", "hit")
		return true, nil
	case IsNil(err):
		metrics.IncCacheRequest("processed", "miss")
		return false, nil
	default:
		metrics.IncCacheRequest("processed", "error")
		return false, err
	}
}

func (c *ProcessedCache) MarkProcessed(ctx context.Context, id string, ttl time.Duration) error {
	return c.cli.Set(ctx, c.key(id), "1", ttl)
}
