package postgres

import (
	"context"
	"encoding/json"
	"time"

	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/repository"
	"payment-events/internal/infra/metrics"
	red "payment-events/internal/infra/redis"
)

var _ repository.AffiliateRepository = (*affiliateRepoCacheDecorator)(nil)

// affiliateRepoCacheDecorator caches active affiliates by code. Deactivation
// takes effect once the entry expires.
type affiliateRepoCacheDecorator struct {
	inner  repository.AffiliateRepository
	cache  red.RedisClient
	prefix string
	ttl    time.Duration
}

func NewAffiliateRepoCacheDecorator(inner repository.AffiliateRepository, cache red.RedisClient, prefix string, ttl time.Duration) repository.AffiliateRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &affiliateRepoCacheDecorator{
		inner:  inner,
		cache:  cache,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (d *affiliateRepoCacheDecorator) FindActiveByCode(ctx context.Context, tx repository.Tx, code string) (*model.Affiliate, error) {
	key := d.prefix + ":affiliate:" + code
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var a model.Affiliate
		if json.Unmarshal([]byte(val), &a) == nil {
			metrics.IncCacheRequest("affiliate", "hit")
			return &a, nil
		}
	} else if !red.IsNil(err) {
		metrics.IncCacheRequest("affiliate", "error")
	}

	metrics.IncCacheRequest("affiliate", "miss")
	a, err := d.inner.FindActiveByCode(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(a); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return a, nil
}
