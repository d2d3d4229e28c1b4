//go:build !integration

package postgres

import (
	"context"
	"time"

	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/repository"
	red "payment-events/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerAffiliateRepo mocks the database repository the decorator wraps.
type mockInnerAffiliateRepo struct {
	FindActiveByCodeFunc func(ctx context.Context, tx repository.Tx, code string) (*model.Affiliate, error)
}

func (m *mockInnerAffiliateRepo) FindActiveByCode(ctx context.Context, tx repository.Tx, code string) (*model.Affiliate, error) {
	return m.FindActiveByCodeFunc(ctx, tx, code)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc        func(ctx context.Context, key string) (string, error)
	SetFunc        func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc      func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelFunc        func(ctx context.Context, keys ...string) error
	PingFunc       func(ctx context.Context) error
	IncrFunc       func(ctx context.Context, key string) (int64, error)
	ExpireFunc     func(ctx context.Context, key string, expiration time.Duration) error
	DelIfEqualFunc func(ctx context.Context, key, value string) (bool, error)
	CloseFunc      func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) DelIfEqual(ctx context.Context, key, value string) (bool, error) {
	return m.DelIfEqualFunc(ctx, key, value)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
