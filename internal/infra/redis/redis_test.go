//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestProcessedCache(t *testing.T) {
	ctx := context.Background()
	cli := newMemClient()
	cache := NewProcessedCache(cli, "pe")

	hit, err := cache.IsProcessed(ctx, "evt_1")
	if err != nil || hit {
		t.Fatalf("expected miss, got %v (%v)", hit, err)
	}

	if err := cache.MarkProcessed(ctx, "evt_1", time.Hour); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if cli.ttl["pe:processed:evt_1"] != time.Hour {
		t.Errorf("expected key with ttl, got %v", cli.ttl)
	}
	hit, err = cache.IsProcessed(ctx, "evt_1")
	if err != nil || !hit {
		t.Fatalf("expected hit, got %v (%v)", hit, err)
	}

	t.Run("backend error is surfaced, not a hit", func(t *testing.T) {
		cli.GetFunc = func(ctx context.Context, key string) (string, error) { return "", errDown }
		defer func() { cli.GetFunc = nil }()
		hit, err := cache.IsProcessed(ctx, "evt_1")
		if !errors.Is(err, errDown) || hit {
			t.Errorf("expected error and no hit, got %v (%v)", hit, err)
		}
	})
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocker(newMemClient(), "pe")

	tok, err := l.TryLock(ctx, "sweep", time.Minute)
	if err != nil || tok == "" {
		t.Fatalf("expected lock, got %q (%v)", tok, err)
	}
	if _, err := l.TryLock(ctx, "sweep", time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}

	// a foreign token must not release the lock
	_ = l.Unlock(ctx, "sweep", "not-mine")
	if _, err := l.TryLock(ctx, "sweep", time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected lock to survive foreign unlock, got %v", err)
	}

	if err := l.Unlock(ctx, "sweep", tok); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := l.TryLock(ctx, "sweep", time.Minute); err != nil {
		t.Errorf("expected relock after unlock, got %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	cli := newMemClient()
	rl := NewRateLimiter(cli, "pe")
	key := AdminClientKey("10.0.0.1")

	for i := 1; i <= 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("request %d: expected allowed, got %v (%v)", i, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key, 3, time.Minute); ok {
		t.Error("expected fourth request to be limited")
	}
	if cli.ttl["pe:"+key] != time.Minute {
		t.Errorf("expected window on first hit, got %v", cli.ttl)
	}
}
