package adapter

import (
	"context"
	"time"
)

// ProcessedCache is a best-effort fast path in front of the event ledger.
// Errors are never authoritative; callers fall through to the durable store.
type ProcessedCache interface {
	IsProcessed(ctx context.Context, providerEventID string) (bool, error)
	MarkProcessed(ctx context.Context, providerEventID string, ttl time.Duration) error
}
