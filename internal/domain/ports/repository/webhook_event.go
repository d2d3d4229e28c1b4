package repository

import (
	"context"
	"time"

	"payment-events/internal/domain/model"
)

// -----------------------------
// Webhook event ledger
// -----------------------------

type WebhookEventRepository interface {
	// Insert stores ev unless a row with the same provider event id exists.
	// created is false on conflict; the existing row is left untouched.
	Insert(ctx context.Context, tx Tx, ev *model.WebhookEvent) (created bool, err error)
	FindByID(ctx context.Context, tx Tx, providerEventID string) (*model.WebhookEvent, error)
	// Reclaim atomically takes over a failed row, or a pending row claimed
	// before staleBefore, bumping attempts. ok is false if another worker won.
	Reclaim(ctx context.Context, tx Tx, providerEventID string, staleBefore, now time.Time) (ok bool, err error)
	MarkProcessed(ctx context.Context, tx Tx, providerEventID string, at time.Time) error
	MarkFailed(ctx context.Context, tx Tx, providerEventID, reason string) error
	ListStalePending(ctx context.Context, tx Tx, staleBefore time.Time, limit int) ([]*model.WebhookEvent, error)
	ListByStatus(ctx context.Context, tx Tx, status model.ProcessingStatus, limit, offset int) ([]*model.WebhookEvent, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.ProcessingStatus]int, error)
}
