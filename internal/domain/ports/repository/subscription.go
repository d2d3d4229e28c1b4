package repository

import (
	"context"

	"payment-events/internal/domain/model"
)

// SubscriptionRepository is the port for provider subscriptions.
type SubscriptionRepository interface {
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.Subscription, error)
	// Upsert inserts or overwrites by external subscription id. Callers merge
	// with the stored row first.
	Upsert(ctx context.Context, tx Tx, sub *model.Subscription) error
}
