package repository

import (
	"context"

	"payment-events/internal/domain/model"
)

// -----------------------------
// Affiliates & commissions
// -----------------------------

type AffiliateRepository interface {
	FindActiveByCode(ctx context.Context, tx Tx, code string) (*model.Affiliate, error)
}

type CommissionRepository interface {
	// Create inserts c unless a commission for the same order exists.
	Create(ctx context.Context, tx Tx, c *model.AffiliateCommission) (created bool, err error)
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.AffiliateCommission, error)
}

// -----------------------------
// Loyalty points
// -----------------------------

type PointsRepository interface {
	// Append adds e unless an entry with the same (user, order, reason) exists.
	Append(ctx context.Context, tx Tx, e *model.PointsLedgerEntry) (created bool, err error)
	ListByOrder(ctx context.Context, tx Tx, orderID string) ([]*model.PointsLedgerEntry, error)
	Balance(ctx context.Context, tx Tx, userID string) (int64, error)
}
