package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/repository"
	"payment-events/internal/infra/metrics"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Subscription, error) {
	q := `
SELECT id, external_subscription_id, customer_id, customer_email, plan, status, current_period_end, created_at, updated_at
  FROM subscriptions
 WHERE external_subscription_id=$1` + lockClause(tx) + `;`

	row, err := pickRow(ctx, r.pool, tx, q, externalID)
	if err != nil {
		return nil, mapErr("subscriptions", err)
	}
	var (
		s      model.Subscription
		status string
	)
	if err := row.Scan(&s.ID, &s.ExternalSubscriptionID, &s.CustomerID, &s.CustomerEmail, &s.Plan, &status, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SubscriptionStatus(status)
	return &s, nil
}

func (r *subscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if s == nil || s.ExternalSubscriptionID == "" {
		return domain.ErrInvalidArgument
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	// canceled is terminal and the period end never moves backwards, so
	// snapshots committed out of order cannot revive or rewind a row.
	const q = `
INSERT INTO subscriptions (
  id, external_subscription_id, customer_id, customer_email, plan, status, current_period_end, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (external_subscription_id) DO UPDATE SET
  customer_id        = COALESCE(NULLIF(EXCLUDED.customer_id, ''), subscriptions.customer_id),
  customer_email     = COALESCE(NULLIF(EXCLUDED.customer_email, ''), subscriptions.customer_email),
  plan               = COALESCE(NULLIF(EXCLUDED.plan, ''), subscriptions.plan),
  status             = CASE WHEN subscriptions.status = 'canceled' THEN subscriptions.status ELSE EXCLUDED.status END,
  current_period_end = GREATEST(subscriptions.current_period_end, EXCLUDED.current_period_end),
  updated_at         = EXCLUDED.updated_at
RETURNING id, status, current_period_end;`

	row, err := pickRow(ctx, r.pool, tx, q, s.ID, s.ExternalSubscriptionID, s.CustomerID, s.CustomerEmail, s.Plan, string(s.Status), s.CurrentPeriodEnd, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return mapErr("subscriptions", err)
	}
	var status string
	if err := row.Scan(&s.ID, &status, &s.CurrentPeriodEnd); err != nil {
		return mapErr("subscriptions", err)
	}
	s.Status = model.SubscriptionStatus(status)
	metrics.IncSubscriptionWrite(string(s.Status))
	return nil
}
