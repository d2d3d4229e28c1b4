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

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderCols = `id, external_payment_id, payment_intent_id, amount, currency, status, customer_email, customer_id, affiliate_code, created_at, updated_at`

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	// correlation ids arrive from provider metadata and may be anything
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, tx, `id=$1`, id)
}

func (r *orderRepo) FindByExternalPaymentID(ctx context.Context, tx repository.Tx, externalPaymentID string) (*model.Order, error) {
	return r.findOne(ctx, tx, `external_payment_id=$1`, externalPaymentID)
}

func (r *orderRepo) FindByPaymentIntentID(ctx context.Context, tx repository.Tx, paymentIntentID string) (*model.Order, error) {
	if paymentIntentID == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, tx, `payment_intent_id=$1`, paymentIntentID)
}

func (r *orderRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.OrderStatus, paymentIntentID string) (bool, error) {
	const q = `
UPDATE orders
   SET status=$3,
       payment_intent_id=COALESCE(NULLIF($4, ''), payment_intent_id),
       updated_at=NOW()
 WHERE id=$1 AND status=$2
RETURNING amount, currency;`

	row, err := pickRow(ctx, r.pool, tx, q, id, string(from), string(to), paymentIntentID)
	if err != nil {
		return false, mapErr("orders", err)
	}
	var (
		amount   int64
		currency string
	)
	if err := row.Scan(&amount, &currency); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, mapErr("orders", err)
	}
	metrics.IncOrderTransition(string(from), string(to))
	if to == model.OrderStatusPaid {
		metrics.AddPaymentRevenue(currency, amount)
	}
	return true, nil
}

func (r *orderRepo) findOne(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE ` + where + ` LIMIT 1` + lockClause(tx) + `;`
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, mapErr("orders", err)
	}

	var (
		o      model.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.ExternalPaymentID, &o.PaymentIntentID, &o.Amount, &o.Currency, &status, &o.CustomerEmail, &o.CustomerID, &o.AffiliateCode, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}
