package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/repository"
	"payment-events/internal/infra/metrics"
)

var (
	_ repository.AffiliateRepository  = (*affiliateRepo)(nil)
	_ repository.CommissionRepository = (*commissionRepo)(nil)
	_ repository.PointsRepository     = (*pointsRepo)(nil)
)

// -----------------------------
// Affiliates
// -----------------------------

type affiliateRepo struct{ pool *pgxpool.Pool }

func NewAffiliateRepo(pool *pgxpool.Pool) *affiliateRepo {
	return &affiliateRepo{pool: pool}
}

func (r *affiliateRepo) FindActiveByCode(ctx context.Context, tx repository.Tx, code string) (*model.Affiliate, error) {
	const q = `SELECT code, email, rate_bps, active FROM affiliates WHERE code=$1 AND active;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, mapErr("affiliates", err)
	}
	var a model.Affiliate
	if err := row.Scan(&a.Code, &a.Email, &a.RateBps, &a.Active); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &a, nil
}

// -----------------------------
// Commissions
// -----------------------------

type commissionRepo struct{ pool *pgxpool.Pool }

func NewCommissionRepo(pool *pgxpool.Pool) *commissionRepo {
	return &commissionRepo{pool: pool}
}

func (r *commissionRepo) Create(ctx context.Context, tx repository.Tx, c *model.AffiliateCommission) (bool, error) {
	const q = `
INSERT INTO affiliate_commissions (id, order_id, affiliate_code, amount, currency, rate_bps, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (order_id) DO NOTHING;`

	tag, err := execSQL(ctx, r.pool, tx, q, c.ID, c.OrderID, c.AffiliateCode, c.Amount, c.Currency, c.RateBps, string(c.Status), c.CreatedAt)
	if err != nil {
		return false, mapErr("affiliate_commissions", err)
	}
	created := tag.RowsAffected() == 1
	if created {
		metrics.AddCommission(c.Currency, c.Amount)
	}
	return created, nil
}

func (r *commissionRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.AffiliateCommission, error) {
	const q = `
SELECT id, order_id, affiliate_code, amount, currency, rate_bps, status, created_at
  FROM affiliate_commissions
 WHERE order_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, mapErr("affiliate_commissions", err)
	}
	var (
		c      model.AffiliateCommission
		status string
	)
	if err := row.Scan(&c.ID, &c.OrderID, &c.AffiliateCode, &c.Amount, &c.Currency, &c.RateBps, &status, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	c.Status = model.CommissionStatus(status)
	return &c, nil
}

// -----------------------------
// Loyalty points
// -----------------------------

type pointsRepo struct{ pool *pgxpool.Pool }

func NewPointsRepo(pool *pgxpool.Pool) *pointsRepo {
	return &pointsRepo{pool: pool}
}

func (r *pointsRepo) Append(ctx context.Context, tx repository.Tx, e *model.PointsLedgerEntry) (bool, error) {
	const q = `
INSERT INTO points_ledger (id, user_id, order_id, points, reason, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (user_id, order_id, reason) DO NOTHING;`

	tag, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.OrderID, e.Points, e.Reason, e.CreatedAt)
	if err != nil {
		return false, mapErr("points_ledger", err)
	}
	created := tag.RowsAffected() == 1
	if created {
		metrics.AddPoints(e.Reason, e.Points)
	}
	return created, nil
}

func (r *pointsRepo) ListByOrder(ctx context.Context, tx repository.Tx, orderID string) ([]*model.PointsLedgerEntry, error) {
	const q = `
SELECT id, user_id, order_id, points, reason, created_at
  FROM points_ledger
 WHERE order_id=$1
 ORDER BY id;`
	rows, err := queryRows(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, mapErr("points_ledger", err)
	}
	defer rows.Close()

	var out []*model.PointsLedgerEntry
	for rows.Next() {
		var e model.PointsLedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.OrderID, &e.Points, &e.Reason, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("points_ledger", err)
	}
	return out, nil
}

func (r *pointsRepo) Balance(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(points), 0)::bigint FROM points_ledger WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, mapErr("points_ledger", err)
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
