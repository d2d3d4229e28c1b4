package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/repository"
	"payment-events/internal/infra/metrics"
)

var _ repository.AnomalyRepository = (*anomalyRepo)(nil)

type anomalyRepo struct{ pool *pgxpool.Pool }

func NewAnomalyRepo(pool *pgxpool.Pool) *anomalyRepo {
	return &anomalyRepo{pool: pool}
}

func (r *anomalyRepo) Record(ctx context.Context, tx repository.Tx, a *model.Anomaly) error {
	const q = `
INSERT INTO payment_anomalies (id, provider_event_id, kind, severity, reference, detail, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`

	if _, err := execSQL(ctx, r.pool, tx, q, a.ID, a.ProviderEventID, a.Kind, string(a.Severity), a.Reference, a.Detail, a.CreatedAt); err != nil {
		return mapErr("payment_anomalies", err)
	}
	metrics.IncAnomaly(a.Kind, string(a.Severity))
	return nil
}

func (r *anomalyRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Anomaly, error) {
	const q = `
SELECT id, provider_event_id, kind, severity, reference, detail, created_at
  FROM payment_anomalies
 ORDER BY created_at DESC
 LIMIT $1 OFFSET $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit, offset)
	if err != nil {
		return nil, mapErr("payment_anomalies", err)
	}
	defer rows.Close()

	var out []*model.Anomaly
	for rows.Next() {
		var (
			a   model.Anomaly
			sev string
		)
		if err := rows.Scan(&a.ID, &a.ProviderEventID, &a.Kind, &sev, &a.Reference, &a.Detail, &a.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		a.Severity = model.AnomalySeverity(sev)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("payment_anomalies", err)
	}
	return out, nil
}
