package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/repository"
	"payment-events/internal/infra/metrics"
)

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

const webhookEventCols = `provider_event_id, type, received_at, processed_at, raw_payload, status, failure_reason, attempts, claimed_at`

func (r *webhookEventRepo) Insert(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error) {
	const q = `
INSERT INTO webhook_events (` + webhookEventCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (provider_event_id) DO NOTHING;`

	tag, err := execSQL(ctx, r.pool, tx, q, ev.ProviderEventID, ev.Type, ev.ReceivedAt, ev.ProcessedAt, ev.RawPayload, ev.Status, ev.FailureReason, ev.Attempts, ev.ClaimedAt)
	if err != nil {
		return false, mapErr("webhook_events", err)
	}
	created := tag.RowsAffected() == 1
	if created {
		metrics.IncLedgerEvent(string(ev.Status))
	}
	return created, nil
}

func (r *webhookEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.WebhookEvent, error) {
	q := `SELECT ` + webhookEventCols + ` FROM webhook_events WHERE provider_event_id=$1` + lockClause(tx) + `;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, mapErr("webhook_events", err)
	}
	return scanWebhookEvent(row)
}

func (r *webhookEventRepo) Reclaim(ctx context.Context, tx repository.Tx, id string, staleBefore, now time.Time) (bool, error) {
	const q = `
UPDATE webhook_events
   SET status='pending', attempts=attempts+1, claimed_at=$3, failure_reason=''
 WHERE provider_event_id=$1
   AND (status='failed' OR (status='pending' AND claimed_at < $2));`

	tag, err := execSQL(ctx, r.pool, tx, q, id, staleBefore, now)
	if err != nil {
		return false, mapErr("webhook_events", err)
	}
	ok := tag.RowsAffected() == 1
	if ok {
		metrics.IncLedgerEvent("reclaimed")
	}
	return ok, nil
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE webhook_events SET status='processed', processed_at=$2, failure_reason='' WHERE provider_event_id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return mapErr("webhook_events", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	metrics.IncLedgerEvent(string(model.ProcessingStatusProcessed))
	return nil
}

func (r *webhookEventRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, reason string) error {
	// a processed row is final
	const q = `UPDATE webhook_events SET status='failed', failure_reason=$2 WHERE provider_event_id=$1 AND status <> 'processed';`
	if _, err := execSQL(ctx, r.pool, tx, q, id, reason); err != nil {
		return mapErr("webhook_events", err)
	}
	metrics.IncLedgerEvent(string(model.ProcessingStatusFailed))
	return nil
}

func (r *webhookEventRepo) ListStalePending(ctx context.Context, tx repository.Tx, staleBefore time.Time, limit int) ([]*model.WebhookEvent, error) {
	const q = `
SELECT ` + webhookEventCols + `
  FROM webhook_events
 WHERE status='pending' AND claimed_at < $1
 ORDER BY received_at
 LIMIT $2;`
	return r.list(ctx, tx, q, staleBefore, limit)
}

func (r *webhookEventRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.ProcessingStatus, limit, offset int) ([]*model.WebhookEvent, error) {
	const q = `
SELECT ` + webhookEventCols + `
  FROM webhook_events
 WHERE ($1::text = '' OR status=$1::text)
 ORDER BY received_at DESC
 LIMIT $2 OFFSET $3;`
	return r.list(ctx, tx, q, string(status), limit, offset)
}

func (r *webhookEventRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.ProcessingStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM webhook_events GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapErr("webhook_events", err)
	}
	defer rows.Close()

	out := make(map[model.ProcessingStatus]int)
	for rows.Next() {
		var (
			s string
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.ProcessingStatus(s)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("webhook_events", err)
	}
	return out, nil
}

func (r *webhookEventRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.WebhookEvent, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapErr("webhook_events", err)
	}
	defer rows.Close()

	var out []*model.WebhookEvent
	for rows.Next() {
		ev, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("webhook_events", err)
	}
	return out, nil
}

func scanWebhookEvent(row pgx.Row) (*model.WebhookEvent, error) {
	var (
		ev     model.WebhookEvent
		status string
	)
	err := row.Scan(&ev.ProviderEventID, &ev.Type, &ev.ReceivedAt, &ev.ProcessedAt, &ev.RawPayload, &status, &ev.FailureReason, &ev.Attempts, &ev.ClaimedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	ev.Status = model.ProcessingStatus(status)
	return &ev, nil
}
