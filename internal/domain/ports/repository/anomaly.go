package repository

import (
	"context"

	"payment-events/internal/domain/model"
)

type AnomalyRepository interface {
	Record(ctx context.Context, tx Tx, a *model.Anomaly) error
	List(ctx context.Context, tx Tx, limit, offset int) ([]*model.Anomaly, error)
}
