package usecase

import (
	"context"
	"errors"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/repository"
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

// OrderView is an order together with the rows derived from it.
type OrderView struct {
	Order      *model.Order
	Commission *model.AffiliateCommission
	Points     []*model.PointsLedgerEntry
}

// AdminUseCase is the read side used by operators.
type AdminUseCase interface {
	GetOrder(ctx context.Context, id string) (*OrderView, error)
	ListEvents(ctx context.Context, status model.ProcessingStatus, limit, offset int) ([]*model.WebhookEvent, error)
	ListAnomalies(ctx context.Context, limit, offset int) ([]*model.Anomaly, error)
	EventCounts(ctx context.Context) (map[model.ProcessingStatus]int, error)
}

type adminUC struct {
	orders      repository.OrderRepository
	commissions repository.CommissionRepository
	points      repository.PointsRepository
	events      repository.WebhookEventRepository
	anomalies   repository.AnomalyRepository
}

func NewAdminUseCase(
	orders repository.OrderRepository,
	commissions repository.CommissionRepository,
	points repository.PointsRepository,
	events repository.WebhookEventRepository,
	anomalies repository.AnomalyRepository,
) *adminUC {
	return &adminUC{orders: orders, commissions: commissions, points: points, events: events, anomalies: anomalies}
}

func (a *adminUC) GetOrder(ctx context.Context, id string) (*OrderView, error) {
	o, err := a.orders.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	v := &OrderView{Order: o}
	if c, err := a.commissions.FindByOrderID(ctx, nil, id); err == nil {
		v.Commission = c
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	pts, err := a.points.ListByOrder(ctx, nil, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	v.Points = pts
	return v, nil
}

func (a *adminUC) ListEvents(ctx context.Context, status model.ProcessingStatus, limit, offset int) ([]*model.WebhookEvent, error) {
	limit, offset = page(limit, offset)
	return a.events.ListByStatus(ctx, nil, status, limit, offset)
}

func (a *adminUC) ListAnomalies(ctx context.Context, limit, offset int) ([]*model.Anomaly, error) {
	limit, offset = page(limit, offset)
	return a.anomalies.List(ctx, nil, limit, offset)
}

func (a *adminUC) EventCounts(ctx context.Context) (map[model.ProcessingStatus]int, error) {
	return a.events.CountByStatus(ctx, nil)
}

func page(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
