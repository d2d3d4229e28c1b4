//go:build !integration

package api

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"payment-events/internal/domain/model"
	"payment-events/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockWebhookUC struct {
	HandleFunc func(ctx context.Context, payload []byte, sig string) (model.Outcome, error)
	ReplayFunc func(ctx context.Context, row *model.WebhookEvent) (model.Outcome, error)
}

func (m *mockWebhookUC) Handle(ctx context.Context, payload []byte, sig string) (model.Outcome, error) {
	return m.HandleFunc(ctx, payload, sig)
}

func (m *mockWebhookUC) Replay(ctx context.Context, row *model.WebhookEvent) (model.Outcome, error) {
	return m.ReplayFunc(ctx, row)
}

type mockAdminUC struct {
	GetOrderFunc      func(ctx context.Context, id string) (*usecase.OrderView, error)
	ListEventsFunc    func(ctx context.Context, status model.ProcessingStatus, limit, offset int) ([]*model.WebhookEvent, error)
	ListAnomaliesFunc func(ctx context.Context, limit, offset int) ([]*model.Anomaly, error)
	EventCountsFunc   func(ctx context.Context) (map[model.ProcessingStatus]int, error)
}

func (m *mockAdminUC) GetOrder(ctx context.Context, id string) (*usecase.OrderView, error) {
	return m.GetOrderFunc(ctx, id)
}

func (m *mockAdminUC) ListEvents(ctx context.Context, status model.ProcessingStatus, limit, offset int) ([]*model.WebhookEvent, error) {
	return m.ListEventsFunc(ctx, status, limit, offset)
}

func (m *mockAdminUC) ListAnomalies(ctx context.Context, limit, offset int) ([]*model.Anomaly, error) {
	return m.ListAnomaliesFunc(ctx, limit, offset)
}

func (m *mockAdminUC) EventCounts(ctx context.Context) (map[model.ProcessingStatus]int, error) {
	return m.EventCountsFunc(ctx)
}

type mockLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allow, m.err
}
