//go:build !integration

package usecase_test

import (
	"encoding/json"
	"testing"
	"time"

	"payment-events/internal/domain/model"
	"payment-events/internal/usecase"
)

// harness wires every use case over in-memory repositories.
type harness struct {
	events      *MockWebhookEventRepo
	orders      *MockOrderRepo
	subs        *MockSubscriptionRepo
	affiliates  *MockAffiliateRepo
	commissions *MockCommissionRepo
	points      *MockPointsRepo
	anomalies   *MockAnomalyRepo
	mailer      *MockMailer
	tm          *MockTxManager

	ledger    usecase.LedgerUseCase
	rewards   usecase.RewardsUseCase
	reconcile usecase.ReconcileUseCase
	notifier  usecase.NotificationUseCase
	webhook   usecase.WebhookUseCase
}

var rewardsCfg = usecase.RewardsConfig{DefaultRateBps: 500, PointsUnitMinor: 100, PointsPerUnit: 1}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rate := int64(1000)
	h := &harness{
		events:      NewMockWebhookEventRepo(),
		orders:      NewMockOrderRepo(),
		subs:        NewMockSubscriptionRepo(),
		affiliates:  NewMockAffiliateRepo(&model.Affiliate{Code: "AF1", Email: "af1@example.com", RateBps: &rate, Active: true}),
		commissions: NewMockCommissionRepo(),
		points:      NewMockPointsRepo(),
		anomalies:   NewMockAnomalyRepo(),
		mailer:      &MockMailer{},
		tm:          NewMockTxManager(),
	}
	logger := newTestLogger()
	h.ledger = usecase.NewLedgerUseCase(h.events, nil, 10*time.Minute, time.Hour, logger)
	h.rewards = usecase.NewRewardsUseCase(h.affiliates, h.commissions, h.points, rewardsCfg, logger)
	h.reconcile = usecase.NewReconcileUseCase(h.orders, h.subs, h.anomalies, h.rewards, MockDecoder{}, h.tm, logger)
	h.notifier = usecase.NewNotificationUseCase(MockRenderer{}, h.mailer, inlineQueue{},
		usecase.NotifyPolicy{SendTimeout: time.Second, MaxAttempts: 3, Backoff: time.Millisecond}, nil, nil, logger)
	h.webhook = usecase.NewWebhookUseCase(&MockVerifier{}, MockDecoder{}, h.ledger, h.reconcile, h.notifier, logger)
	return h
}

// seedOrderO is the reference order: 10000 minor units referred by AF1.
func (h *harness) seedOrderO() *model.Order {
	aff := "AF1"
	uid := "user-1"
	o := &model.Order{
		ID:                "11111111-1111-1111-1111-111111111111",
		ExternalPaymentID: "cs_test_O",
		Amount:            10000,
		Currency:          "usd",
		Status:            model.OrderStatusPending,
		CustomerEmail:     "buyer@example.com",
		CustomerID:        &uid,
		AffiliateCode:     &aff,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	h.orders.Seed(o)
	return o
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func envelope(t *testing.T, id string, typ model.EventType, obj any) []byte {
	t.Helper()
	return mustJSON(t, testEnvelope{ID: id, Type: string(typ), Data: mustJSON(t, obj)})
}

func providerEvent(t *testing.T, id string, typ model.EventType, obj any) *model.ProviderEvent {
	t.Helper()
	ev, err := parseEnvelope(envelope(t, id, typ, obj))
	if err != nil {
		t.Fatalf("parse envelope: %v", err)
	}
	return ev
}

func paidCheckout(session string, amount int64) *model.CheckoutPayment {
	return &model.CheckoutPayment{
		SessionID:       session,
		PaymentIntentID: "pi_" + session,
		PaymentStatus:   "paid",
		AmountTotal:     amount,
		Currency:        "usd",
	}
}
