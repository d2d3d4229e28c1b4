//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/adapter"
	"payment-events/internal/domain/ports/repository"
)

// -----------------------------
// Webhook events
// -----------------------------

type MockWebhookEventRepo struct {
	mu   sync.Mutex
	data map[string]*model.WebhookEvent

	InsertFunc        func(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error)
	MarkProcessedFunc func(ctx context.Context, tx repository.Tx, id string, at time.Time) error
}

var _ repository.WebhookEventRepository = (*MockWebhookEventRepo)(nil)

func NewMockWebhookEventRepo() *MockWebhookEventRepo {
	return &MockWebhookEventRepo{data: map[string]*model.WebhookEvent{}}
}

func (r *MockWebhookEventRepo) Insert(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error) {
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, tx, ev)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[ev.ProviderEventID]; ok {
		return false, nil
	}
	cp := *ev
	r.data[ev.ProviderEventID] = &cp
	return true, nil
}

func (r *MockWebhookEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (r *MockWebhookEventRepo) Reclaim(ctx context.Context, tx repository.Tx, id string, staleBefore, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.data[id]
	if !ok {
		return false, nil
	}
	stale := ev.Status == model.ProcessingStatusPending && ev.ClaimedAt.Before(staleBefore)
	if ev.Status != model.ProcessingStatusFailed && !stale {
		return false, nil
	}
	ev.Status = model.ProcessingStatusPending
	ev.Attempts++
	ev.ClaimedAt = now
	ev.FailureReason = ""
	return true, nil
}

func (r *MockWebhookEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	if r.MarkProcessedFunc != nil {
		return r.MarkProcessedFunc(ctx, tx, id, at)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	ev.Status = model.ProcessingStatusProcessed
	ev.ProcessedAt = &at
	return nil
}

func (r *MockWebhookEventRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	ev.Status = model.ProcessingStatusFailed
	ev.FailureReason = reason
	return nil
}

func (r *MockWebhookEventRepo) ListStalePending(ctx context.Context, tx repository.Tx, staleBefore time.Time, limit int) ([]*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WebhookEvent
	for _, ev := range r.data {
		if ev.Status == model.ProcessingStatusPending && ev.ClaimedAt.Before(staleBefore) {
			cp := *ev
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockWebhookEventRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.ProcessingStatus, limit, offset int) ([]*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WebhookEvent
	for _, ev := range r.data {
		if status == "" || ev.Status == status {
			cp := *ev
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderEventID < out[j].ProviderEventID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockWebhookEventRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.ProcessingStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.ProcessingStatus]int{}
	for _, ev := range r.data {
		out[ev.Status]++
	}
	return out, nil
}

// Seed stores ev as-is.
func (r *MockWebhookEventRepo) Seed(ev *model.WebhookEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ev
	r.data[ev.ProviderEventID] = &cp
}

func (r *MockWebhookEventRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// -----------------------------
// Orders
// -----------------------------

type MockOrderRepo struct {
	mu          sync.Mutex
	data        map[string]*model.Order
	Transitions int

	FindByExternalPaymentIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Order, error)
	TransitionStatusFunc        func(ctx context.Context, tx repository.Tx, id string, from, to model.OrderStatus, pi string) (bool, error)
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{data: map[string]*model.Order{}}
}

func (r *MockOrderRepo) Seed(o *model.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.data[o.ID] = &cp
}

func (r *MockOrderRepo) Get(id string) *model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.data[id]; ok {
		cp := *o
		return &cp
	}
	return nil
}

func (r *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	if o := r.Get(id); o != nil {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockOrderRepo) find(match func(o *model.Order) bool) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.data {
		if match(o) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockOrderRepo) FindByExternalPaymentID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	if r.FindByExternalPaymentIDFunc != nil {
		return r.FindByExternalPaymentIDFunc(ctx, tx, id)
	}
	return r.find(func(o *model.Order) bool { return o.ExternalPaymentID == id })
}

func (r *MockOrderRepo) FindByPaymentIntentID(ctx context.Context, tx repository.Tx, pi string) (*model.Order, error) {
	return r.find(func(o *model.Order) bool { return o.PaymentIntentID != nil && *o.PaymentIntentID == pi })
}

func (r *MockOrderRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.OrderStatus, pi string) (bool, error) {
	if r.TransitionStatusFunc != nil {
		return r.TransitionStatusFunc(ctx, tx, id, from, to, pi)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if pi != "" {
		o.PaymentIntentID = &pi
	}
	o.UpdatedAt = time.Now()
	r.Transitions++
	return true, nil
}

// -----------------------------
// Subscriptions
// -----------------------------

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription // by external id

	UpsertFunc func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) FindByExternalID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MockSubscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if r.UpsertFunc != nil {
		return r.UpsertFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	if old, ok := r.data[s.ExternalSubscriptionID]; ok {
		cp.ID = old.ID
		if old.Status == model.SubscriptionStatusCanceled {
			cp.Status = old.Status
		}
		if old.CurrentPeriodEnd != nil && (cp.CurrentPeriodEnd == nil || cp.CurrentPeriodEnd.Before(*old.CurrentPeriodEnd)) {
			cp.CurrentPeriodEnd = old.CurrentPeriodEnd
		}
		s.ID, s.Status, s.CurrentPeriodEnd = cp.ID, cp.Status, cp.CurrentPeriodEnd
	}
	r.data[s.ExternalSubscriptionID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) Seed(s *model.Subscription) {
	_ = r.Upsert(context.Background(), nil, s)
}

// -----------------------------
// Rewards
// -----------------------------

type MockAffiliateRepo struct {
	mu   sync.Mutex
	data map[string]*model.Affiliate
}

var _ repository.AffiliateRepository = (*MockAffiliateRepo)(nil)

func NewMockAffiliateRepo(affs ...*model.Affiliate) *MockAffiliateRepo {
	r := &MockAffiliateRepo{data: map[string]*model.Affiliate{}}
	for _, a := range affs {
		r.data[a.Code] = a
	}
	return r
}

func (r *MockAffiliateRepo) FindActiveByCode(ctx context.Context, tx repository.Tx, code string) (*model.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[code]
	if !ok || !a.Active {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

type MockCommissionRepo struct {
	mu      sync.Mutex
	byOrder map[string]*model.AffiliateCommission

	CreateFunc func(ctx context.Context, tx repository.Tx, c *model.AffiliateCommission) (bool, error)
}

var _ repository.CommissionRepository = (*MockCommissionRepo)(nil)

func NewMockCommissionRepo() *MockCommissionRepo {
	return &MockCommissionRepo{byOrder: map[string]*model.AffiliateCommission{}}
}

func (r *MockCommissionRepo) Create(ctx context.Context, tx repository.Tx, c *model.AffiliateCommission) (bool, error) {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, c)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byOrder[c.OrderID]; ok {
		return false, nil
	}
	cp := *c
	r.byOrder[c.OrderID] = &cp
	return true, nil
}

func (r *MockCommissionRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.AffiliateCommission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MockCommissionRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byOrder)
}

type MockPointsRepo struct {
	mu      sync.Mutex
	entries []*model.PointsLedgerEntry
}

var _ repository.PointsRepository = (*MockPointsRepo)(nil)

func NewMockPointsRepo() *MockPointsRepo { return &MockPointsRepo{} }

func (r *MockPointsRepo) Append(ctx context.Context, tx repository.Tx, e *model.PointsLedgerEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.entries {
		if x.UserID == e.UserID && x.OrderID == e.OrderID && x.Reason == e.Reason {
			return false, nil
		}
	}
	cp := *e
	r.entries = append(r.entries, &cp)
	return true, nil
}

func (r *MockPointsRepo) ListByOrder(ctx context.Context, tx repository.Tx, orderID string) ([]*model.PointsLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PointsLedgerEntry
	for _, e := range r.entries {
		if e.OrderID == orderID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPointsRepo) Balance(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, e := range r.entries {
		if e.UserID == userID {
			sum += e.Points
		}
	}
	return sum, nil
}

func (r *MockPointsRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// -----------------------------
// Anomalies
// -----------------------------

type MockAnomalyRepo struct {
	mu    sync.Mutex
	items []*model.Anomaly
}

var _ repository.AnomalyRepository = (*MockAnomalyRepo)(nil)

func NewMockAnomalyRepo() *MockAnomalyRepo { return &MockAnomalyRepo{} }

func (r *MockAnomalyRepo) Record(ctx context.Context, tx repository.Tx, a *model.Anomaly) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.items = append(r.items, &cp)
	return nil
}

func (r *MockAnomalyRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Anomaly, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset >= len(r.items) {
		return nil, nil
	}
	out := r.items[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockAnomalyRepo) All() []*model.Anomaly {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Anomaly(nil), r.items...)
}

// -----------------------------
// Transactions
// -----------------------------

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with a nil handle unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// -----------------------------
// Adapters
// -----------------------------

const validSignature = "t=1,v1=valid"

// testEnvelope is the body shape the mock verifier and decoder understand.
type testEnvelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MockVerifier accepts only validSignature and parses testEnvelope bodies.
type MockVerifier struct {
	VerifyFunc func(payload []byte, header string) (*model.ProviderEvent, error)
}

var _ adapter.EventVerifier = (*MockVerifier)(nil)

func (m *MockVerifier) Verify(payload []byte, header string) (*model.ProviderEvent, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(payload, header)
	}
	if header != validSignature {
		return nil, domain.ErrInvalidSignature
	}
	return parseEnvelope(payload)
}

func parseEnvelope(payload []byte) (*model.ProviderEvent, error) {
	var env testEnvelope
	if err := json.Unmarshal(payload, &env); err != nil || env.ID == "" || env.Type == "" {
		return nil, domain.ErrMalformedPayload
	}
	return &model.ProviderEvent{
		ID:      env.ID,
		Type:    model.EventType(env.Type),
		Created: time.Unix(1, 0),
		Object:  env.Data,
		Raw:     payload,
	}, nil
}

// MockDecoder decodes objects that were produced by json.Marshal of the model
// payload types.
type MockDecoder struct{}

var _ adapter.EventDecoder = (*MockDecoder)(nil)

func (MockDecoder) ParseEvent(raw []byte) (*model.ProviderEvent, error) {
	return parseEnvelope(raw)
}

func (MockDecoder) DecodeCheckout(obj []byte) (*model.CheckoutPayment, error) {
	var v model.CheckoutPayment
	if err := json.Unmarshal(obj, &v); err != nil || (v.SessionID == "" && v.OrderRef == "") || v.PaymentStatus == "" {
		return nil, fmt.Errorf("%w: checkout", domain.ErrMalformedPayload)
	}
	return &v, nil
}

func (MockDecoder) DecodeSubscription(obj []byte) (*model.SubscriptionChange, error) {
	var v model.SubscriptionChange
	if err := json.Unmarshal(obj, &v); err != nil || v.ExternalID == "" || v.Status == "" {
		return nil, fmt.Errorf("%w: subscription", domain.ErrMalformedPayload)
	}
	return &v, nil
}

func (MockDecoder) DecodeInvoice(obj []byte) (*model.InvoiceEvent, error) {
	var v model.InvoiceEvent
	if err := json.Unmarshal(obj, &v); err != nil || v.InvoiceID == "" {
		return nil, fmt.Errorf("%w: invoice", domain.ErrMalformedPayload)
	}
	return &v, nil
}

func (MockDecoder) DecodeRefund(obj []byte) (*model.RefundEvent, error) {
	var v model.RefundEvent
	if err := json.Unmarshal(obj, &v); err != nil || v.ChargeID == "" {
		return nil, fmt.Errorf("%w: refund", domain.ErrMalformedPayload)
	}
	return &v, nil
}

// MockRenderer renders "<template> for <recipient>" and rejects unknown templates.
type MockRenderer struct{}

func (MockRenderer) Render(n *model.EmailNotification) (*model.OutboundEmail, error) {
	if n.Template == "" {
		return nil, domain.ErrUnknownTemplate
	}
	return &model.OutboundEmail{
		To:       n.Recipient,
		Subject:  string(n.Template),
		HTMLBody: fmt.Sprintf("%s for %s", n.Template, n.Recipient),
		Template: n.Template,
		OrderID:  n.OrderID,
		EventID:  n.EventID,
	}, nil
}

type MockMailer struct {
	mu   sync.Mutex
	sent []*model.OutboundEmail

	SendFunc func(ctx context.Context, msg *model.OutboundEmail) error
}

var _ adapter.Mailer = (*MockMailer)(nil)

func (m *MockMailer) Name() string { return "mock" }

func (m *MockMailer) Send(ctx context.Context, msg *model.OutboundEmail) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *MockMailer) Sent() []*model.OutboundEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.OutboundEmail(nil), m.sent...)
}

// inlineQueue runs tasks synchronously so tests can assert on their effects.
type inlineQueue struct{}

func (inlineQueue) Submit(task func(ctx context.Context) error) error {
	_ = task(context.Background())
	return nil
}

type fullQueue struct{}

func (fullQueue) Submit(task func(ctx context.Context) error) error {
	return errors.New("worker queue full")
}

type MockProcessedCache struct {
	mu   sync.Mutex
	ids  map[string]bool
	Err  error
	Hits int
}

var _ adapter.ProcessedCache = (*MockProcessedCache)(nil)

func NewMockProcessedCache() *MockProcessedCache {
	return &MockProcessedCache{ids: map[string]bool{}}
}

func (c *MockProcessedCache) IsProcessed(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	if c.ids[id] {
		c.Hits++
		return true, nil
	}
	return false, nil
}

func (c *MockProcessedCache) MarkProcessed(ctx context.Context, id string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.ids[id] = true
	return nil
}

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
