//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/usecase"
)

func TestClassify(t *testing.T) {
	cases := map[model.EventType]usecase.EventCategory{
		model.EventCheckoutCompleted:     usecase.CategoryCheckoutCompleted,
		model.EventAsyncPaymentSucceeded: usecase.CategoryAsyncPaymentSucceeded,
		model.EventAsyncPaymentFailed:    usecase.CategoryAsyncPaymentFailed,
		model.EventSubscriptionCreated:   usecase.CategorySubscriptionUpsert,
		model.EventSubscriptionUpdated:   usecase.CategorySubscriptionUpsert,
		model.EventSubscriptionDeleted:   usecase.CategorySubscriptionDeleted,
		model.EventInvoicePaid:           usecase.CategoryInvoicePaid,
		model.EventInvoicePaymentFailed:  usecase.CategoryInvoicePaymentFailed,
		model.EventChargeRefunded:        usecase.CategoryChargeRefunded,
		"invoice.payment_succeeded":      usecase.CategoryUnrecognized,
		"":                               usecase.CategoryUnrecognized,
	}
	for typ, want := range cases {
		if got := usecase.Classify(typ); got != want {
			t.Errorf("Classify(%q) = %s, want %s", typ, got, want)
		}
	}
}

func TestAdminUseCase_GetOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	o := h.seedOrderO()
	body := envelope(t, "evt_O", model.EventCheckoutCompleted, paidCheckout(o.ExternalPaymentID, 10000))
	if _, err := h.webhook.Handle(ctx, body, validSignature); err != nil {
		t.Fatalf("handle: %v", err)
	}
	admin := usecase.NewAdminUseCase(h.orders, h.commissions, h.points, h.events, h.anomalies)

	t.Run("order with derived rows", func(t *testing.T) {
		v, err := admin.GetOrder(ctx, o.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if v.Order.Status != model.OrderStatusPaid || v.Commission == nil || len(v.Points) != 1 {
			t.Errorf("unexpected view: %+v", v)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		if _, err := admin.GetOrder(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("event listing and counts", func(t *testing.T) {
		evs, err := admin.ListEvents(ctx, model.ProcessingStatusProcessed, 0, 0)
		if err != nil || len(evs) != 1 {
			t.Fatalf("expected one processed event, got %d (%v)", len(evs), err)
		}
		counts, err := admin.EventCounts(ctx)
		if err != nil || counts[model.ProcessingStatusProcessed] != 1 {
			t.Errorf("unexpected counts %v (%v)", counts, err)
		}
	})
}
