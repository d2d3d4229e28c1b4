// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/adapter"
	"payment-events/internal/domain/ports/repository"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileResult describes the state an event left behind. It is the input to
// PlanNotifications.
type ReconcileResult struct {
	EventID      string
	Category     EventCategory
	Outcome      model.Outcome
	Order        *model.Order
	Subscription *model.Subscription
	Transitioned bool // this event changed the order or subscription status
	Rewards      *RewardsResult
	Renewal      bool
	Recipient    string // customer address for subscription / invoice mail
}

// ReconcileUseCase applies a classified event to persisted state. Every
// decision is taken against the row as read under lock, never against the
// event's own view of the world.
type ReconcileUseCase interface {
	Apply(ctx context.Context, ev *model.ProviderEvent, cat EventCategory) (*ReconcileResult, error)
}

type reconcileUC struct {
	orders    repository.OrderRepository
	subs      repository.SubscriptionRepository
	anomalies repository.AnomalyRepository
	rewards   RewardsUseCase
	decoder   adapter.EventDecoder
	tm        repository.TransactionManager
	log       *zerolog.Logger
	now       func() time.Time
}

func NewReconcileUseCase(
	orders repository.OrderRepository,
	subs repository.SubscriptionRepository,
	anomalies repository.AnomalyRepository,
	rewards RewardsUseCase,
	decoder adapter.EventDecoder,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *reconcileUC {
	return &reconcileUC{
		orders:    orders,
		subs:      subs,
		anomalies: anomalies,
		rewards:   rewards,
		decoder:   decoder,
		tm:        tm,
		log:       logger,
		now:       time.Now,
	}
}

func (r *reconcileUC) Apply(ctx context.Context, ev *model.ProviderEvent, cat EventCategory) (*ReconcileResult, error) {
	res := &ReconcileResult{EventID: ev.ID, Category: cat}

	switch cat {
	case CategoryCheckoutCompleted, CategoryAsyncPaymentSucceeded:
		cp, err := r.decoder.DecodeCheckout(ev.Object)
		if err != nil {
			return nil, err
		}
		if cat == CategoryCheckoutCompleted && !cp.IsSettled() {
			// delayed payment method; the async events decide the outcome
			res.Outcome = model.OutcomeDeferred
			return res, nil
		}
		return res, r.applyPaid(ctx, ev, cp, res)

	case CategoryAsyncPaymentFailed:
		cp, err := r.decoder.DecodeCheckout(ev.Object)
		if err != nil {
			return nil, err
		}
		return res, r.applyFailed(ctx, ev, cp, res)

	case CategorySubscriptionUpsert, CategorySubscriptionDeleted:
		sc, err := r.decoder.DecodeSubscription(ev.Object)
		if err != nil {
			return nil, err
		}
		return res, r.applySubscription(ctx, sc, cat == CategorySubscriptionDeleted, res)

	case CategoryInvoicePaid, CategoryInvoicePaymentFailed:
		inv, err := r.decoder.DecodeInvoice(ev.Object)
		if err != nil {
			return nil, err
		}
		return res, r.applyInvoice(ctx, ev, inv, cat == CategoryInvoicePaid, res)

	case CategoryChargeRefunded:
		rf, err := r.decoder.DecodeRefund(ev.Object)
		if err != nil {
			return nil, err
		}
		return res, r.applyRefund(ctx, ev, rf, res)

	default:
		r.log.Info().Str("event_id", ev.ID).Str("type", string(ev.Type)).Msg("unrecognized event type; acknowledged")
		res.Outcome = model.OutcomeIgnored
		return res, nil
	}
}

func (r *reconcileUC) applyPaid(ctx context.Context, ev *model.ProviderEvent, cp *model.CheckoutPayment, res *ReconcileResult) error {
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		order, err := r.findOrder(ctx, tx, cp)
		if errors.Is(err, domain.ErrOrderNotFound) {
			r.log.Error().Str("event_id", ev.ID).Str("type", string(ev.Type)).
				Str("session_id", cp.SessionID).Str("order_ref", cp.OrderRef).
				Int64("amount", cp.AmountTotal).Str("currency", cp.Currency).
				Msg("payment succeeded for unknown order")
			res.Outcome = model.OutcomeEscalated
			return r.recordAnomaly(ctx, tx, ev.ID, model.AnomalyOrderNotFound, model.AnomalyCritical,
				refOf(cp), fmt.Sprintf("%s for %d %s matched no order", ev.Type, cp.AmountTotal, cp.Currency))
		}
		if err != nil {
			return err
		}

		switch order.Status {
		case model.OrderStatusPaid:
			// checkout.completed and async_payment_succeeded both landed
			res.Outcome = model.OutcomeNoop

		case model.OrderStatusPending:
			next, err := order.Transition(model.OrderStatusPaid, r.now())
			if err != nil {
				return err
			}
			ok, err := r.orders.TransitionStatus(ctx, tx, order.ID, model.OrderStatusPending, model.OrderStatusPaid, cp.PaymentIntentID)
			if err != nil {
				return fmt.Errorf("mark order %s paid: %w", order.ID, err)
			}
			if !ok {
				return fmt.Errorf("order %s left pending concurrently: %w", order.ID, domain.ErrInvalidTransition)
			}
			if cp.PaymentIntentID != "" {
				pi := cp.PaymentIntentID
				next.PaymentIntentID = &pi
			}
			order = next
			res.Transitioned = true
			res.Outcome = model.OutcomeProcessed
			if cp.AmountTotal != order.Amount {
				r.log.Warn().Str("event_id", ev.ID).Str("order_id", order.ID).
					Int64("expected", order.Amount).Int64("received", cp.AmountTotal).Msg("amount mismatch")
				if err := r.recordAnomaly(ctx, tx, ev.ID, model.AnomalyAmountMismatch, model.AnomalyWarning, order.ID,
					fmt.Sprintf("order amount %d, provider amount %d", order.Amount, cp.AmountTotal)); err != nil {
					return err
				}
			}

		default:
			res.Order = order
			res.Outcome = model.OutcomeNoop
			return r.contradicted(ctx, tx, ev, order)
		}

		res.Order = order
		rw, err := r.rewards.Grant(ctx, tx, order)
		if err != nil {
			return err
		}
		res.Rewards = rw
		return nil
	})
}

func (r *reconcileUC) applyFailed(ctx context.Context, ev *model.ProviderEvent, cp *model.CheckoutPayment, res *ReconcileResult) error {
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		order, err := r.findOrder(ctx, tx, cp)
		if errors.Is(err, domain.ErrOrderNotFound) {
			r.log.Warn().Str("event_id", ev.ID).Str("session_id", cp.SessionID).Msg("payment failed for unknown order")
			res.Outcome = model.OutcomeEscalated
			return r.recordAnomaly(ctx, tx, ev.ID, model.AnomalyOrderNotFound, model.AnomalyWarning,
				refOf(cp), fmt.Sprintf("%s matched no order", ev.Type))
		}
		if err != nil {
			return err
		}
		res.Order = order

		switch order.Status {
		case model.OrderStatusFailed:
			res.Outcome = model.OutcomeNoop
			return nil
		case model.OrderStatusPending:
			next, err := order.Transition(model.OrderStatusFailed, r.now())
			if err != nil {
				return err
			}
			ok, err := r.orders.TransitionStatus(ctx, tx, order.ID, model.OrderStatusPending, model.OrderStatusFailed, "")
			if err != nil {
				return fmt.Errorf("mark order %s failed: %w", order.ID, err)
			}
			if !ok {
				return fmt.Errorf("order %s left pending concurrently: %w", order.ID, domain.ErrInvalidTransition)
			}
			res.Order = next
			res.Transitioned = true
			res.Outcome = model.OutcomeProcessed
			return nil
		default:
			// a failure report never pulls a paid order back
			res.Outcome = model.OutcomeNoop
			return r.contradicted(ctx, tx, ev, order)
		}
	})
}

func (r *reconcileUC) applySubscription(ctx context.Context, sc *model.SubscriptionChange, deleted bool, res *ReconcileResult) error {
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := r.subs.FindByExternalID(ctx, tx, sc.ExternalID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		now := r.now()
		status := model.MapProviderSubscriptionStatus(sc.Status)
		if deleted {
			status = model.SubscriptionStatusCanceled
		}
		in := &model.Subscription{
			ID:                     uuid.NewString(),
			ExternalSubscriptionID: sc.ExternalID,
			CustomerID:             sc.CustomerID,
			Plan:                   sc.Plan,
			Status:                 status,
			CurrentPeriodEnd:       sc.CurrentPeriodEnd,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		merged := existing.Merge(in, now)
		if err := r.subs.Upsert(ctx, tx, merged); err != nil {
			return fmt.Errorf("upsert subscription %s: %w", sc.ExternalID, err)
		}

		if existing == nil && deleted {
			r.log.Info().Str("subscription", sc.ExternalID).Msg("deletion for unknown subscription; stored canceled stub")
		}
		res.Subscription = merged
		// a canceled stub is not a cancellation the customer should hear about
		res.Transitioned = existing != nil && existing.Status != merged.Status
		res.Recipient = deref(merged.CustomerEmail)
		res.Outcome = model.OutcomeProcessed
		return nil
	})
}

func (r *reconcileUC) applyInvoice(ctx context.Context, ev *model.ProviderEvent, inv *model.InvoiceEvent, paid bool, res *ReconcileResult) error {
	if inv.SubscriptionID == "" {
		r.log.Info().Str("event_id", ev.ID).Str("invoice", inv.InvoiceID).Msg("invoice without subscription ignored")
		res.Outcome = model.OutcomeIgnored
		return nil
	}
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := r.subs.FindByExternalID(ctx, tx, inv.SubscriptionID)
		if errors.Is(err, domain.ErrNotFound) {
			r.log.Warn().Str("event_id", ev.ID).Str("subscription", inv.SubscriptionID).Msg("invoice for unknown subscription")
			res.Outcome = model.OutcomeEscalated
			return r.recordAnomaly(ctx, tx, ev.ID, model.AnomalySubscriptionNotFound, model.AnomalyWarning,
				inv.SubscriptionID, fmt.Sprintf("%s for invoice %s", ev.Type, inv.InvoiceID))
		}
		if err != nil {
			return err
		}

		in := &model.Subscription{Status: sub.Status, CustomerID: inv.CustomerID}
		if inv.CustomerEmail != "" {
			email := inv.CustomerEmail
			in.CustomerEmail = &email
		}
		if paid {
			in.CurrentPeriodEnd = inv.PeriodEnd
			if sub.Status == model.SubscriptionStatusPastDue {
				in.Status = model.SubscriptionStatusActive
			}
		} else {
			in.Status = model.SubscriptionStatusPastDue
		}
		merged := sub.Merge(in, r.now())
		if err := r.subs.Upsert(ctx, tx, merged); err != nil {
			return fmt.Errorf("update subscription %s: %w", sub.ExternalSubscriptionID, err)
		}

		res.Subscription = merged
		res.Transitioned = merged.Status != sub.Status
		res.Renewal = paid && inv.IsRenewal()
		res.Recipient = deref(merged.CustomerEmail)
		res.Outcome = model.OutcomeProcessed
		if merged.Status == model.SubscriptionStatusCanceled {
			res.Outcome = model.OutcomeNoop
		}
		return nil
	})
}

func (r *reconcileUC) applyRefund(ctx context.Context, ev *model.ProviderEvent, rf *model.RefundEvent, res *ReconcileResult) error {
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if rf.PaymentIntentID == "" {
			r.log.Warn().Str("event_id", ev.ID).Str("charge", rf.ChargeID).Msg("refund of a charge without payment intent")
			res.Outcome = model.OutcomeEscalated
			return r.recordAnomaly(ctx, tx, ev.ID, model.AnomalyOrderNotFound, model.AnomalyWarning,
				rf.ChargeID, fmt.Sprintf("refund of charge %s has no payment intent", rf.ChargeID))
		}
		order, err := r.orders.FindByPaymentIntentID(ctx, tx, rf.PaymentIntentID)
		if errors.Is(err, domain.ErrNotFound) {
			r.log.Warn().Str("event_id", ev.ID).Str("payment_intent", rf.PaymentIntentID).Msg("refund for unknown order")
			res.Outcome = model.OutcomeEscalated
			return r.recordAnomaly(ctx, tx, ev.ID, model.AnomalyOrderNotFound, model.AnomalyWarning,
				rf.PaymentIntentID, fmt.Sprintf("refund of charge %s matched no order", rf.ChargeID))
		}
		if err != nil {
			return err
		}
		res.Order = order

		if !rf.IsFullRefund() {
			res.Outcome = model.OutcomeNoop
			return r.recordAnomaly(ctx, tx, ev.ID, model.AnomalyPartialRefund, model.AnomalyWarning, order.ID,
				fmt.Sprintf("refunded %d of %d", rf.AmountRefunded, rf.Amount))
		}

		switch order.Status {
		case model.OrderStatusRefunded:
			res.Outcome = model.OutcomeNoop
			return nil
		case model.OrderStatusPaid:
			next, err := order.Transition(model.OrderStatusRefunded, r.now())
			if err != nil {
				return err
			}
			ok, err := r.orders.TransitionStatus(ctx, tx, order.ID, model.OrderStatusPaid, model.OrderStatusRefunded, "")
			if err != nil {
				return fmt.Errorf("mark order %s refunded: %w", order.ID, err)
			}
			if !ok {
				return fmt.Errorf("order %s left paid concurrently: %w", order.ID, domain.ErrInvalidTransition)
			}
			if _, err := r.rewards.Revoke(ctx, tx, next); err != nil {
				return err
			}
			res.Order = next
			res.Transitioned = true
			res.Outcome = model.OutcomeProcessed
			return nil
		default:
			res.Outcome = model.OutcomeNoop
			return r.contradicted(ctx, tx, ev, order)
		}
	})
}

// findOrder resolves the order by provider session id first, then by the
// correlation id carried in the event.
func (r *reconcileUC) findOrder(ctx context.Context, tx repository.Tx, cp *model.CheckoutPayment) (*model.Order, error) {
	if cp.SessionID != "" {
		o, err := r.orders.FindByExternalPaymentID(ctx, tx, cp.SessionID)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if cp.OrderRef != "" {
		o, err := r.orders.FindByID(ctx, tx, cp.OrderRef)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *reconcileUC) contradicted(ctx context.Context, tx repository.Tx, ev *model.ProviderEvent, order *model.Order) error {
	r.log.Warn().Str("event_id", ev.ID).Str("type", string(ev.Type)).Str("order_id", order.ID).
		Str("status", string(order.Status)).Msg("event contradicts order state; ignored")
	return r.recordAnomaly(ctx, tx, ev.ID, model.AnomalyContradictedEvent, model.AnomalyWarning, order.ID,
		fmt.Sprintf("%s received for order in status %s", ev.Type, order.Status))
}

func (r *reconcileUC) recordAnomaly(ctx context.Context, tx repository.Tx, eventID, kind string, sev model.AnomalySeverity, ref, detail string) error {
	a := &model.Anomaly{
		ID:              uuid.NewString(),
		ProviderEventID: eventID,
		Kind:            kind,
		Severity:        sev,
		Reference:       ref,
		Detail:          detail,
		CreatedAt:       r.now(),
	}
	if err := r.anomalies.Record(ctx, tx, a); err != nil {
		return fmt.Errorf("record anomaly %s: %w", kind, err)
	}
	return nil
}

func refOf(cp *model.CheckoutPayment) string {
	if cp.SessionID != "" {
		return cp.SessionID
	}
	return cp.OrderRef
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
