package model

import "time"

// The payload types below are the provider-neutral shapes the reconciler works
// on. Adapters decode the provider's data object into them and validate the
// `validate` tags; a failure there is a malformed payload.

// CheckoutPayment is decoded from checkout session events.
type CheckoutPayment struct {
	SessionID       string `validate:"required_without=OrderRef"`
	OrderRef        string // correlation id from metadata / client reference
	PaymentIntentID string
	PaymentStatus   string `validate:"required"`
	AmountTotal     int64  `validate:"gte=0"`
	Currency        string
	CustomerEmail   string
}

// IsSettled reports whether the checkout itself confirms the money moved.
// Delayed payment methods complete the session as "unpaid" and settle later.
func (c *CheckoutPayment) IsSettled() bool {
	return c.PaymentStatus == "paid" || c.PaymentStatus == "no_payment_required"
}

// SubscriptionChange is decoded from customer.subscription.* events.
type SubscriptionChange struct {
	ExternalID       string `validate:"required"`
	CustomerID       string
	Status           string `validate:"required"`
	Plan             string
	CurrentPeriodEnd *time.Time
}

// InvoiceEvent is decoded from invoice.* events.
type InvoiceEvent struct {
	InvoiceID      string `validate:"required"`
	SubscriptionID string // empty for one-off invoices
	CustomerID     string
	CustomerEmail  string
	BillingReason  string
	PeriodEnd      *time.Time
	AmountPaid     int64
	Currency       string
}

// IsRenewal reports whether the invoice bills a new cycle of an existing
// subscription rather than its first period.
func (i *InvoiceEvent) IsRenewal() bool {
	return i.BillingReason == "subscription_cycle"
}

// RefundEvent is decoded from charge.refunded.
type RefundEvent struct {
	ChargeID        string `validate:"required"`
	PaymentIntentID string // empty for charges made without a payment intent
	Amount          int64  `validate:"gte=0"`
	AmountRefunded  int64  `validate:"gte=0"`
	Refunded        bool
	Currency        string
}

// IsFullRefund reports whether the whole charge was returned.
func (r *RefundEvent) IsFullRefund() bool {
	return r.Refunded || (r.Amount > 0 && r.AmountRefunded >= r.Amount)
}
