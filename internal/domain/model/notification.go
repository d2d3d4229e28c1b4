package model

import "time"

// Template names the closed set of transactional e-mails.
type Template string

const (
	TemplatePaymentSucceeded     Template = "payment_succeeded"
	TemplatePaymentFailed        Template = "payment_failed"
	TemplateSubscriptionRenewed  Template = "subscription_renewed"
	TemplateSubscriptionCanceled Template = "subscription_canceled"
	TemplateInvoicePaymentFailed Template = "invoice_payment_failed"
	TemplatePaymentRefunded      Template = "payment_refunded"
	TemplateCommissionEarned     Template = "commission_earned"
)

// EmailNotification is produced by reconciliation and consumed by the
// dispatcher. It is not persisted.
type EmailNotification struct {
	Template  Template
	Recipient string
	Variables map[string]string
	OrderID   string // log context for manual resend
	EventID   string
}

// OutboundEmail is a rendered notification ready for a delivery channel.
type OutboundEmail struct {
	To       string
	Subject  string
	HTMLBody string
	Template Template
	OrderID  string
	EventID  string
}

type AnomalySeverity string

const (
	AnomalyWarning  AnomalySeverity = "warning"
	AnomalyCritical AnomalySeverity = "critical"
)

const (
	AnomalyOrderNotFound        = "order_not_found"
	AnomalyContradictedEvent    = "contradicted_event"
	AnomalyAmountMismatch       = "amount_mismatch"
	AnomalySubscriptionNotFound = "subscription_not_found"
	AnomalyPartialRefund        = "partial_refund"
)

// Anomaly is an audit record for events that could not be applied cleanly and
// need an operator to look at them.
type Anomaly struct {
	ID              string // UUID
	ProviderEventID string
	Kind            string
	Severity        AnomalySeverity
	Reference       string
	Detail          string
	CreatedAt       time.Time
}
