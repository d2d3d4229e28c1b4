package model

import (
	"encoding/json"
	"time"
)

type ProcessingStatus string

const (
	ProcessingStatusPending   ProcessingStatus = "pending"
	ProcessingStatusProcessed ProcessingStatus = "processed"
	ProcessingStatusFailed    ProcessingStatus = "failed"
)

// WebhookEvent is the ledger row for one provider notification. The provider
// event id is unique; rows are never deleted.
type WebhookEvent struct {
	ProviderEventID string
	Type            string
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
	RawPayload      []byte
	Status          ProcessingStatus
	FailureReason   string
	Attempts        int
	ClaimedAt       time.Time
}

// ProviderEvent is an authenticated notification envelope.
type ProviderEvent struct {
	ID      string
	Type    EventType
	Created time.Time
	Object  json.RawMessage // the event's data object
	Raw     []byte          // the full body as received
}

// EventType is the provider's type tag.
type EventType string

const (
	EventCheckoutCompleted     EventType = "checkout.session.completed"
	EventAsyncPaymentSucceeded EventType = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed    EventType = "checkout.session.async_payment_failed"
	EventSubscriptionCreated   EventType = "customer.subscription.created"
	EventSubscriptionUpdated   EventType = "customer.subscription.updated"
	EventSubscriptionDeleted   EventType = "customer.subscription.deleted"
	EventInvoicePaid           EventType = "invoice.paid"
	EventInvoicePaymentFailed  EventType = "invoice.payment_failed"
	EventChargeRefunded        EventType = "charge.refunded"
)

// Admission is the idempotency ledger's verdict for a delivery.
type Admission int

const (
	Admitted Admission = iota
	AlreadyProcessed
	InFlight
)

func (a Admission) String() string {
	switch a {
	case Admitted:
		return "admitted"
	case AlreadyProcessed:
		return "already_processed"
	case InFlight:
		return "in_flight"
	default:
		return "unknown"
	}
}

// Outcome is what the pipeline did with an admitted or rejected delivery.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeInFlight  Outcome = "in_flight"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDeferred  Outcome = "deferred"
	OutcomeNoop      Outcome = "noop"
	OutcomeEscalated Outcome = "escalated"
)
