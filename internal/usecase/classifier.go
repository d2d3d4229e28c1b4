package usecase

import "payment-events/internal/domain/model"

// EventCategory is the handler a provider event is routed to.
type EventCategory string

const (
	CategoryCheckoutCompleted     EventCategory = "checkout_completed"
	CategoryAsyncPaymentSucceeded EventCategory = "async_payment_succeeded"
	CategoryAsyncPaymentFailed    EventCategory = "async_payment_failed"
	CategorySubscriptionUpsert    EventCategory = "subscription_upsert"
	CategorySubscriptionDeleted   EventCategory = "subscription_deleted"
	CategoryInvoicePaid           EventCategory = "invoice_paid"
	CategoryInvoicePaymentFailed  EventCategory = "invoice_payment_failed"
	CategoryChargeRefunded        EventCategory = "charge_refunded"
	CategoryUnrecognized          EventCategory = "unrecognized"
)

// eventRegistry is closed; anything not listed is acknowledged and ignored.
// invoice.payment_succeeded is not routed: invoice.paid covers the same
// renewal.
var eventRegistry = map[model.EventType]EventCategory{
	model.EventCheckoutCompleted:     CategoryCheckoutCompleted,
	model.EventAsyncPaymentSucceeded: CategoryAsyncPaymentSucceeded,
	model.EventAsyncPaymentFailed:    CategoryAsyncPaymentFailed,
	model.EventSubscriptionCreated:   CategorySubscriptionUpsert,
	model.EventSubscriptionUpdated:   CategorySubscriptionUpsert,
	model.EventSubscriptionDeleted:   CategorySubscriptionDeleted,
	model.EventInvoicePaid:           CategoryInvoicePaid,
	model.EventInvoicePaymentFailed:  CategoryInvoicePaymentFailed,
	model.EventChargeRefunded:        CategoryChargeRefunded,
}

// Classify maps a provider type tag to its category.
func Classify(t model.EventType) EventCategory {
	if c, ok := eventRegistry[t]; ok {
		return c
	}
	return CategoryUnrecognized
}

// IsPaymentSuccess reports whether c moves an order into paid.
func (c EventCategory) IsPaymentSuccess() bool {
	return c == CategoryCheckoutCompleted || c == CategoryAsyncPaymentSucceeded
}
