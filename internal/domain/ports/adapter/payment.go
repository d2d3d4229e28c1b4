package adapter

import (
	"payment-events/internal/domain/model"
)

// EventVerifier authenticates a raw webhook delivery. It returns
// domain.ErrInvalidSignature for anything that fails authentication and
// domain.ErrMalformedPayload when the body authenticates but is not an event.
type EventVerifier interface {
	Verify(payload []byte, signatureHeader string) (*model.ProviderEvent, error)
}

// EventDecoder turns a provider data object into the neutral payload types.
// Every method returns domain.ErrMalformedPayload on a decode or validation
// failure.
type EventDecoder interface {
	// ParseEvent decodes a stored raw body without re-checking its signature.
	ParseEvent(raw []byte) (*model.ProviderEvent, error)
	DecodeCheckout(obj []byte) (*model.CheckoutPayment, error)
	DecodeSubscription(obj []byte) (*model.SubscriptionChange, error)
	DecodeInvoice(obj []byte) (*model.InvoiceEvent, error)
	DecodeRefund(obj []byte) (*model.RefundEvent, error)
}
