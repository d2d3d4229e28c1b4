package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.EventVerifier = (*StripeVerifier)(nil)

// DefaultTolerance is how old a signed timestamp may be before the delivery
// is treated as a replay.
const DefaultTolerance = 5 * time.Minute

// StripeVerifier checks the Stripe-Signature header against the endpoint
// secret and decodes the authenticated envelope.
type StripeVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewStripeVerifier(secret string, tolerance time.Duration) (*StripeVerifier, error) {
	if secret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &StripeVerifier{secret: secret, tolerance: tolerance}, nil
}

func (v *StripeVerifier) Verify(payload []byte, header string) (*model.ProviderEvent, error) {
	if header == "" {
		return nil, fmt.Errorf("%w: missing header", domain.ErrInvalidSignature)
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, header, v.secret, v.tolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return parseEvent(payload)
}

// parseEvent decodes an envelope that has already been authenticated. The
// API version check done by webhook.ConstructEvent is skipped: the data
// object is decoded field by field below.
func parseEvent(payload []byte) (*model.ProviderEvent, error) {
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, fmt.Errorf("%w: event id and type are required", domain.ErrMalformedPayload)
	}
	var obj json.RawMessage
	if ev.Data != nil {
		obj = ev.Data.Raw
	}
	return &model.ProviderEvent{
		ID:      ev.ID,
		Type:    model.EventType(ev.Type),
		Created: time.Unix(ev.Created, 0).UTC(),
		Object:  obj,
		Raw:     payload,
	}, nil
}
