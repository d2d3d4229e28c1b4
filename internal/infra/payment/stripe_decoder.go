package payment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	stripe "github.com/stripe/stripe-go/v82"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.EventDecoder = (*StripeDecoder)(nil)

// StripeDecoder maps Stripe data objects to the neutral payload types.
type StripeDecoder struct {
	validate *validator.Validate
}

func NewStripeDecoder() *StripeDecoder {
	return &StripeDecoder{validate: validator.New()}
}

func (d *StripeDecoder) ParseEvent(raw []byte) (*model.ProviderEvent, error) {
	return parseEvent(raw)
}

func (d *StripeDecoder) DecodeCheckout(obj []byte) (*model.CheckoutPayment, error) {
	var s stripe.CheckoutSession
	if err := json.Unmarshal(obj, &s); err != nil {
		return nil, malformed("checkout session", err)
	}
	cp := &model.CheckoutPayment{
		SessionID:     s.ID,
		OrderRef:      s.Metadata["order_id"],
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		CustomerEmail: s.CustomerEmail,
	}
	if cp.OrderRef == "" {
		cp.OrderRef = s.ClientReferenceID
	}
	if s.PaymentIntent != nil {
		cp.PaymentIntentID = s.PaymentIntent.ID
	}
	if cp.CustomerEmail == "" && s.CustomerDetails != nil {
		cp.CustomerEmail = s.CustomerDetails.Email
	}
	return cp, d.check("checkout session", cp)
}

// stripeSubscription is decoded by hand: since API 2025-03-31 the period end
// lives on the subscription items.
type stripeSubscription struct {
	ID               string     `json:"id"`
	Customer         idOrObject `json:"customer"`
	Status           string     `json:"status"`
	CurrentPeriodEnd int64      `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID        string `json:"id"`
				LookupKey string `json:"lookup_key"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

func (d *StripeDecoder) DecodeSubscription(obj []byte) (*model.SubscriptionChange, error) {
	var s stripeSubscription
	if err := json.Unmarshal(obj, &s); err != nil {
		return nil, malformed("subscription", err)
	}
	sc := &model.SubscriptionChange{
		ExternalID: s.ID,
		CustomerID: string(s.Customer),
		Status:     s.Status,
		Plan:       s.Metadata["plan"],
	}
	end := s.CurrentPeriodEnd
	for _, it := range s.Items.Data {
		if it.CurrentPeriodEnd > end {
			end = it.CurrentPeriodEnd
		}
		if sc.Plan == "" {
			sc.Plan = it.Price.LookupKey
		}
		if sc.Plan == "" {
			sc.Plan = it.Price.ID
		}
	}
	sc.CurrentPeriodEnd = unixPtr(end)
	return sc, d.check("subscription", sc)
}

// stripeInvoice covers both the legacy top-level subscription field and the
// parent.subscription_details shape.
type stripeInvoice struct {
	ID            string     `json:"id"`
	Customer      idOrObject `json:"customer"`
	CustomerEmail string     `json:"customer_email"`
	BillingReason string     `json:"billing_reason"`
	AmountPaid    int64      `json:"amount_paid"`
	Currency      string     `json:"currency"`
	PeriodEnd     int64      `json:"period_end"`
	Subscription  idOrObject `json:"subscription"`
	Parent        struct {
		SubscriptionDetails struct {
			Subscription idOrObject `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	Lines struct {
		Data []struct {
			Period struct {
				End int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

func (d *StripeDecoder) DecodeInvoice(obj []byte) (*model.InvoiceEvent, error) {
	var in stripeInvoice
	if err := json.Unmarshal(obj, &in); err != nil {
		return nil, malformed("invoice", err)
	}
	ie := &model.InvoiceEvent{
		InvoiceID:      in.ID,
		SubscriptionID: string(in.Parent.SubscriptionDetails.Subscription),
		CustomerID:     string(in.Customer),
		CustomerEmail:  in.CustomerEmail,
		BillingReason:  in.BillingReason,
		AmountPaid:     in.AmountPaid,
		Currency:       in.Currency,
	}
	if ie.SubscriptionID == "" {
		ie.SubscriptionID = string(in.Subscription)
	}
	// the invoice's own period_end is the previous cycle; lines carry the new one
	var end int64
	for _, l := range in.Lines.Data {
		if l.Period.End > end {
			end = l.Period.End
		}
	}
	ie.PeriodEnd = unixPtr(end)
	return ie, d.check("invoice", ie)
}

func (d *StripeDecoder) DecodeRefund(obj []byte) (*model.RefundEvent, error) {
	var ch stripe.Charge
	if err := json.Unmarshal(obj, &ch); err != nil {
		return nil, malformed("charge", err)
	}
	rf := &model.RefundEvent{
		ChargeID:       ch.ID,
		Amount:         ch.Amount,
		AmountRefunded: ch.AmountRefunded,
		Refunded:       ch.Refunded,
		Currency:       string(ch.Currency),
	}
	if ch.PaymentIntent != nil {
		rf.PaymentIntentID = ch.PaymentIntent.ID
	}
	return rf, d.check("charge", rf)
}

func (d *StripeDecoder) check(kind string, v any) error {
	if err := d.validate.Struct(v); err != nil {
		return malformed(kind, err)
	}
	return nil
}

func malformed(kind string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrMalformedPayload, kind, err)
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// idOrObject accepts an expandable field either as its id string or as an
// expanded object carrying "id".
type idOrObject string

func (f *idOrObject) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = idOrObject(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*f = idOrObject(obj.ID)
	return nil
}
