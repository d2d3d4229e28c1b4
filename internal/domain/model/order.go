package model

import (
	"time"

	"payment-events/internal/domain"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"  // checkout session created, awaiting provider outcome
	OrderStatusPaid     OrderStatus = "paid"     // provider confirmed settlement
	OrderStatusFailed   OrderStatus = "failed"   // provider reported a settlement failure
	OrderStatusRefunded OrderStatus = "refunded" // fully refunded after payment
)

// Order is the local record of a checkout. It is created by the checkout flow and
// only ever transitioned by webhook reconciliation.
type Order struct {
	ID                string // UUID
	ExternalPaymentID string // provider checkout session id
	PaymentIntentID   *string
	Amount            int64 // minor units
	Currency          string
	Status            OrderStatus
	CustomerEmail     string
	CustomerID        *string // internal user id, owner of loyalty points
	AffiliateCode     *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusFailed},
	OrderStatusPaid:    {OrderStatusRefunded},
}

// CanTransition reports whether the order state machine allows from -> to.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no event may move the order out of s.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// Transition returns a copy of the order moved into status to.
func (o *Order) Transition(to OrderStatus, at time.Time) (*Order, error) {
	if o == nil {
		return nil, domain.ErrInvalidArgument
	}
	if !CanTransition(o.Status, to) {
		return nil, domain.ErrInvalidTransition
	}
	cp := *o
	cp.Status = to
	cp.UpdatedAt = at
	return &cp, nil
}

// PointsOwner is the ledger key loyalty points are credited to.
func (o *Order) PointsOwner() string {
	if o.CustomerID != nil && *o.CustomerID != "" {
		return *o.CustomerID
	}
	return o.CustomerEmail
}

// Affiliate returns the referral code, or "" when the order was not referred.
func (o *Order) Affiliate() string {
	if o.AffiliateCode == nil {
		return ""
	}
	return *o.AffiliateCode
}
