package repository

import (
	"context"

	"payment-events/internal/domain/model"
)

// -----------------------------
// Orders
// -----------------------------

// OrderRepository is the port for checkout orders. Finders lock the row with
// FOR UPDATE when called inside a transaction.
type OrderRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	FindByExternalPaymentID(ctx context.Context, tx Tx, externalPaymentID string) (*model.Order, error)
	FindByPaymentIntentID(ctx context.Context, tx Tx, paymentIntentID string) (*model.Order, error)
	// TransitionStatus moves the order from -> to only if it is still in from.
	// A non-empty paymentIntentID is recorded alongside. ok is false when the
	// row was not in from.
	TransitionStatus(ctx context.Context, tx Tx, id string, from, to model.OrderStatus, paymentIntentID string) (ok bool, err error)
}
