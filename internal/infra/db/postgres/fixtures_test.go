//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"payment-events/internal/domain/model"
)

// seedOrder inserts a pending order; checkout creates orders outside this service.
func seedOrder(t *testing.T, session string, amount int64, affiliate *string) *model.Order {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	customer := "user-1"
	o := &model.Order{
		ID:                uuid.NewString(),
		ExternalPaymentID: session,
		Amount:            amount,
		Currency:          "usd",
		Status:            model.OrderStatusPending,
		CustomerEmail:     "buyer@example.com",
		CustomerID:        &customer,
		AffiliateCode:     affiliate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	_, err := testPool.Exec(context.Background(), `
INSERT INTO orders (id, external_payment_id, amount, currency, status, customer_email, customer_id, affiliate_code, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.ExternalPaymentID, o.Amount, o.Currency, string(o.Status), o.CustomerEmail, o.CustomerID, o.AffiliateCode, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return o
}

func seedAffiliate(t *testing.T, code string, rate *int64, active bool) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO affiliates (code, email, rate_bps, active) VALUES ($1,$2,$3,$4)`,
		code, code+"@example.com", rate, active)
	if err != nil {
		t.Fatalf("failed to seed affiliate: %v", err)
	}
}
