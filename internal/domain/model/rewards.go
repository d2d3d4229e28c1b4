package model

import "time"

type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "pending"
	CommissionStatusApproved CommissionStatus = "approved"
)

// Affiliate is a referring party that may earn commission on referred orders.
type Affiliate struct {
	Code    string
	Email   string
	RateBps *int64 // overrides the configured default when set
	Active  bool
}

// AffiliateCommission is owed to an affiliate for one paid order. At most one
// exists per order.
type AffiliateCommission struct {
	ID            string // UUID
	OrderID       string
	AffiliateCode string
	Amount        int64 // minor units
	Currency      string
	RateBps       int64
	Status        CommissionStatus
	CreatedAt     time.Time
}

const (
	PointsReasonOrderPaid     = "order_paid"
	PointsReasonOrderRefunded = "order_refunded"
)

// PointsLedgerEntry is an append-only loyalty points movement. Corrections are
// new entries with their own reason, never updates.
type PointsLedgerEntry struct {
	ID        string // ULID
	UserID    string
	OrderID   string
	Points    int64
	Reason    string
	CreatedAt time.Time
}

// CommissionAmount returns rateBps/10000 of amount, rounded half up to the
// nearest minor unit.
func CommissionAmount(amount, rateBps int64) int64 {
	if amount <= 0 || rateBps <= 0 {
		return 0
	}
	return (amount*rateBps + 5000) / 10000
}

// PointsFor returns floor(amount / unit) * perUnit.
func PointsFor(amount, unit, perUnit int64) int64 {
	if amount <= 0 || unit <= 0 || perUnit <= 0 {
		return 0
	}
	return (amount / unit) * perUnit
}
