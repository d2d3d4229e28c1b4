package model

import (
	"strings"
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription mirrors a provider-side recurring subscription.
type Subscription struct {
	ID                     string // UUID
	ExternalSubscriptionID string // provider subscription id, unique
	CustomerID             string // provider customer id
	CustomerEmail          *string
	Plan                   string
	Status                 SubscriptionStatus
	CurrentPeriodEnd       *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// MapProviderSubscriptionStatus folds the provider's wider status vocabulary into
// the three states kept locally.
func MapProviderSubscriptionStatus(s string) SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "trialing":
		return SubscriptionStatusActive
	case "canceled", "incomplete_expired":
		return SubscriptionStatusCanceled
	default:
		// past_due, unpaid, incomplete, paused
		return SubscriptionStatusPastDue
	}
}

// Merge applies an incoming snapshot on top of the stored row. Canceled is
// terminal and period ends never move backwards, so late or reordered events
// cannot resurrect or shorten a subscription.
func (s *Subscription) Merge(in *Subscription, at time.Time) *Subscription {
	if s == nil {
		cp := *in
		return &cp
	}
	cp := *s
	if in.CustomerID != "" {
		cp.CustomerID = in.CustomerID
	}
	if in.CustomerEmail != nil {
		cp.CustomerEmail = in.CustomerEmail
	}
	if in.Plan != "" {
		cp.Plan = in.Plan
	}
	if cp.Status != SubscriptionStatusCanceled {
		cp.Status = in.Status
	}
	cp.CurrentPeriodEnd = laterOf(cp.CurrentPeriodEnd, in.CurrentPeriodEnd)
	cp.UpdatedAt = at
	return &cp
}

func laterOf(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
