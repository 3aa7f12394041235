package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle represents the cadence at which a subscription is billed
type BillingCycle string

const (
	CycleMonthly    BillingCycle = "MONTHLY"
	CycleQuarterly  BillingCycle = "QUARTERLY"
	CycleSemiAnnual BillingCycle = "SEMI_ANNUAL"
	CycleAnnual     BillingCycle = "ANNUAL"
)

// Advance returns the given date moved forward by one billing-cycle increment
func (c BillingCycle) Advance(from time.Time) time.Time {
	switch c {
	case CycleQuarterly:
		return from.AddDate(0, 3, 0)
	case CycleSemiAnnual:
		return from.AddDate(0, 6, 0)
	case CycleAnnual:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Months returns the length of one billing cycle in months
func (c BillingCycle) Months() int {
	switch c {
	case CycleQuarterly:
		return 3
	case CycleSemiAnnual:
		return 6
	case CycleAnnual:
		return 12
	default:
		return 1
	}
}

// Valid reports whether the cycle is one of the known cadences
func (c BillingCycle) Valid() bool {
	switch c {
	case CycleMonthly, CycleQuarterly, CycleSemiAnnual, CycleAnnual:
		return true
	}
	return false
}

// SubscriptionStatus represents the current state of a subscription
type SubscriptionStatus string

const (
	SubStatusActive    SubscriptionStatus = "ACTIVE"
	SubStatusPaused    SubscriptionStatus = "PAUSED"
	SubStatusCancelled SubscriptionStatus = "CANCELLED"
	SubStatusExpired   SubscriptionStatus = "EXPIRED"
)

// Subscription represents one recurring commercial relationship tied to
// exactly one contract and, optionally, one product.
type Subscription struct {
	ID           string
	ContractID   string
	ProductID    *string
	Number       string
	ProductName  string
	MonthlyPrice decimal.Decimal
	StartDate    time.Time
	EndDate      *time.Time
	BillingCycle BillingCycle
	Status       SubscriptionStatus
	AutoRenew    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CancelledAt  *time.Time
	DeletedAt    *time.Time
}

// IsActive reports whether the subscription is active and not soft-deleted
func (s *Subscription) IsActive() bool {
	return s.Status == SubStatusActive && s.DeletedAt == nil
}
