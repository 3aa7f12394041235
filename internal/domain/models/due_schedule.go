package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DueScheduleStatus represents the current state of a due schedule.
// PENDING and OVERDUE are "owed" (selectable for billing); PAID and
// COMPLETED are terminal "settled" states.
type DueScheduleStatus string

const (
	DueStatusPending   DueScheduleStatus = "PENDING"
	DueStatusOverdue   DueScheduleStatus = "OVERDUE"
	DueStatusPaid      DueScheduleStatus = "PAID"
	DueStatusCompleted DueScheduleStatus = "COMPLETED"
	DueStatusPaused    DueScheduleStatus = "PAUSED"
	DueStatusCancelled DueScheduleStatus = "CANCELLED"
)

// OwedStatuses are the statuses eligible for billing selection
var OwedStatuses = []DueScheduleStatus{DueStatusPending, DueStatusOverdue}

// SettledStatuses are the terminal statuses for billing purposes
var SettledStatuses = []DueScheduleStatus{DueStatusPaid, DueStatusCompleted}

// DueSchedule is one payment obligation for one billing period of one
// subscription.
type DueSchedule struct {
	ID               string
	SubscriptionID   string
	Number           string
	DueDate          time.Time
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Amount           decimal.Decimal
	Status           DueScheduleStatus
	PaidAmount       decimal.Decimal
	PaidDate         *time.Time
	PaymentMethod    string
	PaymentReference string
	ReminderCount    int
	LastReminderAt   *time.Time
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsOwed reports whether the schedule can still be selected for billing
func (d *DueSchedule) IsOwed() bool {
	return d.Status == DueStatusPending || d.Status == DueStatusOverdue
}

// IsSettled reports whether the schedule is terminal for billing purposes
func (d *DueSchedule) IsSettled() bool {
	return d.Status == DueStatusPaid || d.Status == DueStatusCompleted
}

// HasPayment reports whether any payment has been recorded.
// Amount is immutable once this returns true.
func (d *DueSchedule) HasPayment() bool {
	return d.PaidDate != nil || d.PaidAmount.IsPositive()
}
