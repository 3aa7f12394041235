package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpenItemStatus represents the current state of a receivable
type OpenItemStatus string

const (
	OpenItemStatusOpen          OpenItemStatus = "OPEN"
	OpenItemStatusPartiallyPaid OpenItemStatus = "PARTIALLY_PAID"
	OpenItemStatusPaid          OpenItemStatus = "PAID"
	OpenItemStatusOverdue       OpenItemStatus = "OVERDUE"
	OpenItemStatusCancelled     OpenItemStatus = "CANCELLED"
)

// OpenItem tracks how much of an invoice's amount remains uncollected.
// Invariants: PaidAmount <= Amount; status PAID iff PaidAmount == Amount;
// OVERDUE only while the item would otherwise be OPEN or PARTIALLY_PAID
// and the due date has passed.
type OpenItem struct {
	ID            string
	InvoiceID     string
	Description   string
	Amount        decimal.Decimal
	DueDate       time.Time
	PaidAmount    decimal.Decimal
	Status        OpenItemStatus
	ReminderCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Outstanding returns the amount still uncollected
func (o *OpenItem) Outstanding() decimal.Decimal {
	return o.Amount.Sub(o.PaidAmount)
}

// RecalcStatus derives the status from paid amount and due date.
// Cancelled items are left untouched.
func (o *OpenItem) RecalcStatus(asOf time.Time) {
	if o.Status == OpenItemStatusCancelled {
		return
	}
	switch {
	case o.PaidAmount.GreaterThanOrEqual(o.Amount):
		o.Status = OpenItemStatusPaid
	case o.PaidAmount.IsPositive():
		o.Status = OpenItemStatusPartiallyPaid
	default:
		o.Status = OpenItemStatusOpen
	}
	if (o.Status == OpenItemStatusOpen || o.Status == OpenItemStatusPartiallyPaid) && o.DueDate.Before(asOf) {
		o.Status = OpenItemStatusOverdue
	}
}
