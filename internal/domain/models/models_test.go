package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBillingCycle_Advance(t *testing.T) {
	from := day(2025, time.January, 15)

	assert.Equal(t, day(2025, time.February, 15), CycleMonthly.Advance(from))
	assert.Equal(t, day(2025, time.April, 15), CycleQuarterly.Advance(from))
	assert.Equal(t, day(2025, time.July, 15), CycleSemiAnnual.Advance(from))
	assert.Equal(t, day(2026, time.January, 15), CycleAnnual.Advance(from))
}

func TestBillingCycle_Valid(t *testing.T) {
	assert.True(t, CycleMonthly.Valid())
	assert.True(t, CycleAnnual.Valid())
	assert.False(t, BillingCycle("WEEKLY").Valid())
	assert.False(t, BillingCycle("").Valid())
}

func TestDueSchedule_OwedAndSettled(t *testing.T) {
	sched := &DueSchedule{Status: DueStatusPending}
	assert.True(t, sched.IsOwed())
	assert.False(t, sched.IsSettled())

	sched.Status = DueStatusOverdue
	assert.True(t, sched.IsOwed())

	sched.Status = DueStatusCompleted
	assert.False(t, sched.IsOwed())
	assert.True(t, sched.IsSettled())

	sched.Status = DueStatusPaused
	assert.False(t, sched.IsOwed())
	assert.False(t, sched.IsSettled())
}

func TestDueSchedule_HasPayment(t *testing.T) {
	sched := &DueSchedule{}
	assert.False(t, sched.HasPayment())

	sched.PaidAmount = decimal.NewFromInt(10)
	assert.True(t, sched.HasPayment())
}

func TestInvoice_ComputeTotal(t *testing.T) {
	inv := &Invoice{Items: []InvoiceItem{
		{Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("49.90")},
		{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("100.00"), TaxRate: decimal.NewFromInt(19)},
	}}

	assert.True(t, inv.ComputeTotal().Equal(decimal.RequireFromString("218.80")))
}

func TestInvoiceItem_GrossAmount_RoundsToCents(t *testing.T) {
	item := InvoiceItem{
		Quantity:  decimal.NewFromInt(3),
		UnitPrice: decimal.RequireFromString("9.99"),
		TaxRate:   decimal.RequireFromString("7.7"),
	}

	assert.True(t, item.GrossAmount().Equal(decimal.RequireFromString("32.28")))
}

func TestOpenItem_RecalcStatus(t *testing.T) {
	asOf := day(2025, time.June, 1)

	item := &OpenItem{
		Amount:  decimal.NewFromInt(100),
		DueDate: day(2025, time.July, 1),
		Status:  OpenItemStatusOpen,
	}
	item.RecalcStatus(asOf)
	assert.Equal(t, OpenItemStatusOpen, item.Status)

	item.PaidAmount = decimal.NewFromInt(40)
	item.RecalcStatus(asOf)
	assert.Equal(t, OpenItemStatusPartiallyPaid, item.Status)

	item.PaidAmount = decimal.NewFromInt(100)
	item.RecalcStatus(asOf)
	assert.Equal(t, OpenItemStatusPaid, item.Status)
}

func TestOpenItem_RecalcStatus_Overdue(t *testing.T) {
	item := &OpenItem{
		Amount:  decimal.NewFromInt(100),
		DueDate: day(2025, time.January, 1),
		Status:  OpenItemStatusOpen,
	}
	item.RecalcStatus(day(2025, time.June, 1))
	assert.Equal(t, OpenItemStatusOverdue, item.Status)
}

func TestOpenItem_RecalcStatus_CancelledUntouched(t *testing.T) {
	item := &OpenItem{
		Amount:     decimal.NewFromInt(100),
		PaidAmount: decimal.NewFromInt(100),
		DueDate:    day(2025, time.January, 1),
		Status:     OpenItemStatusCancelled,
	}
	item.RecalcStatus(day(2025, time.June, 1))
	assert.Equal(t, OpenItemStatusCancelled, item.Status)
}

func TestOpenItem_Outstanding(t *testing.T) {
	item := &OpenItem{
		Amount:     decimal.RequireFromString("49.90"),
		PaidAmount: decimal.RequireFromString("20.00"),
	}
	assert.True(t, item.Outstanding().Equal(decimal.RequireFromString("29.90")))
}

func TestSubscription_IsActive(t *testing.T) {
	now := time.Now()
	sub := &Subscription{Status: SubStatusActive}
	assert.True(t, sub.IsActive())

	sub.DeletedAt = &now
	assert.False(t, sub.IsActive())

	sub.DeletedAt = nil
	sub.Status = SubStatusPaused
	assert.False(t, sub.IsActive())
}
