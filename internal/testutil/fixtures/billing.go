package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subledger/billing-engine/internal/domain/models"
)

// ContractBuilder provides a fluent API for building test contracts
type ContractBuilder struct {
	contract *models.Contract
}

// NewContract creates a contract builder with sensible defaults
func NewContract() *ContractBuilder {
	now := time.Now().UTC()
	return &ContractBuilder{
		contract: &models.Contract{
			ID:         uuid.New().String(),
			CustomerID: "CUST-0001",
			Number:     "CTR-" + uuid.New().String()[:8],
			Status:     models.ContractStatusActive,
			StartDate:  Date(2025, time.January, 1),
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}

func (b *ContractBuilder) WithID(id string) *ContractBuilder {
	b.contract.ID = id
	return b
}

func (b *ContractBuilder) WithCustomerID(customerID string) *ContractBuilder {
	b.contract.CustomerID = customerID
	return b
}

func (b *ContractBuilder) Terminated(endDate time.Time) *ContractBuilder {
	b.contract.Status = models.ContractStatusTerminated
	b.contract.EndDate = &endDate
	return b
}

func (b *ContractBuilder) Build() *models.Contract {
	c := *b.contract
	return &c
}

// SubscriptionBuilder provides a fluent API for building test subscriptions
type SubscriptionBuilder struct {
	sub *models.Subscription
}

// NewSubscription creates a subscription builder with sensible defaults:
// active, monthly, one year term
func NewSubscription() *SubscriptionBuilder {
	now := time.Now().UTC()
	end := Date(2026, time.January, 1)
	return &SubscriptionBuilder{
		sub: &models.Subscription{
			ID:           uuid.New().String(),
			ContractID:   uuid.New().String(),
			Number:       "SUB-" + uuid.New().String()[:8],
			ProductName:  "Standard Plan",
			MonthlyPrice: Money("49.90"),
			StartDate:    Date(2025, time.January, 1),
			EndDate:      &end,
			BillingCycle: models.CycleMonthly,
			Status:       models.SubStatusActive,
			AutoRenew:    true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func (b *SubscriptionBuilder) WithID(id string) *SubscriptionBuilder {
	b.sub.ID = id
	return b
}

func (b *SubscriptionBuilder) WithContractID(contractID string) *SubscriptionBuilder {
	b.sub.ContractID = contractID
	return b
}

func (b *SubscriptionBuilder) WithProduct(id, name string) *SubscriptionBuilder {
	b.sub.ProductID = &id
	b.sub.ProductName = name
	return b
}

func (b *SubscriptionBuilder) WithPrice(price decimal.Decimal) *SubscriptionBuilder {
	b.sub.MonthlyPrice = price
	return b
}

func (b *SubscriptionBuilder) WithCycle(cycle models.BillingCycle) *SubscriptionBuilder {
	b.sub.BillingCycle = cycle
	return b
}

func (b *SubscriptionBuilder) WithTerm(start time.Time, end *time.Time) *SubscriptionBuilder {
	b.sub.StartDate = start
	b.sub.EndDate = end
	return b
}

func (b *SubscriptionBuilder) WithAutoRenew(autoRenew bool) *SubscriptionBuilder {
	b.sub.AutoRenew = autoRenew
	return b
}

func (b *SubscriptionBuilder) Paused() *SubscriptionBuilder {
	b.sub.Status = models.SubStatusPaused
	return b
}

func (b *SubscriptionBuilder) Cancelled() *SubscriptionBuilder {
	now := time.Now().UTC()
	b.sub.Status = models.SubStatusCancelled
	b.sub.CancelledAt = &now
	b.sub.AutoRenew = false
	return b
}

func (b *SubscriptionBuilder) Expired() *SubscriptionBuilder {
	b.sub.Status = models.SubStatusExpired
	return b
}

func (b *SubscriptionBuilder) Deleted() *SubscriptionBuilder {
	now := time.Now().UTC()
	b.sub.DeletedAt = &now
	return b
}

func (b *SubscriptionBuilder) Build() *models.Subscription {
	s := *b.sub
	return &s
}

// DueScheduleBuilder provides a fluent API for building test due schedules
type DueScheduleBuilder struct {
	sched *models.DueSchedule
}

// NewDueSchedule creates a due schedule builder with sensible defaults:
// pending, one monthly period
func NewDueSchedule() *DueScheduleBuilder {
	now := time.Now().UTC()
	start := Date(2025, time.January, 1)
	return &DueScheduleBuilder{
		sched: &models.DueSchedule{
			ID:             uuid.New().String(),
			SubscriptionID: uuid.New().String(),
			Number:         "DS-" + uuid.New().String()[:8],
			DueDate:        start,
			PeriodStart:    start,
			PeriodEnd:      Date(2025, time.January, 31),
			Amount:         Money("49.90"),
			Status:         models.DueStatusPending,
			PaidAmount:     decimal.Zero,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
}

func (b *DueScheduleBuilder) WithID(id string) *DueScheduleBuilder {
	b.sched.ID = id
	return b
}

func (b *DueScheduleBuilder) WithSubscriptionID(subscriptionID string) *DueScheduleBuilder {
	b.sched.SubscriptionID = subscriptionID
	return b
}

func (b *DueScheduleBuilder) WithAmount(amount decimal.Decimal) *DueScheduleBuilder {
	b.sched.Amount = amount
	return b
}

func (b *DueScheduleBuilder) WithPeriod(start, end time.Time) *DueScheduleBuilder {
	b.sched.PeriodStart = start
	b.sched.PeriodEnd = end
	b.sched.DueDate = start
	return b
}

func (b *DueScheduleBuilder) WithDueDate(due time.Time) *DueScheduleBuilder {
	b.sched.DueDate = due
	return b
}

func (b *DueScheduleBuilder) WithStatus(status models.DueScheduleStatus) *DueScheduleBuilder {
	b.sched.Status = status
	return b
}

func (b *DueScheduleBuilder) Overdue() *DueScheduleBuilder {
	b.sched.Status = models.DueStatusOverdue
	return b
}

func (b *DueScheduleBuilder) Paid() *DueScheduleBuilder {
	now := time.Now().UTC()
	b.sched.Status = models.DueStatusPaid
	b.sched.PaidAmount = b.sched.Amount
	b.sched.PaidDate = &now
	return b
}

func (b *DueScheduleBuilder) PartiallyPaid(paid decimal.Decimal) *DueScheduleBuilder {
	now := time.Now().UTC()
	b.sched.PaidAmount = paid
	b.sched.PaidDate = &now
	return b
}

func (b *DueScheduleBuilder) Build() *models.DueSchedule {
	s := *b.sched
	return &s
}

// NewInvoice builds a one-item invoice the way the batch orchestrator
// produces them
func NewInvoice(customerID, subscriptionID string, amount decimal.Decimal, dueDate time.Time) *models.Invoice {
	now := time.Now().UTC()
	invoiceID := uuid.New().String()
	invoice := &models.Invoice{
		ID:             invoiceID,
		CustomerID:     customerID,
		SubscriptionID: &subscriptionID,
		Number:         "INV-" + uuid.New().String()[:8],
		InvoiceDate:    dueDate,
		DueDate:        dueDate,
		Status:         models.InvoiceStatusActive,
		Items: []models.InvoiceItem{{
			ID:          uuid.New().String(),
			InvoiceID:   invoiceID,
			Description: "Standard Plan",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   amount,
			TaxRate:     decimal.Zero,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	invoice.TotalAmount = invoice.ComputeTotal()
	return invoice
}

// NewOpenItem builds the receivable for an invoice
func NewOpenItem(invoiceID string, amount decimal.Decimal, dueDate time.Time) *models.OpenItem {
	now := time.Now().UTC()
	return &models.OpenItem{
		ID:         uuid.New().String(),
		InvoiceID:  invoiceID,
		Amount:     amount,
		DueDate:    dueDate,
		PaidAmount: decimal.Zero,
		Status:     models.OpenItemStatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
