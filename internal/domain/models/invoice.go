package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the current state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusActive    InvoiceStatus = "ACTIVE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Invoice is a billing document aggregating one or more line items for
// one customer, optionally linked to one subscription. TotalAmount is
// derived from the line items and never set directly.
type Invoice struct {
	ID             string
	CustomerID     string
	SubscriptionID *string
	Number         string
	InvoiceDate    time.Time
	DueDate        time.Time
	Status         InvoiceStatus
	TotalAmount    decimal.Decimal
	BillingAddress string
	Items          []InvoiceItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InvoiceItem is one line of an invoice
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	ProductID   *string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
}

// GrossAmount returns quantity * unit price including tax
func (i *InvoiceItem) GrossAmount() decimal.Decimal {
	net := i.Quantity.Mul(i.UnitPrice)
	return net.Add(net.Mul(i.TaxRate).Div(decimal.NewFromInt(100))).Round(2)
}

// ComputeTotal recalculates TotalAmount from the line items
func (inv *Invoice) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range inv.Items {
		total = total.Add(inv.Items[i].GrossAmount())
	}
	return total
}
