package ports

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/subledger/billing-engine/internal/domain/models"
)

// InvoiceMismatch is a repair-engine projection of an invoice whose total
// disagrees with the sum of its non-cancelled open items
type InvoiceMismatch struct {
	InvoiceID     string
	InvoiceTotal  decimal.Decimal
	OpenItemTotal decimal.Decimal
	OpenItemCount int
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// Create creates an invoice together with its line items
	Create(ctx context.Context, tx DBTX, invoice *models.Invoice) error

	// GetByID retrieves an invoice including its line items
	GetByID(ctx context.Context, db DBTX, id string) (*models.Invoice, error)

	// UpdateStatus transitions an invoice status
	UpdateStatus(ctx context.Context, tx DBTX, id string, status models.InvoiceStatus) error

	// ListBySubscription lists invoices linked to a subscription
	ListBySubscription(ctx context.Context, db DBTX, subscriptionID string) ([]*models.Invoice, error)

	// ListWithoutOpenItem lists non-cancelled, positive-amount invoices
	// that have no non-cancelled open item (repair query)
	ListWithoutOpenItem(ctx context.Context, db DBTX) ([]*models.Invoice, error)

	// ListOpenItemMismatches lists invoices whose total disagrees with the
	// sum of their non-cancelled open item amounts (repair query)
	ListOpenItemMismatches(ctx context.Context, db DBTX) ([]InvoiceMismatch, error)

	// CountByNumber counts invoices carrying the given number
	CountByNumber(ctx context.Context, db DBTX, number string) (int64, error)
}
