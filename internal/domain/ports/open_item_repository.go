package ports

import (
	"context"
	"time"

	"github.com/subledger/billing-engine/internal/domain/models"
)

// OpenItemRepository defines the interface for open item (receivable) persistence
type OpenItemRepository interface {
	// Create creates a new open item
	Create(ctx context.Context, tx DBTX, item *models.OpenItem) error

	// GetByID retrieves an open item by its ID
	GetByID(ctx context.Context, db DBTX, id string) (*models.OpenItem, error)

	// Update updates open item fields
	Update(ctx context.Context, tx DBTX, item *models.OpenItem) error

	// Delete removes an open item (only used for orphan cleanup)
	Delete(ctx context.Context, tx DBTX, id string) error

	// ListByInvoice lists open items belonging to an invoice
	ListByInvoice(ctx context.Context, db DBTX, invoiceID string) ([]*models.OpenItem, error)

	// ListByStatus lists open items in a given status
	ListByStatus(ctx context.Context, db DBTX, status models.OpenItemStatus) ([]*models.OpenItem, error)

	// ListOrphaned lists open items referencing no existing invoice (repair query)
	ListOrphaned(ctx context.Context, db DBTX) ([]*models.OpenItem, error)

	// ListOpenPastDue lists OPEN or PARTIALLY_PAID items whose due date is
	// before asOf (overdue reclassification)
	ListOpenPastDue(ctx context.Context, db DBTX, asOf time.Time) ([]*models.OpenItem, error)
}
