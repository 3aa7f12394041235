package ports

import (
	"context"

	"github.com/subledger/billing-engine/internal/domain/models"
)

// ContractRepository defines the interface for contract persistence.
// Contract CRUD itself lives outside the billing engine; the engine only
// needs lookups and the status/end-date write used by the termination
// cascade and the repair engine.
type ContractRepository interface {
	// Create creates a new contract (used by seeding and tests)
	Create(ctx context.Context, tx DBTX, contract *models.Contract) error

	// GetByID retrieves a contract by its ID
	GetByID(ctx context.Context, db DBTX, id string) (*models.Contract, error)

	// Update updates contract fields
	Update(ctx context.Context, tx DBTX, contract *models.Contract) error
}

// ProductRepository defines read access to product master data
type ProductRepository interface {
	// Create creates a new product (used by seeding and tests)
	Create(ctx context.Context, tx DBTX, product *models.Product) error

	// GetByID retrieves a product by its ID
	GetByID(ctx context.Context, db DBTX, id string) (*models.Product, error)
}
