package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
)

// ContractRepository implements ports.ContractRepository
type ContractRepository struct {
	baseRepo
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db domain.DBPort) *ContractRepository {
	return &ContractRepository{baseRepo{db: db}}
}

const contractColumns = `id::text, customer_id, number, status, start_date, end_date, created_at, updated_at, deleted_at`

// Create creates a new contract
func (r *ContractRepository) Create(ctx context.Context, tx domain.DBTX, contract *models.Contract) error {
	_, err := r.queryer(tx).Exec(ctx, `
		INSERT INTO contracts (id, customer_id, number, status, start_date, end_date, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		contract.ID, contract.CustomerID, contract.Number, string(contract.Status),
		contract.StartDate, nullDate(contract.EndDate),
		contract.CreatedAt, contract.UpdatedAt, nullTime(contract.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

// GetByID retrieves a contract by its ID
func (r *ContractRepository) GetByID(ctx context.Context, db domain.DBTX, id string) (*models.Contract, error) {
	row := r.queryer(db).QueryRow(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	return scanContract(row)
}

// Update updates contract fields
func (r *ContractRepository) Update(ctx context.Context, tx domain.DBTX, contract *models.Contract) error {
	_, err := r.queryer(tx).Exec(ctx, `
		UPDATE contracts
		SET status = $2, end_date = $3, updated_at = $4, deleted_at = $5
		WHERE id = $1`,
		contract.ID, string(contract.Status), nullDate(contract.EndDate),
		contract.UpdatedAt, nullTime(contract.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	return nil
}

func scanContract(row interface{ Scan(...interface{}) error }) (*models.Contract, error) {
	var (
		c         models.Contract
		status    string
		endDate   pgtype.Date
		deletedAt pgtype.Timestamptz
	)
	err := row.Scan(&c.ID, &c.CustomerID, &c.Number, &status, &c.StartDate, &endDate,
		&c.CreatedAt, &c.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("scan contract: %w", err)
	}
	c.Status = models.ContractStatus(status)
	c.EndDate = datePtr(endDate)
	c.DeletedAt = timePtr(deletedAt)
	return &c, nil
}

// ProductRepository implements ports.ProductRepository
type ProductRepository struct {
	baseRepo
}

// NewProductRepository creates a new product repository
func NewProductRepository(db domain.DBPort) *ProductRepository {
	return &ProductRepository{baseRepo{db: db}}
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, tx domain.DBTX, product *models.Product) error {
	price, err := decimalToNumeric(product.Price)
	if err != nil {
		return err
	}
	_, err = r.queryer(tx).Exec(ctx, `
		INSERT INTO products (id, name, price, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		product.ID, product.Name, price, product.CreatedAt, product.UpdatedAt, nullTime(product.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID
func (r *ProductRepository) GetByID(ctx context.Context, db domain.DBTX, id string) (*models.Product, error) {
	var (
		p         models.Product
		price     pgtype.Numeric
		deletedAt pgtype.Timestamptz
	)
	err := r.queryer(db).QueryRow(ctx, `
		SELECT id::text, name, price, created_at, updated_at, deleted_at
		FROM products WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&p.ID, &p.Name, &price, &p.CreatedAt, &p.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	if p.Price, err = numericToDecimal(price); err != nil {
		return nil, err
	}
	p.DeletedAt = timePtr(deletedAt)
	return &p, nil
}
