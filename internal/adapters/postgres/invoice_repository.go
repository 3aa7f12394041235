package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
)

// InvoiceRepository implements ports.InvoiceRepository
type InvoiceRepository struct {
	baseRepo
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db domain.DBPort) *InvoiceRepository {
	return &InvoiceRepository{baseRepo{db: db}}
}

const invoiceColumns = `i.id::text, i.customer_id, i.subscription_id::text, i.number, i.invoice_date, i.due_date,
	i.status, i.total_amount, i.billing_address, i.created_at, i.updated_at`

// Create creates an invoice together with its line items
func (r *InvoiceRepository) Create(ctx context.Context, tx domain.DBTX, invoice *models.Invoice) error {
	total, err := decimalToNumeric(invoice.TotalAmount)
	if err != nil {
		return err
	}
	q := r.queryer(tx)
	_, err = q.Exec(ctx, `
		INSERT INTO invoices (id, customer_id, subscription_id, number, invoice_date, due_date,
			status, total_amount, billing_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		invoice.ID, invoice.CustomerID, nullTextPtr(invoice.SubscriptionID), invoice.Number,
		invoice.InvoiceDate, invoice.DueDate, string(invoice.Status), total, invoice.BillingAddress,
		invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}

	for i := range invoice.Items {
		item := &invoice.Items[i]
		quantity, err := decimalToNumeric(item.Quantity)
		if err != nil {
			return err
		}
		unitPrice, err := decimalToNumeric(item.UnitPrice)
		if err != nil {
			return err
		}
		taxRate, err := decimalToNumeric(item.TaxRate)
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, `
			INSERT INTO invoice_items (id, invoice_id, product_id, description, quantity, unit_price, tax_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, invoice.ID, nullTextPtr(item.ProductID), item.Description, quantity, unitPrice, taxRate,
		)
		if err != nil {
			return fmt.Errorf("create invoice item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an invoice including its line items
func (r *InvoiceRepository) GetByID(ctx context.Context, db domain.DBTX, id string) (*models.Invoice, error) {
	q := r.queryer(db)
	row := q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.id = $1`, id)
	invoice, err := scanInvoice(row)
	if err != nil {
		return nil, fmt.Errorf("get invoice by id: %w", err)
	}
	if invoice.Items, err = r.loadItems(ctx, q, invoice.ID); err != nil {
		return nil, err
	}
	return invoice, nil
}

// UpdateStatus transitions an invoice status
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, tx domain.DBTX, id string, status models.InvoiceStatus) error {
	_, err := r.queryer(tx).Exec(ctx,
		`UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	return nil
}

// ListBySubscription lists invoices linked to a subscription
func (r *InvoiceRepository) ListBySubscription(ctx context.Context, db domain.DBTX, subscriptionID string) ([]*models.Invoice, error) {
	rows, err := r.queryer(db).Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i
		 WHERE i.subscription_id = $1 ORDER BY i.invoice_date`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list invoices by subscription: %w", err)
	}
	return collectInvoices(rows)
}

// ListWithoutOpenItem lists non-cancelled, positive-amount invoices
// that have no non-cancelled open item
func (r *InvoiceRepository) ListWithoutOpenItem(ctx context.Context, db domain.DBTX) ([]*models.Invoice, error) {
	rows, err := r.queryer(db).Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i
		 WHERE i.status <> $1 AND i.total_amount > 0
		   AND NOT EXISTS (
			SELECT 1 FROM open_items o
			WHERE o.invoice_id = i.id AND o.status <> $2
		   )
		 ORDER BY i.invoice_date`,
		string(models.InvoiceStatusCancelled), string(models.OpenItemStatusCancelled))
	if err != nil {
		return nil, fmt.Errorf("list invoices without open item: %w", err)
	}
	return collectInvoices(rows)
}

// ListOpenItemMismatches lists invoices whose total disagrees with the
// sum of their non-cancelled open item amounts
func (r *InvoiceRepository) ListOpenItemMismatches(ctx context.Context, db domain.DBTX) ([]domain.InvoiceMismatch, error) {
	rows, err := r.queryer(db).Query(ctx,
		`SELECT i.id::text, i.total_amount, COALESCE(SUM(o.amount), 0), COUNT(o.id)
		 FROM invoices i
		 JOIN open_items o ON o.invoice_id = i.id AND o.status <> $1
		 WHERE i.status <> $2
		 GROUP BY i.id, i.total_amount
		 HAVING i.total_amount <> COALESCE(SUM(o.amount), 0)`,
		string(models.OpenItemStatusCancelled), string(models.InvoiceStatusCancelled))
	if err != nil {
		return nil, fmt.Errorf("list invoice open item mismatches: %w", err)
	}
	defer rows.Close()

	var mismatches []domain.InvoiceMismatch
	for rows.Next() {
		var (
			m             domain.InvoiceMismatch
			invoiceTotal  pgtype.Numeric
			openItemTotal pgtype.Numeric
		)
		if err := rows.Scan(&m.InvoiceID, &invoiceTotal, &openItemTotal, &m.OpenItemCount); err != nil {
			return nil, fmt.Errorf("scan invoice mismatch: %w", err)
		}
		if m.InvoiceTotal, err = numericToDecimal(invoiceTotal); err != nil {
			return nil, err
		}
		if m.OpenItemTotal, err = numericToDecimal(openItemTotal); err != nil {
			return nil, err
		}
		mismatches = append(mismatches, m)
	}
	return mismatches, rows.Err()
}

// CountByNumber counts invoices carrying the given number
func (r *InvoiceRepository) CountByNumber(ctx context.Context, db domain.DBTX, number string) (int64, error) {
	var count int64
	err := r.queryer(db).QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE number = $1`, number).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count invoices by number: %w", err)
	}
	return count, nil
}

func (r *InvoiceRepository) loadItems(ctx context.Context, q domain.DBTX, invoiceID string) ([]models.InvoiceItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, invoice_id::text, product_id::text, description, quantity, unit_price, tax_rate
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice items: %w", err)
	}
	defer rows.Close()

	var items []models.InvoiceItem
	for rows.Next() {
		var (
			item      models.InvoiceItem
			productID pgtype.Text
			quantity  pgtype.Numeric
			unitPrice pgtype.Numeric
			taxRate   pgtype.Numeric
		)
		if err := rows.Scan(&item.ID, &item.InvoiceID, &productID, &item.Description, &quantity, &unitPrice, &taxRate); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		item.ProductID = textPtr(productID)
		if item.Quantity, err = numericToDecimal(quantity); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = numericToDecimal(unitPrice); err != nil {
			return nil, err
		}
		if item.TaxRate, err = numericToDecimal(taxRate); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanInvoice(row interface{ Scan(...interface{}) error }) (*models.Invoice, error) {
	var (
		inv            models.Invoice
		subscriptionID pgtype.Text
		status         string
		total          pgtype.Numeric
	)
	err := row.Scan(&inv.ID, &inv.CustomerID, &subscriptionID, &inv.Number, &inv.InvoiceDate, &inv.DueDate,
		&status, &total, &inv.BillingAddress, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.SubscriptionID = textPtr(subscriptionID)
	inv.Status = models.InvoiceStatus(status)
	if inv.TotalAmount, err = numericToDecimal(total); err != nil {
		return nil, err
	}
	return &inv, nil
}

func collectInvoices(rows pgx.Rows) ([]*models.Invoice, error) {
	defer rows.Close()
	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
