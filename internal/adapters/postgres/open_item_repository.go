package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
)

// OpenItemRepository implements ports.OpenItemRepository
type OpenItemRepository struct {
	baseRepo
}

// NewOpenItemRepository creates a new open item repository
func NewOpenItemRepository(db domain.DBPort) *OpenItemRepository {
	return &OpenItemRepository{baseRepo{db: db}}
}

const openItemColumns = `o.id::text, o.invoice_id::text, o.description, o.amount, o.due_date,
	o.paid_amount, o.status, o.reminder_count, o.created_at, o.updated_at`

// Create creates a new open item
func (r *OpenItemRepository) Create(ctx context.Context, tx domain.DBTX, item *models.OpenItem) error {
	amount, err := decimalToNumeric(item.Amount)
	if err != nil {
		return err
	}
	paid, err := decimalToNumeric(item.PaidAmount)
	if err != nil {
		return err
	}
	_, err = r.queryer(tx).Exec(ctx, `
		INSERT INTO open_items (id, invoice_id, description, amount, due_date, paid_amount, status, reminder_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID, item.InvoiceID, item.Description, amount, item.DueDate, paid,
		string(item.Status), item.ReminderCount, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create open item: %w", err)
	}
	return nil
}

// GetByID retrieves an open item by its ID
func (r *OpenItemRepository) GetByID(ctx context.Context, db domain.DBTX, id string) (*models.OpenItem, error) {
	row := r.queryer(db).QueryRow(ctx,
		`SELECT `+openItemColumns+` FROM open_items o WHERE o.id = $1`, id)
	item, err := scanOpenItem(row)
	if err != nil {
		return nil, fmt.Errorf("get open item by id: %w", err)
	}
	return item, nil
}

// Update updates open item fields
func (r *OpenItemRepository) Update(ctx context.Context, tx domain.DBTX, item *models.OpenItem) error {
	amount, err := decimalToNumeric(item.Amount)
	if err != nil {
		return err
	}
	paid, err := decimalToNumeric(item.PaidAmount)
	if err != nil {
		return err
	}
	_, err = r.queryer(tx).Exec(ctx, `
		UPDATE open_items
		SET amount = $2, paid_amount = $3, status = $4, reminder_count = $5, updated_at = $6
		WHERE id = $1`,
		item.ID, amount, paid, string(item.Status), item.ReminderCount, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update open item: %w", err)
	}
	return nil
}

// Delete removes an open item; only orphan cleanup uses this
func (r *OpenItemRepository) Delete(ctx context.Context, tx domain.DBTX, id string) error {
	_, err := r.queryer(tx).Exec(ctx, `DELETE FROM open_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete open item: %w", err)
	}
	return nil
}

// ListByInvoice lists open items belonging to an invoice
func (r *OpenItemRepository) ListByInvoice(ctx context.Context, db domain.DBTX, invoiceID string) ([]*models.OpenItem, error) {
	return r.list(ctx, db,
		`SELECT `+openItemColumns+` FROM open_items o
		 WHERE o.invoice_id = $1 ORDER BY o.due_date`, invoiceID)
}

// ListByStatus lists open items in a given status
func (r *OpenItemRepository) ListByStatus(ctx context.Context, db domain.DBTX, status models.OpenItemStatus) ([]*models.OpenItem, error) {
	return r.list(ctx, db,
		`SELECT `+openItemColumns+` FROM open_items o
		 WHERE o.status = $1 ORDER BY o.due_date`, string(status))
}

// ListOrphaned lists open items referencing no existing invoice
func (r *OpenItemRepository) ListOrphaned(ctx context.Context, db domain.DBTX) ([]*models.OpenItem, error) {
	return r.list(ctx, db,
		`SELECT `+openItemColumns+` FROM open_items o
		 LEFT JOIN invoices i ON i.id = o.invoice_id
		 WHERE i.id IS NULL ORDER BY o.created_at`)
}

// ListOpenPastDue lists OPEN or PARTIALLY_PAID items past their due date
func (r *OpenItemRepository) ListOpenPastDue(ctx context.Context, db domain.DBTX, asOf time.Time) ([]*models.OpenItem, error) {
	return r.list(ctx, db,
		`SELECT `+openItemColumns+` FROM open_items o
		 WHERE o.status IN ($1, $2) AND o.due_date < $3 ORDER BY o.due_date`,
		string(models.OpenItemStatusOpen), string(models.OpenItemStatusPartiallyPaid), asOf)
}

func (r *OpenItemRepository) list(ctx context.Context, db domain.DBTX, sql string, args ...interface{}) ([]*models.OpenItem, error) {
	rows, err := r.queryer(db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list open items: %w", err)
	}
	return collectOpenItems(rows)
}

func scanOpenItem(row interface{ Scan(...interface{}) error }) (*models.OpenItem, error) {
	var (
		o      models.OpenItem
		amount pgtype.Numeric
		paid   pgtype.Numeric
		status string
	)
	err := row.Scan(&o.ID, &o.InvoiceID, &o.Description, &amount, &o.DueDate,
		&paid, &status, &o.ReminderCount, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if o.Amount, err = numericToDecimal(amount); err != nil {
		return nil, err
	}
	if o.PaidAmount, err = numericToDecimal(paid); err != nil {
		return nil, err
	}
	o.Status = models.OpenItemStatus(status)
	return &o, nil
}

func collectOpenItems(rows pgx.Rows) ([]*models.OpenItem, error) {
	defer rows.Close()
	var items []*models.OpenItem
	for rows.Next() {
		item, err := scanOpenItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan open item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
