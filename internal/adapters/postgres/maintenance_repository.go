package postgres

import (
	"context"
	"fmt"

	domain "github.com/subledger/billing-engine/internal/domain/ports"
)

// MaintenanceRepository implements ports.MaintenanceRepository
type MaintenanceRepository struct {
	baseRepo
}

// NewMaintenanceRepository creates a new maintenance repository
func NewMaintenanceRepository(db domain.DBPort) *MaintenanceRepository {
	return &MaintenanceRepository{baseRepo{db: db}}
}

// ClearBusinessData deletes all billing business data in dependency order.
// Master data (contracts, products) is kept so a fresh billing run can
// reuse it.
func (r *MaintenanceRepository) ClearBusinessData(ctx context.Context, tx domain.DBTX) error {
	tables := []string{"open_items", "invoice_items", "invoices", "due_schedules", "subscriptions"}
	for _, table := range tables {
		if _, err := r.queryer(tx).Exec(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// StatusReport returns per-entity, per-status row counts
func (r *MaintenanceRepository) StatusReport(ctx context.Context, db domain.DBTX) (*domain.BusinessDataReport, error) {
	report := &domain.BusinessDataReport{}
	queries := []struct {
		sql  string
		dest *domain.StatusCounts
	}{
		{`SELECT status, COUNT(*) FROM contracts GROUP BY status`, &report.Contracts},
		{`SELECT status, COUNT(*) FROM subscriptions WHERE deleted_at IS NULL GROUP BY status`, &report.Subscriptions},
		{`SELECT status, COUNT(*) FROM due_schedules GROUP BY status`, &report.DueSchedules},
		{`SELECT status, COUNT(*) FROM invoices GROUP BY status`, &report.Invoices},
		{`SELECT status, COUNT(*) FROM open_items GROUP BY status`, &report.OpenItems},
	}
	for _, q := range queries {
		counts, err := r.statusCounts(ctx, db, q.sql)
		if err != nil {
			return nil, err
		}
		*q.dest = counts
	}
	return report, nil
}

func (r *MaintenanceRepository) statusCounts(ctx context.Context, db domain.DBTX, sql string) (domain.StatusCounts, error) {
	rows, err := r.queryer(db).Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("status report: %w", err)
	}
	defer rows.Close()

	counts := domain.StatusCounts{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
