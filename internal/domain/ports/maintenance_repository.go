package ports

import "context"

// StatusCounts holds per-status row counts for one entity
type StatusCounts map[string]int64

// BusinessDataReport aggregates per-entity status counts for the
// maintenance status report
type BusinessDataReport struct {
	Contracts     StatusCounts
	Subscriptions StatusCounts
	DueSchedules  StatusCounts
	Invoices      StatusCounts
	OpenItems     StatusCounts
}

// MaintenanceRepository defines cross-entity maintenance operations
type MaintenanceRepository interface {
	// ClearBusinessData deletes all billing business data in dependency order
	ClearBusinessData(ctx context.Context, tx DBTX) error

	// StatusReport returns per-entity, per-status row counts
	StatusReport(ctx context.Context, db DBTX) (*BusinessDataReport, error)
}
