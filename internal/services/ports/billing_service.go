package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/subledger/billing-engine/internal/domain/models"
)

// BillingScope is the analyzer's read-only view of one prospective batch
// run: the owed schedules eligible for the billing date plus a monetary
// estimate. It may be stale by the time the orchestrator executes.
type BillingScope struct {
	BillingDate               time.Time
	IncludeAllPreviousPeriods bool
	DueSchedules              []*models.DueSchedule
	EstimatedTotal            decimal.Decimal
}

// BatchError records one due schedule whose conversion failed; the
// schedule keeps its pre-batch status
type BatchError struct {
	DueScheduleID  string
	SubscriptionID string
	Error          string
}

// BatchResult summarizes one invoice batch run. ExpectedCount is the
// analyzer scope size; a processed/created disagreement signals a
// partial failure the repair engine can pick up.
type BatchResult struct {
	BillingDate      time.Time
	ExpectedCount    int
	ProcessedCount   int
	CreatedInvoices  int
	CreatedOpenItems int
	TotalAmount      decimal.Decimal
	Message          string
	Errors           []BatchError
}

// BillingService converts owed due schedules into invoices and open items
type BillingService interface {
	// AnalyzeScope determines the billing scope without mutating state
	AnalyzeScope(ctx context.Context, billingDate time.Time, includeAllPreviousPeriods bool) (*BillingScope, error)

	// CanRun reports whether the scope for the given date is non-empty
	CanRun(ctx context.Context, billingDate time.Time, includeAllPreviousPeriods bool) (bool, error)

	// RunInvoiceBatch executes the scope, one transaction per schedule
	RunInvoiceBatch(ctx context.Context, billingDate time.Time, includeAllPreviousPeriods bool) (*BatchResult, error)

	// CancelInvoice cancels an invoice together with its open items; an
	// invoice whose receivable already took payments cannot be cancelled
	CancelInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error)
}
