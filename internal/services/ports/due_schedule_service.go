package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/subledger/billing-engine/internal/domain/models"
)

// RecordPaymentRequest carries a payment recording against a due schedule
type RecordPaymentRequest struct {
	DueScheduleID string          `validate:"required"`
	Amount        decimal.Decimal `validate:"-"`
	Method        string          `validate:"required"`
	Reference     string
	PaidAt        *time.Time
}

// OverdueSweepResult summarizes one overdue reclassification pass
type OverdueSweepResult struct {
	Examined int
	Marked   int
}

// DueScheduleService generates and maintains due schedules
type DueScheduleService interface {
	// Generate produces and persists one schedule per billing period,
	// starting at the subscription's start date. periods <= 0 selects the
	// default horizon of 12.
	Generate(ctx context.Context, subscriptionID string, periods int) ([]*models.DueSchedule, error)

	// GenerateFrom behaves like Generate but starts at an explicit period
	// start; renewals use it to continue from the old end date
	GenerateFrom(ctx context.Context, subscriptionID string, from time.Time, periods int) ([]*models.DueSchedule, error)

	Get(ctx context.Context, id string) (*models.DueSchedule, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.DueSchedule, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*models.DueSchedule, error)
	ListByStatus(ctx context.Context, status models.DueScheduleStatus) ([]*models.DueSchedule, error)
	ListByDueDateRange(ctx context.Context, from, to time.Time) ([]*models.DueSchedule, error)

	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*models.DueSchedule, error)
	MarkPaid(ctx context.Context, id string) (*models.DueSchedule, error)
	Pause(ctx context.Context, id string) (*models.DueSchedule, error)
	Cancel(ctx context.Context, id string) (*models.DueSchedule, error)
	IssueReminder(ctx context.Context, id string) (*models.DueSchedule, error)

	// ProcessOverdue reclassifies past-due PENDING schedules without
	// payment as OVERDUE
	ProcessOverdue(ctx context.Context, asOf time.Time) (*OverdueSweepResult, error)
}
