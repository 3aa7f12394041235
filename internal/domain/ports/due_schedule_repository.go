package ports

import (
	"context"
	"time"

	"github.com/subledger/billing-engine/internal/domain/models"
)

// DueScheduleRepository defines the interface for due schedule persistence
type DueScheduleRepository interface {
	// Create creates a new due schedule
	Create(ctx context.Context, tx DBTX, schedule *models.DueSchedule) error

	// GetByID retrieves a due schedule by its ID
	GetByID(ctx context.Context, db DBTX, id string) (*models.DueSchedule, error)

	// GetByIDForUpdate retrieves a due schedule with a row lock so a
	// concurrent batch run cannot claim the same schedule
	GetByIDForUpdate(ctx context.Context, tx DBTX, id string) (*models.DueSchedule, error)

	// Update updates due schedule fields
	Update(ctx context.Context, tx DBTX, schedule *models.DueSchedule) error

	// ListBySubscription lists schedules for a subscription ordered by due date
	ListBySubscription(ctx context.Context, db DBTX, subscriptionID string) ([]*models.DueSchedule, error)

	// ListByCustomer lists schedules for all subscriptions under a
	// customer's contracts, ordered by due date
	ListByCustomer(ctx context.Context, db DBTX, customerID string) ([]*models.DueSchedule, error)

	// ListByStatus lists schedules in a given status
	ListByStatus(ctx context.Context, db DBTX, status models.DueScheduleStatus) ([]*models.DueSchedule, error)

	// ListByDueDateRange lists schedules with due date in [from, to]
	ListByDueDateRange(ctx context.Context, db DBTX, from, to time.Time) ([]*models.DueSchedule, error)

	// ListOwedDueOn lists owed (PENDING/OVERDUE) schedules due exactly on date
	ListOwedDueOn(ctx context.Context, db DBTX, date time.Time) ([]*models.DueSchedule, error)

	// ListOwedDueOnOrBefore lists owed schedules due on or before date
	ListOwedDueOnOrBefore(ctx context.Context, db DBTX, date time.Time) ([]*models.DueSchedule, error)

	// ListUnsettledBySubscription lists schedules that are neither settled
	// nor cancelled for a subscription
	ListUnsettledBySubscription(ctx context.Context, db DBTX, subscriptionID string) ([]*models.DueSchedule, error)

	// ListUnsettledDueAfter lists unsettled schedules of a subscription
	// with due date strictly after the given date
	ListUnsettledDueAfter(ctx context.Context, db DBTX, subscriptionID string, after time.Time) ([]*models.DueSchedule, error)

	// ListPendingPastDue lists PENDING schedules without payment whose due
	// date is before asOf (overdue sweep)
	ListPendingPastDue(ctx context.Context, db DBTX, asOf time.Time) ([]*models.DueSchedule, error)

	// ListActiveStatusOrphans lists owed schedules whose subscription is
	// soft-deleted, missing, or not active (repair query)
	ListActiveStatusOrphans(ctx context.Context, db DBTX) ([]*models.DueSchedule, error)

	// CountBySubscription counts schedules for a subscription
	CountBySubscription(ctx context.Context, db DBTX, subscriptionID string) (int64, error)

	// CountByNumber counts schedules carrying the given number
	CountByNumber(ctx context.Context, db DBTX, number string) (int64, error)
}
