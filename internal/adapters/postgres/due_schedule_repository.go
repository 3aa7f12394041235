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

// DueScheduleRepository implements ports.DueScheduleRepository
type DueScheduleRepository struct {
	baseRepo
}

// NewDueScheduleRepository creates a new due schedule repository
func NewDueScheduleRepository(db domain.DBPort) *DueScheduleRepository {
	return &DueScheduleRepository{baseRepo{db: db}}
}

const dueScheduleColumns = `d.id::text, d.subscription_id::text, d.number, d.due_date, d.period_start, d.period_end,
	d.amount, d.status, d.paid_amount, d.paid_date, d.payment_method, d.payment_reference,
	d.reminder_count, d.last_reminder_at, d.notes, d.created_at, d.updated_at`

// owedStatuses matches the analyzer's "owed" selection in SQL
const owedStatuses = `('PENDING', 'OVERDUE')`

// unsettledStatuses are schedules neither settled nor cancelled
const unsettledStatuses = `('PENDING', 'OVERDUE', 'PAUSED')`

// Create creates a new due schedule
func (r *DueScheduleRepository) Create(ctx context.Context, tx domain.DBTX, sched *models.DueSchedule) error {
	amount, err := decimalToNumeric(sched.Amount)
	if err != nil {
		return err
	}
	paid, err := decimalToNumeric(sched.PaidAmount)
	if err != nil {
		return err
	}
	_, err = r.queryer(tx).Exec(ctx, `
		INSERT INTO due_schedules (id, subscription_id, number, due_date, period_start, period_end,
			amount, status, paid_amount, paid_date, payment_method, payment_reference,
			reminder_count, last_reminder_at, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		sched.ID, sched.SubscriptionID, sched.Number, sched.DueDate, sched.PeriodStart, sched.PeriodEnd,
		amount, string(sched.Status), paid, nullTime(sched.PaidDate), sched.PaymentMethod, sched.PaymentReference,
		sched.ReminderCount, nullTime(sched.LastReminderAt), sched.Notes, sched.CreatedAt, sched.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create due schedule: %w", err)
	}
	return nil
}

// GetByID retrieves a due schedule by its ID
func (r *DueScheduleRepository) GetByID(ctx context.Context, db domain.DBTX, id string) (*models.DueSchedule, error) {
	row := r.queryer(db).QueryRow(ctx,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d WHERE d.id = $1`, id)
	sched, err := scanDueSchedule(row)
	if err != nil {
		return nil, fmt.Errorf("get due schedule by id: %w", err)
	}
	return sched, nil
}

// GetByIDForUpdate retrieves a due schedule with a row lock so a
// concurrent batch run cannot claim the same schedule
func (r *DueScheduleRepository) GetByIDForUpdate(ctx context.Context, tx domain.DBTX, id string) (*models.DueSchedule, error) {
	row := r.queryer(tx).QueryRow(ctx,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d WHERE d.id = $1 FOR UPDATE`, id)
	sched, err := scanDueSchedule(row)
	if err != nil {
		return nil, fmt.Errorf("lock due schedule: %w", err)
	}
	return sched, nil
}

// Update updates due schedule fields
func (r *DueScheduleRepository) Update(ctx context.Context, tx domain.DBTX, sched *models.DueSchedule) error {
	amount, err := decimalToNumeric(sched.Amount)
	if err != nil {
		return err
	}
	paid, err := decimalToNumeric(sched.PaidAmount)
	if err != nil {
		return err
	}
	_, err = r.queryer(tx).Exec(ctx, `
		UPDATE due_schedules
		SET amount = $2, status = $3, paid_amount = $4, paid_date = $5, payment_method = $6,
			payment_reference = $7, reminder_count = $8, last_reminder_at = $9, notes = $10, updated_at = $11
		WHERE id = $1`,
		sched.ID, amount, string(sched.Status), paid, nullTime(sched.PaidDate), sched.PaymentMethod,
		sched.PaymentReference, sched.ReminderCount, nullTime(sched.LastReminderAt), sched.Notes, sched.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update due schedule: %w", err)
	}
	return nil
}

// ListBySubscription lists schedules for a subscription ordered by due date
func (r *DueScheduleRepository) ListBySubscription(ctx context.Context, db domain.DBTX, subscriptionID string) ([]*models.DueSchedule, error) {
	return r.list(ctx, db,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d
		 WHERE d.subscription_id = $1 ORDER BY d.due_date`, subscriptionID)
}

// ListByCustomer lists schedules across all of a customer's contracts
func (r *DueScheduleRepository) ListByCustomer(ctx context.Context, db domain.DBTX, customerID string) ([]*models.DueSchedule, error) {
	return r.list(ctx, db,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d
		 JOIN subscriptions s ON s.id = d.subscription_id
		 JOIN contracts c ON c.id = s.contract_id
		 WHERE c.customer_id = $1 ORDER BY d.due_date`, customerID)
}

// ListByStatus lists schedules in a given status
func (r *DueScheduleRepository) ListByStatus(ctx context.Context, db domain.DBTX, status models.DueScheduleStatus) ([]*models.DueSchedule, error) {
	return r.list(ctx, db,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d
		 WHERE d.status = $1 ORDER BY d.due_date`, string(status))
}

// ListByDueDateRange lists schedules with due date in [from, to]
func (r *DueScheduleRepository) ListByDueDateRange(ctx context.Context, db domain.DBTX, from, to time.Time) ([]*models.DueSchedule, error) {
	return r.list(ctx, db,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d
		 WHERE d.due_date BETWEEN $1 AND $2 ORDER BY d.due_date`, from, to)
}

// ListOwedDueOn lists owed schedules due exactly on the given date
func (r *DueScheduleRepository) ListOwedDueOn(ctx context.Context, db domain.DBTX, date time.Time) ([]*models.DueSchedule, error) {
	return r.list(ctx, db,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d
		 WHERE d.status IN `+owedStatuses+` AND d.due_date = $1 ORDER BY d.due_date, d.subscription_id`, date)
}

// ListOwedDueOnOrBefore lists owed schedules due on or before the given date
func (r *DueScheduleRepository) ListOwedDueOnOrBefore(ctx context.Context, db domain.DBTX, date time.Time) ([]*models.DueSchedule, error) {
	return r.list(ctx, db,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d
		 WHERE d.status IN `+owedStatuses+` AND d.due_date <= $1 ORDER BY d.due_date, d.subscription_id`, date)
}

// ListUnsettledBySubscription lists schedules neither settled nor
// cancelled for a subscription
func (r *DueScheduleRepository) ListUnsettledBySubscription(ctx context.Context, db domain.DBTX, subscriptionID string) ([]*models.DueSchedule, error) {
	return r.list(ctx, db,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d
		 WHERE d.subscription_id = $1 AND d.status IN `+unsettledStatuses+`
		 ORDER BY d.due_date`, subscriptionID)
}

// ListUnsettledDueAfter lists unsettled schedules of a subscription with
// due date strictly after the given date
func (r *DueScheduleRepository) ListUnsettledDueAfter(ctx context.Context, db domain.DBTX, subscriptionID string, after time.Time) ([]*models.DueSchedule, error) {
	return r.list(ctx, db,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d
		 WHERE d.subscription_id = $1 AND d.status IN `+unsettledStatuses+` AND d.due_date > $2
		 ORDER BY d.due_date`, subscriptionID, after)
}

// ListPendingPastDue lists PENDING schedules without payment whose due
// date is before asOf
func (r *DueScheduleRepository) ListPendingPastDue(ctx context.Context, db domain.DBTX, asOf time.Time) ([]*models.DueSchedule, error) {
	return r.list(ctx, db,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d
		 WHERE d.status = $1 AND d.due_date < $2 AND d.paid_date IS NULL
		 ORDER BY d.due_date`, string(models.DueStatusPending), asOf)
}

// ListActiveStatusOrphans lists owed schedules whose subscription is
// soft-deleted, missing, or not active
func (r *DueScheduleRepository) ListActiveStatusOrphans(ctx context.Context, db domain.DBTX) ([]*models.DueSchedule, error) {
	return r.list(ctx, db,
		`SELECT `+dueScheduleColumns+` FROM due_schedules d
		 LEFT JOIN subscriptions s ON s.id = d.subscription_id
		 WHERE d.status IN `+owedStatuses+`
		   AND (s.id IS NULL OR s.deleted_at IS NOT NULL OR s.status <> $1)
		 ORDER BY d.due_date`, string(models.SubStatusActive))
}

// CountBySubscription counts schedules for a subscription
func (r *DueScheduleRepository) CountBySubscription(ctx context.Context, db domain.DBTX, subscriptionID string) (int64, error) {
	var count int64
	err := r.queryer(db).QueryRow(ctx,
		`SELECT COUNT(*) FROM due_schedules WHERE subscription_id = $1`, subscriptionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count due schedules by subscription: %w", err)
	}
	return count, nil
}

// CountByNumber counts schedules carrying the given number
func (r *DueScheduleRepository) CountByNumber(ctx context.Context, db domain.DBTX, number string) (int64, error) {
	var count int64
	err := r.queryer(db).QueryRow(ctx,
		`SELECT COUNT(*) FROM due_schedules WHERE number = $1`, number).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count due schedules by number: %w", err)
	}
	return count, nil
}

func (r *DueScheduleRepository) list(ctx context.Context, db domain.DBTX, sql string, args ...interface{}) ([]*models.DueSchedule, error) {
	rows, err := r.queryer(db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	return collectDueSchedules(rows)
}

func scanDueSchedule(row interface{ Scan(...interface{}) error }) (*models.DueSchedule, error) {
	var (
		d              models.DueSchedule
		amount         pgtype.Numeric
		status         string
		paidAmount     pgtype.Numeric
		paidDate       pgtype.Timestamptz
		lastReminderAt pgtype.Timestamptz
	)
	err := row.Scan(&d.ID, &d.SubscriptionID, &d.Number, &d.DueDate, &d.PeriodStart, &d.PeriodEnd,
		&amount, &status, &paidAmount, &paidDate, &d.PaymentMethod, &d.PaymentReference,
		&d.ReminderCount, &lastReminderAt, &d.Notes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if d.Amount, err = numericToDecimal(amount); err != nil {
		return nil, err
	}
	if d.PaidAmount, err = numericToDecimal(paidAmount); err != nil {
		return nil, err
	}
	d.Status = models.DueScheduleStatus(status)
	d.PaidDate = timePtr(paidDate)
	d.LastReminderAt = timePtr(lastReminderAt)
	return &d, nil
}

func collectDueSchedules(rows pgx.Rows) ([]*models.DueSchedule, error) {
	defer rows.Close()
	var schedules []*models.DueSchedule
	for rows.Next() {
		sched, err := scanDueSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due schedule: %w", err)
		}
		schedules = append(schedules, sched)
	}
	return schedules, rows.Err()
}
