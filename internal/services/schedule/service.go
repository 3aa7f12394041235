// Package schedule implements due schedule generation and maintenance:
// the pre-generation of payment obligations for a subscription's billing
// periods, the query layer over them, and their payment-side mutations.
package schedule

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
	"github.com/subledger/billing-engine/internal/services/ports"
	apperrors "github.com/subledger/billing-engine/pkg/errors"
	"github.com/subledger/billing-engine/pkg/observability"
	"github.com/subledger/billing-engine/pkg/timeutil"
)

// Service implements ports.DueScheduleService
type Service struct {
	db             domain.DBPort
	subRepo        domain.SubscriptionRepository
	dueRepo        domain.DueScheduleRepository
	numbers        ports.NumberGenerator
	logger         domain.Logger
	validate       *validator.Validate
	defaultPeriods int
}

// NewService creates a new due schedule service. defaultPeriods is the
// generation horizon used when a caller passes no period count; zero or
// negative selects the built-in default.
func NewService(
	db domain.DBPort,
	subRepo domain.SubscriptionRepository,
	dueRepo domain.DueScheduleRepository,
	numbers ports.NumberGenerator,
	defaultPeriods int,
	logger domain.Logger,
) *Service {
	if defaultPeriods <= 0 {
		defaultPeriods = DefaultPeriods
	}
	return &Service{
		db:             db,
		subRepo:        subRepo,
		dueRepo:        dueRepo,
		numbers:        numbers,
		logger:         logger,
		validate:       validator.New(),
		defaultPeriods: defaultPeriods,
	}
}

// Get retrieves a due schedule by ID
func (s *Service) Get(ctx context.Context, id string) (*models.DueSchedule, error) {
	sched, err := s.dueRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apperrors.NotFound("due schedule", id)
	}
	return sched, nil
}

// ListBySubscription lists schedules for a subscription ordered by due date
func (s *Service) ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.DueSchedule, error) {
	return s.dueRepo.ListBySubscription(ctx, nil, subscriptionID)
}

// ListByCustomer lists schedules across all of a customer's contracts
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]*models.DueSchedule, error) {
	return s.dueRepo.ListByCustomer(ctx, nil, customerID)
}

// ListByStatus lists schedules in a given status
func (s *Service) ListByStatus(ctx context.Context, status models.DueScheduleStatus) ([]*models.DueSchedule, error) {
	return s.dueRepo.ListByStatus(ctx, nil, status)
}

// ListByDueDateRange lists schedules with due date in [from, to]
func (s *Service) ListByDueDateRange(ctx context.Context, from, to time.Time) ([]*models.DueSchedule, error) {
	return s.dueRepo.ListByDueDateRange(ctx, nil, from, to)
}

// RecordPayment records a (possibly partial) payment against a schedule.
// The schedule amount is immutable once the first payment lands; paid
// amount can never exceed the schedule amount.
func (s *Service) RecordPayment(ctx context.Context, req ports.RecordPaymentRequest) (*models.DueSchedule, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.InvalidArgument("record payment: %v", err)
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.InvalidArgument("payment amount must be positive")
	}

	var updated *models.DueSchedule
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sched, err := s.dueRepo.GetByIDForUpdate(ctx, tx, req.DueScheduleID)
		if err != nil {
			return apperrors.NotFound("due schedule", req.DueScheduleID)
		}
		if sched.Status == models.DueStatusCancelled {
			return apperrors.Conflict("cannot record payment on cancelled schedule %s", sched.Number)
		}
		newPaid := sched.PaidAmount.Add(req.Amount)
		if newPaid.GreaterThan(sched.Amount) {
			return apperrors.InvalidArgument("paid amount %s exceeds schedule amount %s", newPaid, sched.Amount)
		}

		paidAt := timeutil.Now()
		if req.PaidAt != nil {
			paidAt = *req.PaidAt
		}
		sched.PaidAmount = newPaid
		sched.PaidDate = &paidAt
		sched.PaymentMethod = req.Method
		sched.PaymentReference = req.Reference
		if newPaid.Equal(sched.Amount) {
			sched.Status = models.DueStatusPaid
		}
		sched.UpdatedAt = timeutil.Now()

		if err := s.dueRepo.Update(ctx, tx, sched); err != nil {
			return err
		}
		updated = sched
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.Status == models.DueStatusPaid {
		observability.RecordSchedulePayment("full")
	} else {
		observability.RecordSchedulePayment("partial")
	}
	s.logger.Info("payment recorded",
		domain.String("schedule", updated.Number),
		domain.String("paid_amount", updated.PaidAmount.String()),
		domain.String("status", string(updated.Status)))
	return updated, nil
}

// MarkPaid settles a schedule in full as of now
func (s *Service) MarkPaid(ctx context.Context, id string) (*models.DueSchedule, error) {
	return s.transition(ctx, id, func(sched *models.DueSchedule) error {
		if sched.IsSettled() {
			return apperrors.Conflict("schedule %s is already settled", sched.Number)
		}
		if sched.Status == models.DueStatusCancelled {
			return apperrors.Conflict("cannot mark cancelled schedule %s paid", sched.Number)
		}
		now := timeutil.Now()
		sched.PaidAmount = sched.Amount
		sched.PaidDate = &now
		sched.Status = models.DueStatusPaid
		return nil
	})
}

// Pause pauses an owed schedule
func (s *Service) Pause(ctx context.Context, id string) (*models.DueSchedule, error) {
	return s.transition(ctx, id, func(sched *models.DueSchedule) error {
		if !sched.IsOwed() {
			return apperrors.Conflict("only owed schedules can be paused, %s is %s", sched.Number, sched.Status)
		}
		sched.Status = models.DueStatusPaused
		return nil
	})
}

// Cancel cancels a schedule that has not been settled. Schedules with a
// recorded payment are never deleted, only cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (*models.DueSchedule, error) {
	return s.transition(ctx, id, func(sched *models.DueSchedule) error {
		if sched.IsSettled() {
			return apperrors.Conflict("cannot cancel settled schedule %s", sched.Number)
		}
		sched.Status = models.DueStatusCancelled
		return nil
	})
}

// IssueReminder increments the reminder counter on an owed schedule
func (s *Service) IssueReminder(ctx context.Context, id string) (*models.DueSchedule, error) {
	return s.transition(ctx, id, func(sched *models.DueSchedule) error {
		if !sched.IsOwed() {
			return apperrors.Conflict("reminders only apply to owed schedules, %s is %s", sched.Number, sched.Status)
		}
		now := timeutil.Now()
		sched.ReminderCount++
		sched.LastReminderAt = &now
		return nil
	})
}

// ProcessOverdue reclassifies past-due PENDING schedules without payment
// as OVERDUE
func (s *Service) ProcessOverdue(ctx context.Context, asOf time.Time) (*ports.OverdueSweepResult, error) {
	result := &ports.OverdueSweepResult{}
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		pastDue, err := s.dueRepo.ListPendingPastDue(ctx, tx, asOf)
		if err != nil {
			return err
		}
		result.Examined = len(pastDue)
		for _, sched := range pastDue {
			sched.Status = models.DueStatusOverdue
			sched.UpdatedAt = timeutil.Now()
			if err := s.dueRepo.Update(ctx, tx, sched); err != nil {
				return err
			}
			result.Marked++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Marked > 0 {
		s.logger.Info("overdue sweep completed",
			domain.Int("examined", result.Examined),
			domain.Int("marked", result.Marked))
	}
	return result, nil
}

// transition applies fn to a row-locked schedule inside one transaction
func (s *Service) transition(ctx context.Context, id string, fn func(*models.DueSchedule) error) (*models.DueSchedule, error) {
	var updated *models.DueSchedule
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sched, err := s.dueRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return apperrors.NotFound("due schedule", id)
		}
		if err := fn(sched); err != nil {
			return err
		}
		sched.UpdatedAt = timeutil.Now()
		if err := s.dueRepo.Update(ctx, tx, sched); err != nil {
			return err
		}
		updated = sched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
