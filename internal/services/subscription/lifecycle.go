package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
	apperrors "github.com/subledger/billing-engine/pkg/errors"
	"github.com/subledger/billing-engine/pkg/timeutil"
)

// Activate sets a subscription ACTIVE, defaulting the start date to now
// when absent, and regenerates schedules when none exist
func (s *Service) Activate(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	sub, err := s.getActive(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	sub.Status = models.SubStatusActive
	if sub.StartDate.IsZero() {
		sub.StartDate = timeutil.StartOfDay(timeutil.Now())
	}
	sub.UpdatedAt = timeutil.Now()

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.subRepo.Update(ctx, tx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("activate subscription: %w", err)
	}

	// Safety net: a subscription without any schedules gets a default run
	count, err := s.dueRepo.CountBySubscription(ctx, nil, sub.ID)
	if err == nil && count == 0 {
		if _, err := s.schedules.Generate(ctx, sub.ID, 0); err != nil {
			s.logger.Error("schedule regeneration on activate failed",
				domain.String("subscription", sub.Number),
				domain.Err(err))
		}
	}

	s.logger.Info("subscription activated", domain.String("subscription", sub.Number))
	return sub, nil
}

// Pause pauses an active subscription. Schedules keep their status;
// drift between a paused subscription and owed schedules is resolved by
// the repair engine.
func (s *Service) Pause(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	sub, err := s.getActive(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubStatusActive {
		return nil, apperrors.Conflict("can only pause active subscriptions, %s is %s", sub.Number, sub.Status)
	}

	sub.Status = models.SubStatusPaused
	sub.UpdatedAt = timeutil.Now()
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.subRepo.Update(ctx, tx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("pause subscription: %w", err)
	}

	s.logger.Info("subscription paused", domain.String("subscription", sub.Number))
	return sub, nil
}

// Cancel cancels a subscription effective at the given date (now when
// absent), disables auto-renewal, and cancels every unsettled schedule
// due after the effective date
func (s *Service) Cancel(ctx context.Context, subscriptionID string, effectiveDate *time.Time) (*models.Subscription, error) {
	sub, err := s.getActive(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.SubStatusCancelled {
		return nil, apperrors.Conflict("subscription %s is already cancelled", sub.Number)
	}

	effective := timeutil.StartOfDay(timeutil.Now())
	if effectiveDate != nil {
		effective = timeutil.StartOfDay(*effectiveDate)
	}

	now := timeutil.Now()
	sub.Status = models.SubStatusCancelled
	sub.EndDate = &effective
	sub.AutoRenew = false
	sub.CancelledAt = &now
	sub.UpdatedAt = now

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.subRepo.Update(ctx, tx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}

	if err := s.cancelSchedulesAfter(ctx, sub.ID, effective); err != nil {
		s.logger.Error("schedule cancellation after cancel failed, repair pass will resolve",
			domain.String("subscription", sub.Number),
			domain.Err(err))
	}

	s.logger.Info("subscription cancelled",
		domain.String("subscription", sub.Number),
		domain.String("effective", effective.Format("2006-01-02")))
	return sub, nil
}

// Renew extends a subscription to a new end date and generates schedules
// covering the additional periods
func (s *Service) Renew(ctx context.Context, subscriptionID string, newEndDate time.Time) (*models.Subscription, error) {
	sub, err := s.getActive(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubStatusActive && sub.Status != models.SubStatusExpired {
		return nil, apperrors.Conflict("subscription %s in status %s cannot be renewed", sub.Number, sub.Status)
	}

	newEnd := timeutil.StartOfDay(newEndDate)
	oldEnd := timeutil.StartOfDay(sub.StartDate)
	if sub.EndDate != nil {
		oldEnd = timeutil.StartOfDay(*sub.EndDate)
	}
	if !newEnd.After(oldEnd) {
		return nil, apperrors.InvalidArgument("new end date %s does not extend current end date %s",
			newEnd.Format("2006-01-02"), oldEnd.Format("2006-01-02"))
	}

	sub.Status = models.SubStatusActive
	sub.EndDate = &newEnd
	sub.UpdatedAt = timeutil.Now()

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.subRepo.Update(ctx, tx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("renew subscription: %w", err)
	}

	periods := timeutil.MonthsBetween(oldEnd, newEnd) / sub.BillingCycle.Months()
	if periods < 1 {
		periods = 1
	}
	if _, err := s.schedules.GenerateFrom(ctx, sub.ID, oldEnd, periods); err != nil {
		s.logger.Error("schedule generation after renew failed, repair pass will resolve",
			domain.String("subscription", sub.Number),
			domain.Err(err))
	}

	s.logger.Info("subscription renewed",
		domain.String("subscription", sub.Number),
		domain.String("new_end", newEnd.Format("2006-01-02")),
		domain.Int("periods", periods))
	return sub, nil
}

// Delete soft-deletes a subscription. Only permitted while the owning
// contract is not active; unsettled schedules are cancelled first.
func (s *Service) Delete(ctx context.Context, subscriptionID string) error {
	sub, err := s.getActive(ctx, subscriptionID)
	if err != nil {
		return err
	}
	contract, err := s.contractRepo.GetByID(ctx, nil, sub.ContractID)
	if err != nil || contract == nil {
		return apperrors.NotFound("contract", sub.ContractID)
	}
	if contract.IsActive() {
		return apperrors.Conflict("subscription %s cannot be deleted while contract %s is active", sub.Number, contract.Number)
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		unsettled, err := s.dueRepo.ListUnsettledBySubscription(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		for _, sched := range unsettled {
			sched.Status = models.DueStatusCancelled
			sched.UpdatedAt = timeutil.Now()
			if err := s.dueRepo.Update(ctx, tx, sched); err != nil {
				return err
			}
		}
		return s.subRepo.SoftDelete(ctx, tx, sub.ID, timeutil.Now())
	})
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	s.logger.Info("subscription deleted", domain.String("subscription", sub.Number))
	return nil
}

// cancelSchedulesAfter cancels every unsettled schedule of the
// subscription with due date strictly after the cutoff
func (s *Service) cancelSchedulesAfter(ctx context.Context, subscriptionID string, after time.Time) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		future, err := s.dueRepo.ListUnsettledDueAfter(ctx, tx, subscriptionID, after)
		if err != nil {
			return err
		}
		for _, sched := range future {
			sched.Status = models.DueStatusCancelled
			sched.UpdatedAt = timeutil.Now()
			if err := s.dueRepo.Update(ctx, tx, sched); err != nil {
				return err
			}
		}
		return nil
	})
}
