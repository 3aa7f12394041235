package subscription

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
	"github.com/subledger/billing-engine/pkg/timeutil"
)

// syncAfterUpdate reconciles due schedules with a committed subscription
// update. Each synchronization runs in its own transaction and a failure
// only logs; the repair engine closes any remaining gap.
func (s *Service) syncAfterUpdate(ctx context.Context, sub *models.Subscription, oldPrice decimal.Decimal, oldCycle models.BillingCycle, oldEnd *time.Time) {
	if !sub.MonthlyPrice.Equal(oldPrice) {
		if err := s.syncPriceChange(ctx, sub); err != nil {
			s.logger.Error("price synchronization failed, repair pass will resolve",
				domain.String("subscription", sub.Number),
				domain.Err(err))
		}
	}

	if sub.BillingCycle != oldCycle {
		if err := s.syncCycleChange(ctx, sub); err != nil {
			s.logger.Error("cycle synchronization failed, repair pass will resolve",
				domain.String("subscription", sub.Number),
				domain.Err(err))
		}
		return // cycle sync already rebuilt the future tail
	}

	if sub.EndDate != nil && oldEnd != nil {
		newEnd := timeutil.StartOfDay(*sub.EndDate)
		prevEnd := timeutil.StartOfDay(*oldEnd)
		switch {
		case newEnd.After(prevEnd):
			s.syncEndExtension(ctx, sub, prevEnd, newEnd)
		case newEnd.Before(prevEnd):
			if err := s.cancelSchedulesAfter(ctx, sub.ID, newEnd); err != nil {
				s.logger.Error("end-date reduction synchronization failed, repair pass will resolve",
					domain.String("subscription", sub.Number),
					domain.Err(err))
			}
		}
	}
}

// syncPriceChange overwrites the amount on all future, unsettled
// schedules. Schedules with a recorded payment keep their amount.
func (s *Service) syncPriceChange(ctx context.Context, sub *models.Subscription) error {
	today := timeutil.StartOfDay(timeutil.Now())
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		future, err := s.dueRepo.ListUnsettledDueAfter(ctx, tx, sub.ID, today.AddDate(0, 0, -1))
		if err != nil {
			return err
		}
		for _, sched := range future {
			if sched.HasPayment() {
				continue
			}
			sched.Amount = sub.MonthlyPrice
			sched.UpdatedAt = timeutil.Now()
			if err := s.dueRepo.Update(ctx, tx, sched); err != nil {
				return err
			}
		}
		return nil
	})
}

// syncEndExtension generates schedules covering the new tail between the
// old and new end dates
func (s *Service) syncEndExtension(ctx context.Context, sub *models.Subscription, oldEnd, newEnd time.Time) {
	periods := timeutil.MonthsBetween(oldEnd, newEnd) / sub.BillingCycle.Months()
	if periods < 1 {
		periods = 1
	}
	if _, err := s.schedules.GenerateFrom(ctx, sub.ID, oldEnd, periods); err != nil {
		s.logger.Error("end-date extension synchronization failed, repair pass will resolve",
			domain.String("subscription", sub.Number),
			domain.Err(err))
	}
}

// syncCycleChange rebuilds the future tail under the new cadence:
// future unsettled schedules are cancelled and regenerated from today
func (s *Service) syncCycleChange(ctx context.Context, sub *models.Subscription) error {
	today := timeutil.StartOfDay(timeutil.Now())
	if err := s.cancelSchedulesAfter(ctx, sub.ID, today); err != nil {
		return err
	}
	periods := 0
	if sub.EndDate != nil {
		periods = timeutil.MonthsBetween(today, *sub.EndDate) / sub.BillingCycle.Months()
		if periods < 1 {
			periods = 1
		}
	}
	_, err := s.schedules.GenerateFrom(ctx, sub.ID, sub.BillingCycle.Advance(today), periods)
	return err
}
