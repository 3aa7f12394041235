package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
	apperrors "github.com/subledger/billing-engine/pkg/errors"
	"github.com/subledger/billing-engine/pkg/observability"
	"github.com/subledger/billing-engine/pkg/timeutil"
	"github.com/google/uuid"
)

// DefaultPeriods is the generation horizon used when the service is not
// configured with one
const DefaultPeriods = 12

// Generate produces and persists one due schedule per billing period of
// the subscription, starting at its start date. The whole batch is
// written in one transaction; a persistence failure leaves no partial
// schedule set behind. The subscription itself is never mutated.
func (s *Service) Generate(ctx context.Context, subscriptionID string, periods int) ([]*models.DueSchedule, error) {
	sub, err := s.subRepo.GetByID(ctx, nil, subscriptionID)
	if err != nil || sub == nil || sub.DeletedAt != nil {
		return nil, apperrors.NotFound("subscription", subscriptionID)
	}
	created, err := s.generate(ctx, sub, timeutil.StartOfDay(sub.StartDate), periods)
	if err == nil {
		observability.RecordSchedulesGenerated("initial", len(created))
	}
	return created, err
}

// GenerateFrom behaves like Generate but starts at an explicit period
// start, which renewals use to continue from the old end date
func (s *Service) GenerateFrom(ctx context.Context, subscriptionID string, from time.Time, periods int) ([]*models.DueSchedule, error) {
	sub, err := s.subRepo.GetByID(ctx, nil, subscriptionID)
	if err != nil || sub == nil || sub.DeletedAt != nil {
		return nil, apperrors.NotFound("subscription", subscriptionID)
	}
	created, err := s.generate(ctx, sub, timeutil.StartOfDay(from), periods)
	if err == nil {
		observability.RecordSchedulesGenerated("continuation", len(created))
	}
	return created, err
}

func (s *Service) generate(ctx context.Context, sub *models.Subscription, from time.Time, periods int) ([]*models.DueSchedule, error) {
	if periods <= 0 {
		periods = s.defaultPeriods
	}

	var created []*models.DueSchedule
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		created = created[:0]
		cursor := from
		for i := 0; i < periods; i++ {
			if sub.EndDate != nil && cursor.After(timeutil.StartOfDay(*sub.EndDate)) {
				break
			}

			number, err := s.numbers.Next(ctx, "DS", func(ctx context.Context, n string) (bool, error) {
				count, err := s.dueRepo.CountByNumber(ctx, tx, n)
				return count > 0, err
			})
			if err != nil {
				return fmt.Errorf("generate schedule number: %w", err)
			}

			periodEnd := sub.BillingCycle.Advance(cursor).AddDate(0, 0, -1)
			now := timeutil.Now()
			sched := &models.DueSchedule{
				ID:             uuid.New().String(),
				SubscriptionID: sub.ID,
				Number:         number,
				DueDate:        cursor,
				PeriodStart:    cursor,
				PeriodEnd:      periodEnd,
				Amount:         sub.MonthlyPrice,
				Status:         models.DueStatusPending,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := s.dueRepo.Create(ctx, tx, sched); err != nil {
				return fmt.Errorf("persist schedule %s: %w", number, err)
			}
			created = append(created, sched)
			cursor = sub.BillingCycle.Advance(cursor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("due schedules generated",
		domain.String("subscription", sub.Number),
		domain.Int("count", len(created)),
		domain.String("cycle", string(sub.BillingCycle)))
	return created, nil
}
