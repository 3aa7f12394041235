package subscription

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
	"github.com/subledger/billing-engine/internal/services/ports"
	apperrors "github.com/subledger/billing-engine/pkg/errors"
	"github.com/subledger/billing-engine/pkg/observability"
	"github.com/subledger/billing-engine/pkg/timeutil"
)

// defaultAutoRenewalWindow is the sweep lookahead used when the service
// is not configured with one
const defaultAutoRenewalWindow = 7 * 24 * time.Hour

// ProcessAutoRenewals extends every auto-renewing subscription whose end
// date falls within the renewal window by one billing-cycle increment
// and generates the schedule for that single additional period
func (s *Service) ProcessAutoRenewals(ctx context.Context, asOf time.Time) (*ports.SweepResult, error) {
	from := timeutil.StartOfDay(asOf)
	to := from.Add(s.renewalWindow)

	subs, err := s.subRepo.ListDueForAutoRenewal(ctx, nil, from, to)
	if err != nil {
		return nil, err
	}

	result := &ports.SweepResult{Examined: len(subs)}
	for _, sub := range subs {
		if err := s.renewOnce(ctx, sub); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ports.SweepError{SubscriptionID: sub.ID, Error: err.Error()})
			s.logger.Error("auto-renewal failed",
				domain.String("subscription", sub.Number),
				domain.Err(err))
			continue
		}
		result.Processed++
	}

	observability.RecordSweep("auto_renewal", result.Processed, result.Failed)
	s.logger.Info("auto-renewal sweep completed",
		domain.Int("examined", result.Examined),
		domain.Int("renewed", result.Processed),
		domain.Int("failed", result.Failed))
	return result, nil
}

// renewOnce pushes one subscription's end date forward by one cycle
func (s *Service) renewOnce(ctx context.Context, sub *models.Subscription) error {
	oldEnd := timeutil.StartOfDay(*sub.EndDate)
	newEnd := sub.BillingCycle.Advance(oldEnd)
	sub.EndDate = &newEnd
	sub.UpdatedAt = timeutil.Now()

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.subRepo.Update(ctx, tx, sub)
	})
	if err != nil {
		return err
	}

	if _, err := s.schedules.GenerateFrom(ctx, sub.ID, oldEnd, 1); err != nil {
		s.logger.Error("schedule generation after auto-renewal failed, repair pass will resolve",
			domain.String("subscription", sub.Number),
			domain.Err(err))
	}
	return nil
}

// ProcessExpired marks subscriptions past their end date with
// auto-renewal disabled as EXPIRED and cancels schedules still open
// beyond the expiry date
func (s *Service) ProcessExpired(ctx context.Context, asOf time.Time) (*ports.SweepResult, error) {
	subs, err := s.subRepo.ListExpired(ctx, nil, timeutil.StartOfDay(asOf))
	if err != nil {
		return nil, err
	}

	result := &ports.SweepResult{Examined: len(subs)}
	for _, sub := range subs {
		err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			sub.Status = models.SubStatusExpired
			sub.UpdatedAt = timeutil.Now()
			return s.subRepo.Update(ctx, tx, sub)
		})
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ports.SweepError{SubscriptionID: sub.ID, Error: err.Error()})
			s.logger.Error("expiry failed",
				domain.String("subscription", sub.Number),
				domain.Err(err))
			continue
		}

		expiry := timeutil.StartOfDay(asOf)
		if sub.EndDate != nil {
			expiry = timeutil.StartOfDay(*sub.EndDate)
		}
		if err := s.cancelSchedulesAfter(ctx, sub.ID, expiry); err != nil {
			s.logger.Error("schedule cancellation after expiry failed, repair pass will resolve",
				domain.String("subscription", sub.Number),
				domain.Err(err))
		}
		result.Processed++
	}

	observability.RecordSweep("expiry", result.Processed, result.Failed)
	s.logger.Info("expiry sweep completed",
		domain.Int("examined", result.Examined),
		domain.Int("expired", result.Processed),
		domain.Int("failed", result.Failed))
	return result, nil
}

// HandleContractTerminated cancels every active subscription under a
// terminated contract, aligning end dates with the contract's end date
func (s *Service) HandleContractTerminated(ctx context.Context, contractID string) (*ports.SweepResult, error) {
	contract, err := s.contractRepo.GetByID(ctx, nil, contractID)
	if err != nil || contract == nil {
		return nil, apperrors.NotFound("contract", contractID)
	}
	if contract.Status != models.ContractStatusTerminated {
		return nil, apperrors.Conflict("contract %s is not terminated", contract.Number)
	}

	subs, err := s.subRepo.ListByContract(ctx, nil, contractID)
	if err != nil {
		return nil, err
	}

	result := &ports.SweepResult{}
	for _, sub := range subs {
		if sub.Status != models.SubStatusActive {
			continue
		}
		result.Examined++
		if _, err := s.Cancel(ctx, sub.ID, contract.EndDate); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ports.SweepError{SubscriptionID: sub.ID, Error: err.Error()})
			continue
		}
		result.Processed++
	}

	s.logger.Info("contract termination cascade completed",
		domain.String("contract", contract.Number),
		domain.Int("cancelled", result.Processed),
		domain.Int("failed", result.Failed))
	return result, nil
}
