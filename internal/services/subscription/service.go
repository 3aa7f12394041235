// Package subscription implements the subscription lifecycle state
// machine and keeps due schedules synchronized with lifecycle events.
// Synchronization failures never block the primary status change; the
// resulting drift is picked up by the consistency repair engine.
package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
	"github.com/subledger/billing-engine/internal/services/numbering"
	"github.com/subledger/billing-engine/internal/services/ports"
	apperrors "github.com/subledger/billing-engine/pkg/errors"
	"github.com/subledger/billing-engine/pkg/timeutil"
)

// Service implements ports.SubscriptionService
type Service struct {
	db            domain.DBPort
	subRepo       domain.SubscriptionRepository
	dueRepo       domain.DueScheduleRepository
	contractRepo  domain.ContractRepository
	schedules     ports.DueScheduleService
	numbers       ports.NumberGenerator
	logger        domain.Logger
	validate      *validator.Validate
	renewalWindow time.Duration
}

// NewService creates a new subscription lifecycle service. autoRenewDays
// is how far ahead the auto-renewal sweep looks; zero or negative
// selects the built-in default.
func NewService(
	db domain.DBPort,
	subRepo domain.SubscriptionRepository,
	dueRepo domain.DueScheduleRepository,
	contractRepo domain.ContractRepository,
	schedules ports.DueScheduleService,
	numbers ports.NumberGenerator,
	autoRenewDays int,
	logger domain.Logger,
) *Service {
	window := defaultAutoRenewalWindow
	if autoRenewDays > 0 {
		window = time.Duration(autoRenewDays) * 24 * time.Hour
	}
	return &Service{
		db:            db,
		subRepo:       subRepo,
		dueRepo:       dueRepo,
		contractRepo:  contractRepo,
		schedules:     schedules,
		numbers:       numbers,
		logger:        logger,
		validate:      validator.New(),
		renewalWindow: window,
	}
}

// Create validates and persists a new subscription under an active
// contract, then pre-generates its due schedules
func (s *Service) Create(ctx context.Context, req ports.CreateSubscriptionRequest) (*models.Subscription, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.InvalidArgument("create subscription: %v", err)
	}
	if req.MonthlyPrice.IsNegative() {
		return nil, apperrors.InvalidArgument("monthly price must not be negative")
	}
	if req.BillingCycle != "" && !req.BillingCycle.Valid() {
		return nil, apperrors.InvalidArgument("unknown billing cycle %q", req.BillingCycle)
	}

	contract, err := s.contractRepo.GetByID(ctx, nil, req.ContractID)
	if err != nil || contract == nil {
		return nil, apperrors.NotFound("contract", req.ContractID)
	}
	if !contract.IsActive() {
		return nil, apperrors.InvalidArgument("contract %s is not active", contract.Number)
	}

	cycle := req.BillingCycle
	if cycle == "" {
		cycle = models.CycleMonthly
	}
	startDate := timeutil.StartOfDay(req.StartDate)
	endDate := req.EndDate
	if endDate == nil {
		d := startDate.AddDate(1, 0, 0)
		endDate = &d
	}
	autoRenew := true
	if req.AutoRenew != nil {
		autoRenew = *req.AutoRenew
	}

	number, err := s.numbers.Next(ctx, numbering.PrefixSubscription, func(ctx context.Context, n string) (bool, error) {
		count, err := s.subRepo.CountByNumber(ctx, nil, n)
		return count > 0, err
	})
	if err != nil {
		return nil, fmt.Errorf("generate subscription number: %w", err)
	}

	now := timeutil.Now()
	sub := &models.Subscription{
		ID:           uuid.New().String(),
		ContractID:   req.ContractID,
		ProductID:    req.ProductID,
		Number:       number,
		ProductName:  req.ProductName,
		MonthlyPrice: req.MonthlyPrice,
		StartDate:    startDate,
		EndDate:      endDate,
		BillingCycle: cycle,
		Status:       models.SubStatusActive,
		AutoRenew:    autoRenew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.subRepo.Create(ctx, tx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	periods := s.periodCount(sub)
	if _, err := s.schedules.Generate(ctx, sub.ID, periods); err != nil {
		s.logger.Error("schedule generation after create failed, repair pass will regenerate",
			domain.String("subscription", sub.Number),
			domain.Err(err))
	}

	s.logger.Info("subscription created",
		domain.String("subscription", sub.Number),
		domain.String("contract", contract.Number),
		domain.String("cycle", string(cycle)),
		domain.Int("periods", periods))
	return sub, nil
}

// Update applies a partial update and synchronizes due schedules when
// price, billing cycle, or end date changed
func (s *Service) Update(ctx context.Context, req ports.UpdateSubscriptionRequest) (*models.Subscription, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.InvalidArgument("update subscription: %v", err)
	}
	if req.MonthlyPrice != nil && req.MonthlyPrice.IsNegative() {
		return nil, apperrors.InvalidArgument("monthly price must not be negative")
	}
	if req.BillingCycle != nil && !req.BillingCycle.Valid() {
		return nil, apperrors.InvalidArgument("unknown billing cycle %q", *req.BillingCycle)
	}

	sub, err := s.getActive(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.SubStatusCancelled {
		return nil, apperrors.Conflict("cannot update cancelled subscription %s", sub.Number)
	}

	oldPrice := sub.MonthlyPrice
	oldCycle := sub.BillingCycle
	oldEnd := sub.EndDate

	if req.ProductName != nil {
		sub.ProductName = *req.ProductName
	}
	if req.MonthlyPrice != nil {
		sub.MonthlyPrice = *req.MonthlyPrice
	}
	if req.BillingCycle != nil {
		sub.BillingCycle = *req.BillingCycle
	}
	if req.EndDate != nil {
		d := timeutil.StartOfDay(*req.EndDate)
		sub.EndDate = &d
	}
	if req.AutoRenew != nil {
		sub.AutoRenew = *req.AutoRenew
	}
	sub.UpdatedAt = timeutil.Now()

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.subRepo.Update(ctx, tx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	s.syncAfterUpdate(ctx, sub, oldPrice, oldCycle, oldEnd)

	s.logger.Info("subscription updated", domain.String("subscription", sub.Number))
	return sub, nil
}

// Get retrieves a subscription by ID
func (s *Service) Get(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	return s.getActive(ctx, subscriptionID)
}

// ListByContract lists subscriptions belonging to a contract
func (s *Service) ListByContract(ctx context.Context, contractID string) ([]*models.Subscription, error) {
	return s.subRepo.ListByContract(ctx, nil, contractID)
}

// getActive loads a subscription and maps missing or soft-deleted rows
// to NotFound
func (s *Service) getActive(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.subRepo.GetByID(ctx, nil, id)
	if err != nil || sub == nil || sub.DeletedAt != nil {
		return nil, apperrors.NotFound("subscription", id)
	}
	return sub, nil
}

// periodCount derives the generation horizon from the subscription's
// duration and cycle, never less than one period
func (s *Service) periodCount(sub *models.Subscription) int {
	if sub.EndDate == nil {
		return 0 // generator default
	}
	months := timeutil.MonthsBetween(sub.StartDate, *sub.EndDate)
	periods := months / sub.BillingCycle.Months()
	if periods < 1 {
		periods = 1
	}
	return periods
}
