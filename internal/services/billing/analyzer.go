// Package billing converts owed due schedules into invoices and open
// items. The analyzer determines the scope of one prospective batch run
// without mutating anything; the orchestrator executes that scope one
// schedule-level transaction at a time.
package billing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
	"github.com/subledger/billing-engine/internal/services/ports"
	"github.com/subledger/billing-engine/pkg/timeutil"
)

// Service implements ports.BillingService
type Service struct {
	db           domain.DBPort
	dueRepo      domain.DueScheduleRepository
	subRepo      domain.SubscriptionRepository
	contractRepo domain.ContractRepository
	productRepo  domain.ProductRepository
	invoiceRepo  domain.InvoiceRepository
	openItemRepo domain.OpenItemRepository
	numbers      ports.NumberGenerator
	logger       domain.Logger
}

// NewService creates a new billing service
func NewService(
	db domain.DBPort,
	dueRepo domain.DueScheduleRepository,
	subRepo domain.SubscriptionRepository,
	contractRepo domain.ContractRepository,
	productRepo domain.ProductRepository,
	invoiceRepo domain.InvoiceRepository,
	openItemRepo domain.OpenItemRepository,
	numbers ports.NumberGenerator,
	logger domain.Logger,
) *Service {
	return &Service{
		db:           db,
		dueRepo:      dueRepo,
		subRepo:      subRepo,
		contractRepo: contractRepo,
		productRepo:  productRepo,
		invoiceRepo:  invoiceRepo,
		openItemRepo: openItemRepo,
		numbers:      numbers,
		logger:       logger,
	}
}

// AnalyzeScope determines the set of due schedules eligible for the
// given billing date and estimates the resulting total. Pure read; the
// result may be stale by the time a batch executes, which is fine
// because the orchestrator re-checks every schedule under a row lock.
func (s *Service) AnalyzeScope(ctx context.Context, billingDate time.Time, includeAllPreviousPeriods bool) (*ports.BillingScope, error) {
	scope := &ports.BillingScope{
		BillingDate:               timeutil.StartOfDay(billingDate),
		IncludeAllPreviousPeriods: includeAllPreviousPeriods,
		EstimatedTotal:            decimal.Zero,
	}

	err := s.db.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var (
			schedules []*models.DueSchedule
			err       error
		)
		if includeAllPreviousPeriods {
			schedules, err = s.dueRepo.ListOwedDueOnOrBefore(ctx, tx, scope.BillingDate)
		} else {
			schedules, err = s.dueRepo.ListOwedDueOn(ctx, tx, scope.BillingDate)
		}
		if err != nil {
			return err
		}
		scope.DueSchedules = schedules

		subs := make(map[string]*models.Subscription, len(schedules))
		for _, sched := range schedules {
			sub, ok := subs[sched.SubscriptionID]
			if !ok {
				sub, err = s.subRepo.GetByID(ctx, tx, sched.SubscriptionID)
				if err != nil {
					sub = nil
				}
				subs[sched.SubscriptionID] = sub
			}
			scope.EstimatedTotal = scope.EstimatedTotal.Add(s.estimateAmount(ctx, tx, sub))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return scope, nil
}

// CanRun reports whether the scope for the given billing date is non-empty
func (s *Service) CanRun(ctx context.Context, billingDate time.Time, includeAllPreviousPeriods bool) (bool, error) {
	scope, err := s.AnalyzeScope(ctx, billingDate, includeAllPreviousPeriods)
	if err != nil {
		return false, err
	}
	return len(scope.DueSchedules) > 0, nil
}

// estimateAmount resolves the price used in the analyzer estimate:
// subscription monthly price, falling back to the linked product's
// price, defaulting to zero
func (s *Service) estimateAmount(ctx context.Context, tx domain.DBTX, sub *models.Subscription) decimal.Decimal {
	if sub == nil {
		return decimal.Zero
	}
	if sub.MonthlyPrice.IsPositive() {
		return sub.MonthlyPrice
	}
	if sub.ProductID != nil {
		product, err := s.productRepo.GetByID(ctx, tx, *sub.ProductID)
		if err == nil && product != nil {
			return product.Price
		}
	}
	return decimal.Zero
}
