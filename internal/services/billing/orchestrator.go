package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
	"github.com/subledger/billing-engine/internal/services/ports"
	"github.com/subledger/billing-engine/pkg/observability"
	"github.com/subledger/billing-engine/pkg/timeutil"
)

// RunInvoiceBatch executes the analyzer's scope: one invoice plus one
// open item per due schedule, the schedule transitioning to COMPLETED,
// all inside a single transaction per schedule. A failed conversion
// leaves its schedule untouched and the batch continues; the result
// reports expected vs processed counts so partial failure is visible.
func (s *Service) RunInvoiceBatch(ctx context.Context, billingDate time.Time, includeAllPreviousPeriods bool) (*ports.BatchResult, error) {
	started := time.Now()

	scope, err := s.AnalyzeScope(ctx, billingDate, includeAllPreviousPeriods)
	if err != nil {
		return nil, fmt.Errorf("analyze billing scope: %w", err)
	}

	result := &ports.BatchResult{
		BillingDate:   scope.BillingDate,
		ExpectedCount: len(scope.DueSchedules),
		TotalAmount:   decimal.Zero,
	}

	// Within one subscription the earliest-due schedule must be billed
	// first so reruns stay stable; between subscriptions order is free
	// but kept deterministic.
	groups := lo.GroupBy(scope.DueSchedules, func(d *models.DueSchedule) string {
		return d.SubscriptionID
	})
	subIDs := lo.Keys(groups)
	sort.Strings(subIDs)

	for _, subID := range subIDs {
		schedules := groups[subID]
		sort.Slice(schedules, func(i, j int) bool {
			return schedules[i].DueDate.Before(schedules[j].DueDate)
		})
		for _, sched := range schedules {
			amount, err := s.convertSchedule(ctx, sched.ID, scope.BillingDate)
			if err != nil {
				result.Errors = append(result.Errors, ports.BatchError{
					DueScheduleID:  sched.ID,
					SubscriptionID: sched.SubscriptionID,
					Error:          err.Error(),
				})
				s.logger.Error("schedule conversion failed",
					domain.String("schedule", sched.Number),
					domain.Err(err))
				continue
			}
			if amount == nil {
				// Claimed by a concurrent run between analysis and
				// execution; not an error, just no longer ours.
				continue
			}
			result.ProcessedCount++
			result.CreatedInvoices++
			result.CreatedOpenItems++
			result.TotalAmount = result.TotalAmount.Add(*amount)
		}
	}

	result.Message = fmt.Sprintf("billing run for %s: %d of %d schedules billed, total %s",
		result.BillingDate.Format("2006-01-02"), result.ProcessedCount, result.ExpectedCount, result.TotalAmount)

	batchStatus := "complete"
	switch {
	case result.ExpectedCount == 0:
		batchStatus = "empty"
	case len(result.Errors) > 0:
		batchStatus = "partial"
	}
	observability.RecordInvoiceBatch(batchStatus, result.CreatedInvoices, result.ProcessedCount,
		len(result.Errors), result.TotalAmount.Mul(decimal.NewFromInt(100)).IntPart(), time.Since(started).Seconds())

	s.logger.Info("invoice batch completed",
		domain.String("billing_date", result.BillingDate.Format("2006-01-02")),
		domain.Int("expected", result.ExpectedCount),
		domain.Int("processed", result.ProcessedCount),
		domain.Int("failed", len(result.Errors)),
		domain.String("total", result.TotalAmount.String()))

	return result, nil
}

// convertSchedule performs one schedule-to-invoice conversion in its own
// transaction. Returns nil amount (no error) when the schedule was no
// longer owed under the row lock.
func (s *Service) convertSchedule(ctx context.Context, scheduleID string, billingDate time.Time) (*decimal.Decimal, error) {
	var billed *decimal.Decimal
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sched, err := s.dueRepo.GetByIDForUpdate(ctx, tx, scheduleID)
		if err != nil {
			return fmt.Errorf("lock schedule: %w", err)
		}
		if !sched.IsOwed() {
			return nil
		}

		sub, err := s.subRepo.GetByID(ctx, tx, sched.SubscriptionID)
		if err != nil {
			return fmt.Errorf("load subscription %s: %w", sched.SubscriptionID, err)
		}
		contract, err := s.contractRepo.GetByID(ctx, tx, sub.ContractID)
		if err != nil {
			return fmt.Errorf("load contract %s: %w", sub.ContractID, err)
		}

		invoice, err := s.buildInvoice(ctx, tx, sched, sub, contract.CustomerID, billingDate)
		if err != nil {
			return err
		}
		if err := s.invoiceRepo.Create(ctx, tx, invoice); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		now := timeutil.Now()
		openItem := &models.OpenItem{
			ID:          uuid.New().String(),
			InvoiceID:   invoice.ID,
			Description: fmt.Sprintf("receivable for invoice %s", invoice.Number),
			Amount:      invoice.TotalAmount,
			DueDate:     sched.DueDate,
			PaidAmount:  decimal.Zero,
			Status:      models.OpenItemStatusOpen,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.openItemRepo.Create(ctx, tx, openItem); err != nil {
			return fmt.Errorf("create open item: %w", err)
		}

		sched.Status = models.DueStatusCompleted
		sched.Notes = fmt.Sprintf("billed as invoice %s", invoice.Number)
		sched.UpdatedAt = now
		if err := s.dueRepo.Update(ctx, tx, sched); err != nil {
			return fmt.Errorf("settle schedule: %w", err)
		}

		billed = &invoice.TotalAmount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return billed, nil
}

func (s *Service) buildInvoice(ctx context.Context, tx domain.DBTX, sched *models.DueSchedule, sub *models.Subscription, customerID string, billingDate time.Time) (*models.Invoice, error) {
	number, err := s.numbers.Next(ctx, "INV", func(ctx context.Context, n string) (bool, error) {
		count, err := s.invoiceRepo.CountByNumber(ctx, tx, n)
		return count > 0, err
	})
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	now := timeutil.Now()
	invoiceID := uuid.New().String()
	item := models.InvoiceItem{
		ID:          uuid.New().String(),
		InvoiceID:   invoiceID,
		ProductID:   sub.ProductID,
		Description: fmt.Sprintf("%s (%s - %s)", sub.ProductName, sched.PeriodStart.Format("2006-01-02"), sched.PeriodEnd.Format("2006-01-02")),
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   sched.Amount,
		TaxRate:     decimal.Zero,
	}
	invoice := &models.Invoice{
		ID:             invoiceID,
		CustomerID:     customerID,
		SubscriptionID: &sub.ID,
		Number:         number,
		InvoiceDate:    billingDate,
		DueDate:        sched.DueDate,
		Status:         models.InvoiceStatusActive,
		Items:          []models.InvoiceItem{item},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	invoice.TotalAmount = invoice.ComputeTotal()
	return invoice, nil
}
