package maintenance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
	"github.com/subledger/billing-engine/internal/services/ports"
	"github.com/subledger/billing-engine/pkg/observability"
	"github.com/subledger/billing-engine/pkg/timeutil"
)

// checkFunc runs one repair check inside its own transaction and reports
// how many inconsistencies it found and fixed
type checkFunc func(ctx context.Context, tx pgx.Tx) (found, fixed int, err error)

// RepairConsistency runs every repair check. Checks are independent; one
// failing check never blocks the others, and a concurrently created
// inconsistency missed by this pass is caught by the next one.
func (s *Service) RepairConsistency(ctx context.Context) (*ports.RepairReport, error) {
	report := &ports.RepairReport{RanAt: timeutil.Now()}

	checks := []struct {
		name string
		fn   checkFunc
	}{
		{"missing_open_items", s.repairMissingOpenItems},
		{"orphaned_open_items", s.repairOrphanedOpenItems},
		{"overdue_open_items", s.repairOverdueOpenItems},
		{"subscriptions_under_terminated_contracts", s.repairTerminatedContractSubscriptions},
		{"schedules_without_active_subscription", s.repairOrphanedSchedules},
		{"invoice_open_item_amount_mismatch", s.repairAmountMismatches},
	}

	for _, check := range checks {
		result := ports.CheckResult{Name: check.name}
		err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			found, fixed, err := check.fn(ctx, tx)
			result.Found, result.Fixed = found, fixed
			return err
		})
		if err != nil {
			result.Error = err.Error()
			s.logger.Error("repair check failed",
				domain.String("check", check.name),
				domain.Err(err))
		}
		result.Remaining = result.Found - result.Fixed
		observability.RecordRepairCheck(check.name, result.Found, result.Fixed)
		report.Checks = append(report.Checks, result)
		report.TotalFound += result.Found
		report.TotalFixed += result.Fixed

		if result.FixedAny() || result.Remaining > 0 {
			s.logger.Info("repair check completed",
				domain.String("check", check.name),
				domain.Int("found", result.Found),
				domain.Int("fixed", result.Fixed),
				domain.Int("remaining", result.Remaining))
		}
	}

	s.logger.Info("consistency repair pass completed",
		domain.Int("found", report.TotalFound),
		domain.Int("fixed", report.TotalFixed))
	return report, nil
}

// repairMissingOpenItems creates the receivable for every non-cancelled,
// positive-amount invoice that lacks one
func (s *Service) repairMissingOpenItems(ctx context.Context, tx pgx.Tx) (int, int, error) {
	invoices, err := s.invoiceRepo.ListWithoutOpenItem(ctx, tx)
	if err != nil {
		return 0, 0, err
	}
	fixed := 0
	now := timeutil.Now()
	for _, inv := range invoices {
		item := &models.OpenItem{
			ID:          uuid.New().String(),
			InvoiceID:   inv.ID,
			Description: fmt.Sprintf("receivable for invoice %s", inv.Number),
			Amount:      inv.TotalAmount,
			DueDate:     inv.DueDate,
			PaidAmount:  decimal.Zero,
			Status:      models.OpenItemStatusOpen,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		item.RecalcStatus(now)
		if err := s.openItemRepo.Create(ctx, tx, item); err != nil {
			return len(invoices), fixed, err
		}
		fixed++
	}
	return len(invoices), fixed, nil
}

// repairOrphanedOpenItems deletes open items referencing no invoice
func (s *Service) repairOrphanedOpenItems(ctx context.Context, tx pgx.Tx) (int, int, error) {
	orphans, err := s.openItemRepo.ListOrphaned(ctx, tx)
	if err != nil {
		return 0, 0, err
	}
	fixed := 0
	for _, item := range orphans {
		if err := s.openItemRepo.Delete(ctx, tx, item.ID); err != nil {
			return len(orphans), fixed, err
		}
		fixed++
	}
	return len(orphans), fixed, nil
}

// repairOverdueOpenItems reclassifies open items past their due date
func (s *Service) repairOverdueOpenItems(ctx context.Context, tx pgx.Tx) (int, int, error) {
	now := timeutil.Now()
	pastDue, err := s.openItemRepo.ListOpenPastDue(ctx, tx, now)
	if err != nil {
		return 0, 0, err
	}
	fixed := 0
	for _, item := range pastDue {
		item.RecalcStatus(now)
		item.UpdatedAt = now
		if err := s.openItemRepo.Update(ctx, tx, item); err != nil {
			return len(pastDue), fixed, err
		}
		fixed++
	}
	return len(pastDue), fixed, nil
}

// repairTerminatedContractSubscriptions cancels active subscriptions
// whose contract is terminated, aligning end dates
func (s *Service) repairTerminatedContractSubscriptions(ctx context.Context, tx pgx.Tx) (int, int, error) {
	subs, err := s.subRepo.ListActiveWithTerminatedContract(ctx, tx)
	if err != nil {
		return 0, 0, err
	}
	fixed := 0
	now := timeutil.Now()
	for _, sub := range subs {
		contract, err := s.contractRepo.GetByID(ctx, tx, sub.ContractID)
		if err != nil {
			return len(subs), fixed, err
		}
		sub.Status = models.SubStatusCancelled
		sub.AutoRenew = false
		sub.CancelledAt = &now
		if contract.EndDate != nil {
			end := timeutil.StartOfDay(*contract.EndDate)
			sub.EndDate = &end
		}
		sub.UpdatedAt = now
		if err := s.subRepo.Update(ctx, tx, sub); err != nil {
			return len(subs), fixed, err
		}
		fixed++
	}
	return len(subs), fixed, nil
}

// repairOrphanedSchedules cancels owed schedules whose subscription is
// missing and pauses those whose subscription is merely inactive
func (s *Service) repairOrphanedSchedules(ctx context.Context, tx pgx.Tx) (int, int, error) {
	orphans, err := s.dueRepo.ListActiveStatusOrphans(ctx, tx)
	if err != nil {
		return 0, 0, err
	}
	fixed := 0
	now := timeutil.Now()
	for _, sched := range orphans {
		sub, err := s.subRepo.GetByID(ctx, tx, sched.SubscriptionID)
		if err != nil || sub == nil || sub.DeletedAt != nil {
			sched.Status = models.DueStatusCancelled
		} else {
			sched.Status = models.DueStatusPaused
		}
		sched.UpdatedAt = now
		if err := s.dueRepo.Update(ctx, tx, sched); err != nil {
			return len(orphans), fixed, err
		}
		fixed++
	}
	return len(orphans), fixed, nil
}

// repairAmountMismatches resyncs the open item amount for the
// single-open-item case; multi-item mismatches are only logged
func (s *Service) repairAmountMismatches(ctx context.Context, tx pgx.Tx) (int, int, error) {
	mismatches, err := s.invoiceRepo.ListOpenItemMismatches(ctx, tx)
	if err != nil {
		return 0, 0, err
	}
	fixed := 0
	for _, m := range mismatches {
		if m.OpenItemCount != 1 {
			s.logger.Warn("invoice amount mismatch with multiple open items left for manual review",
				domain.String("invoice_id", m.InvoiceID),
				domain.String("invoice_total", m.InvoiceTotal.String()),
				domain.String("open_item_total", m.OpenItemTotal.String()),
				domain.Int("open_items", m.OpenItemCount))
			continue
		}
		items, err := s.openItemRepo.ListByInvoice(ctx, tx, m.InvoiceID)
		if err != nil {
			return len(mismatches), fixed, err
		}
		for _, item := range items {
			if item.Status == models.OpenItemStatusCancelled {
				continue
			}
			item.Amount = m.InvoiceTotal
			item.RecalcStatus(timeutil.Now())
			item.UpdatedAt = timeutil.Now()
			if err := s.openItemRepo.Update(ctx, tx, item); err != nil {
				return len(mismatches), fixed, err
			}
		}
		fixed++
	}
	return len(mismatches), fixed, nil
}
