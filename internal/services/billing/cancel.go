package billing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
	apperrors "github.com/subledger/billing-engine/pkg/errors"
	"github.com/subledger/billing-engine/pkg/timeutil"
)

// CancelInvoice cancels an invoice and every non-cancelled open item
// under it in one transaction, keeping the invariant that a cancelled
// invoice never carries a live receivable. Open items that already took
// a payment block the cancellation.
func (s *Service) CancelInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	var cancelled *models.Invoice
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		invoice, err := s.invoiceRepo.GetByID(ctx, tx, invoiceID)
		if err != nil || invoice == nil {
			return apperrors.NotFound("invoice", invoiceID)
		}
		if invoice.Status == models.InvoiceStatusCancelled {
			return apperrors.Conflict("invoice %s is already cancelled", invoice.Number)
		}

		items, err := s.openItemRepo.ListByInvoice(ctx, tx, invoice.ID)
		if err != nil {
			return fmt.Errorf("load open items: %w", err)
		}
		for _, item := range items {
			if item.Status != models.OpenItemStatusCancelled && item.PaidAmount.IsPositive() {
				return apperrors.Conflict("invoice %s has a partially paid receivable", invoice.Number)
			}
		}

		now := timeutil.Now()
		for _, item := range items {
			if item.Status == models.OpenItemStatusCancelled {
				continue
			}
			item.Status = models.OpenItemStatusCancelled
			item.UpdatedAt = now
			if err := s.openItemRepo.Update(ctx, tx, item); err != nil {
				return fmt.Errorf("cancel open item %s: %w", item.ID, err)
			}
		}

		if err := s.invoiceRepo.UpdateStatus(ctx, tx, invoice.ID, models.InvoiceStatusCancelled); err != nil {
			return fmt.Errorf("cancel invoice: %w", err)
		}
		invoice.Status = models.InvoiceStatusCancelled
		invoice.UpdatedAt = now
		cancelled = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice cancelled",
		domain.String("invoice", cancelled.Number),
		domain.String("customer", cancelled.CustomerID))
	return cancelled, nil
}
