// Package maintenance implements the consistency repair engine plus the
// operational maintenance commands (status report, business data reset).
// Every repair check is independently transactional and idempotent, so a
// pass can run repeatedly and concurrently with normal traffic.
package maintenance

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
)

// Service implements ports.MaintenanceService
type Service struct {
	db           domain.DBPort
	subRepo      domain.SubscriptionRepository
	dueRepo      domain.DueScheduleRepository
	contractRepo domain.ContractRepository
	invoiceRepo  domain.InvoiceRepository
	openItemRepo domain.OpenItemRepository
	maintRepo    domain.MaintenanceRepository
	logger       domain.Logger
}

// NewService creates a new maintenance service
func NewService(
	db domain.DBPort,
	subRepo domain.SubscriptionRepository,
	dueRepo domain.DueScheduleRepository,
	contractRepo domain.ContractRepository,
	invoiceRepo domain.InvoiceRepository,
	openItemRepo domain.OpenItemRepository,
	maintRepo domain.MaintenanceRepository,
	logger domain.Logger,
) *Service {
	return &Service{
		db:           db,
		subRepo:      subRepo,
		dueRepo:      dueRepo,
		contractRepo: contractRepo,
		invoiceRepo:  invoiceRepo,
		openItemRepo: openItemRepo,
		maintRepo:    maintRepo,
		logger:       logger,
	}
}

// StatusReport returns per-entity, per-status row counts
func (s *Service) StatusReport(ctx context.Context) (*domain.BusinessDataReport, error) {
	return s.maintRepo.StatusReport(ctx, nil)
}

// ClearBusinessData deletes all billing business data in one transaction
func (s *Service) ClearBusinessData(ctx context.Context) error {
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.maintRepo.ClearBusinessData(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("clear business data: %w", err)
	}
	s.logger.Warn("business data cleared")
	return nil
}
