package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
	"github.com/subledger/billing-engine/internal/services/ports"
	"github.com/subledger/billing-engine/internal/testutil/fixtures"
	"github.com/subledger/billing-engine/internal/testutil/mocks"
)

type maintenanceMocks struct {
	subRepo      *mocks.MockSubscriptionRepository
	dueRepo      *mocks.MockDueScheduleRepository
	contractRepo *mocks.MockContractRepository
	invoiceRepo  *mocks.MockInvoiceRepository
	openItemRepo *mocks.MockOpenItemRepository
	maintRepo    *mocks.MockMaintenanceRepository
}

func setupMaintenanceService(t *testing.T) (*Service, *maintenanceMocks) {
	t.Helper()
	m := &maintenanceMocks{
		subRepo:      &mocks.MockSubscriptionRepository{},
		dueRepo:      &mocks.MockDueScheduleRepository{},
		contractRepo: &mocks.MockContractRepository{},
		invoiceRepo:  &mocks.MockInvoiceRepository{},
		openItemRepo: &mocks.MockOpenItemRepository{},
		maintRepo:    &mocks.MockMaintenanceRepository{},
	}
	svc := NewService(&mocks.MockDBPort{}, m.subRepo, m.dueRepo, m.contractRepo,
		m.invoiceRepo, m.openItemRepo, m.maintRepo, mocks.NopLogger{})
	return svc, m
}

// expectCleanChecks wires every repair check to find nothing; individual
// tests override the check under test first
func expectCleanChecks(ctx context.Context, m *maintenanceMocks) {
	m.invoiceRepo.On("ListWithoutOpenItem", ctx, mock.Anything).Return([]*models.Invoice{}, nil)
	m.openItemRepo.On("ListOrphaned", ctx, mock.Anything).Return([]*models.OpenItem{}, nil)
	m.openItemRepo.On("ListOpenPastDue", ctx, mock.Anything, mock.AnythingOfType("time.Time")).Return([]*models.OpenItem{}, nil)
	m.subRepo.On("ListActiveWithTerminatedContract", ctx, mock.Anything).Return([]*models.Subscription{}, nil)
	m.dueRepo.On("ListActiveStatusOrphans", ctx, mock.Anything).Return([]*models.DueSchedule{}, nil)
	m.invoiceRepo.On("ListOpenItemMismatches", ctx, mock.Anything).Return([]domain.InvoiceMismatch{}, nil)
}

func checkByName(t *testing.T, report *ports.RepairReport, name string) ports.CheckResult {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s missing from report", name)
	return ports.CheckResult{}
}

// TestRepairConsistency_CleanStateFindsNothing verifies a clean pass
// reports zero findings across all checks
func TestRepairConsistency_CleanStateFindsNothing(t *testing.T) {
	svc, m := setupMaintenanceService(t)
	ctx := context.Background()
	expectCleanChecks(ctx, m)

	report, err := svc.RepairConsistency(ctx)

	require.NoError(t, err)
	assert.Len(t, report.Checks, 6)
	assert.Equal(t, 0, report.TotalFound)
	assert.Equal(t, 0, report.TotalFixed)
}

// TestRepairConsistency_CreatesMissingOpenItems verifies an invoice
// without a receivable gets one created from its total and due date
func TestRepairConsistency_CreatesMissingOpenItems(t *testing.T) {
	svc, m := setupMaintenanceService(t)
	ctx := context.Background()

	invoice := fixtures.NewInvoice("CUST-0001", "sub-1", fixtures.Money("49.90"), fixtures.Date(2025, time.February, 1))
	m.invoiceRepo.On("ListWithoutOpenItem", ctx, mock.Anything).Return([]*models.Invoice{invoice}, nil)

	var created *models.OpenItem
	m.openItemRepo.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.OpenItem")).
		Run(func(args mock.Arguments) { created = args.Get(2).(*models.OpenItem) }).Return(nil)
	expectCleanChecks(ctx, m)

	report, err := svc.RepairConsistency(ctx)

	require.NoError(t, err)
	check := checkByName(t, report, "missing_open_items")
	assert.Equal(t, 1, check.Found)
	assert.Equal(t, 1, check.Fixed)
	assert.Equal(t, 0, check.Remaining)

	require.NotNil(t, created)
	assert.Equal(t, invoice.ID, created.InvoiceID)
	assert.True(t, created.Amount.Equal(invoice.TotalAmount))
	assert.Equal(t, invoice.DueDate, created.DueDate)
}

// TestRepairConsistency_DeletesOrphanedOpenItems verifies receivables
// referencing no invoice are removed
func TestRepairConsistency_DeletesOrphanedOpenItems(t *testing.T) {
	svc, m := setupMaintenanceService(t)
	ctx := context.Background()

	orphan := fixtures.NewOpenItem("gone", fixtures.Money("49.90"), fixtures.Date(2025, time.February, 1))
	m.openItemRepo.On("ListOrphaned", ctx, mock.Anything).Return([]*models.OpenItem{orphan}, nil)
	m.openItemRepo.On("Delete", ctx, mock.Anything, orphan.ID).Return(nil)
	expectCleanChecks(ctx, m)

	report, err := svc.RepairConsistency(ctx)

	require.NoError(t, err)
	check := checkByName(t, report, "orphaned_open_items")
	assert.Equal(t, 1, check.Found)
	assert.Equal(t, 1, check.Fixed)
	m.openItemRepo.AssertCalled(t, "Delete", ctx, mock.Anything, orphan.ID)
}

// TestRepairConsistency_ReclassifiesOverdueOpenItems verifies past-due
// open receivables are reclassified
func TestRepairConsistency_ReclassifiesOverdueOpenItems(t *testing.T) {
	svc, m := setupMaintenanceService(t)
	ctx := context.Background()

	item := fixtures.NewOpenItem("inv-1", fixtures.Money("49.90"), fixtures.Date(2025, time.January, 1))
	m.openItemRepo.On("ListOpenPastDue", ctx, mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*models.OpenItem{item}, nil)
	m.openItemRepo.On("Update", ctx, mock.Anything, item).Return(nil)
	expectCleanChecks(ctx, m)

	report, err := svc.RepairConsistency(ctx)

	require.NoError(t, err)
	check := checkByName(t, report, "overdue_open_items")
	assert.Equal(t, 1, check.Fixed)
	assert.Equal(t, models.OpenItemStatusOverdue, item.Status)
}

// TestRepairConsistency_CancelsSubscriptionsUnderTerminatedContracts
// verifies leftover active subscriptions are cancelled and end-aligned
func TestRepairConsistency_CancelsSubscriptionsUnderTerminatedContracts(t *testing.T) {
	svc, m := setupMaintenanceService(t)
	ctx := context.Background()

	contractEnd := fixtures.Date(2025, time.June, 30)
	contract := fixtures.NewContract().Terminated(contractEnd).Build()
	sub := fixtures.NewSubscription().WithContractID(contract.ID).Build()

	m.subRepo.On("ListActiveWithTerminatedContract", ctx, mock.Anything).Return([]*models.Subscription{sub}, nil)
	m.contractRepo.On("GetByID", ctx, mock.Anything, contract.ID).Return(contract, nil)
	m.subRepo.On("Update", ctx, mock.Anything, sub).Return(nil)
	expectCleanChecks(ctx, m)

	report, err := svc.RepairConsistency(ctx)

	require.NoError(t, err)
	check := checkByName(t, report, "subscriptions_under_terminated_contracts")
	assert.Equal(t, 1, check.Fixed)
	assert.Equal(t, models.SubStatusCancelled, sub.Status)
	assert.False(t, sub.AutoRenew)
	require.NotNil(t, sub.EndDate)
	assert.Equal(t, contractEnd, *sub.EndDate)
}

// TestRepairConsistency_OrphanedSchedules verifies schedules without a
// live subscription are cancelled and those under an inactive one paused
func TestRepairConsistency_OrphanedSchedules(t *testing.T) {
	svc, m := setupMaintenanceService(t)
	ctx := context.Background()

	ghost := fixtures.NewDueSchedule().Build()
	pausedSub := fixtures.NewSubscription().Paused().Build()
	stranded := fixtures.NewDueSchedule().WithSubscriptionID(pausedSub.ID).Build()

	m.dueRepo.On("ListActiveStatusOrphans", ctx, mock.Anything).Return([]*models.DueSchedule{ghost, stranded}, nil)
	m.subRepo.On("GetByID", ctx, mock.Anything, ghost.SubscriptionID).Return(nil, errors.New("no rows"))
	m.subRepo.On("GetByID", ctx, mock.Anything, pausedSub.ID).Return(pausedSub, nil)
	m.dueRepo.On("Update", ctx, mock.Anything, mock.AnythingOfType("*models.DueSchedule")).Return(nil)
	expectCleanChecks(ctx, m)

	report, err := svc.RepairConsistency(ctx)

	require.NoError(t, err)
	check := checkByName(t, report, "schedules_without_active_subscription")
	assert.Equal(t, 2, check.Fixed)
	assert.Equal(t, models.DueStatusCancelled, ghost.Status)
	assert.Equal(t, models.DueStatusPaused, stranded.Status)
}

// TestRepairConsistency_AmountMismatchSingleItem verifies the receivable
// amount is resynced when the invoice has exactly one open item
func TestRepairConsistency_AmountMismatchSingleItem(t *testing.T) {
	svc, m := setupMaintenanceService(t)
	ctx := context.Background()

	item := fixtures.NewOpenItem("inv-1", fixtures.Money("10.00"), fixtures.Date(2025, time.February, 1))
	mismatch := domain.InvoiceMismatch{
		InvoiceID:     "inv-1",
		InvoiceTotal:  fixtures.Money("49.90"),
		OpenItemTotal: fixtures.Money("10.00"),
		OpenItemCount: 1,
	}

	m.invoiceRepo.On("ListOpenItemMismatches", ctx, mock.Anything).Return([]domain.InvoiceMismatch{mismatch}, nil)
	m.openItemRepo.On("ListByInvoice", ctx, mock.Anything, "inv-1").Return([]*models.OpenItem{item}, nil)
	m.openItemRepo.On("Update", ctx, mock.Anything, item).Return(nil)
	expectCleanChecks(ctx, m)

	report, err := svc.RepairConsistency(ctx)

	require.NoError(t, err)
	check := checkByName(t, report, "invoice_open_item_amount_mismatch")
	assert.Equal(t, 1, check.Fixed)
	assert.True(t, item.Amount.Equal(fixtures.Money("49.90")))
}

// TestRepairConsistency_AmountMismatchMultipleItems verifies multi-item
// mismatches are reported but left for manual review
func TestRepairConsistency_AmountMismatchMultipleItems(t *testing.T) {
	svc, m := setupMaintenanceService(t)
	ctx := context.Background()

	mismatch := domain.InvoiceMismatch{
		InvoiceID:     "inv-1",
		InvoiceTotal:  fixtures.Money("49.90"),
		OpenItemTotal: fixtures.Money("60.00"),
		OpenItemCount: 2,
	}
	m.invoiceRepo.On("ListOpenItemMismatches", ctx, mock.Anything).Return([]domain.InvoiceMismatch{mismatch}, nil)
	expectCleanChecks(ctx, m)

	report, err := svc.RepairConsistency(ctx)

	require.NoError(t, err)
	check := checkByName(t, report, "invoice_open_item_amount_mismatch")
	assert.Equal(t, 1, check.Found)
	assert.Equal(t, 0, check.Fixed)
	assert.Equal(t, 1, check.Remaining)
	m.openItemRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

// TestRepairConsistency_FailedCheckIsolated verifies one failing check
// never blocks the remaining checks
func TestRepairConsistency_FailedCheckIsolated(t *testing.T) {
	svc, m := setupMaintenanceService(t)
	ctx := context.Background()

	m.invoiceRepo.On("ListWithoutOpenItem", ctx, mock.Anything).Return(nil, errors.New("query timeout"))
	expectCleanChecks(ctx, m)

	report, err := svc.RepairConsistency(ctx)

	require.NoError(t, err)
	assert.Len(t, report.Checks, 6)
	failed := checkByName(t, report, "missing_open_items")
	assert.Contains(t, failed.Error, "query timeout")
	for _, check := range report.Checks[1:] {
		assert.Empty(t, check.Error)
	}
}

func TestStatusReport_Passthrough(t *testing.T) {
	svc, m := setupMaintenanceService(t)
	ctx := context.Background()

	expected := &domain.BusinessDataReport{
		Subscriptions: domain.StatusCounts{"ACTIVE": 3},
		DueSchedules:  domain.StatusCounts{"PENDING": 30},
	}
	m.maintRepo.On("StatusReport", ctx, mock.Anything).Return(expected, nil)

	report, err := svc.StatusReport(ctx)

	require.NoError(t, err)
	assert.Equal(t, expected, report)
}

func TestClearBusinessData(t *testing.T) {
	svc, m := setupMaintenanceService(t)
	ctx := context.Background()

	m.maintRepo.On("ClearBusinessData", ctx, mock.Anything).Return(nil)

	err := svc.ClearBusinessData(ctx)

	require.NoError(t, err)
	m.maintRepo.AssertCalled(t, "ClearBusinessData", ctx, mock.Anything)
}
