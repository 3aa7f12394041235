package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/subledger/billing-engine/internal/domain/models"
	"github.com/subledger/billing-engine/internal/domain/ports"
)

// subsOrNil avoids the type assertion panic when a mock returns nil
func subsOrNil(v interface{}) []*models.Subscription {
	if v == nil {
		return nil
	}
	return v.([]*models.Subscription)
}

func schedsOrNil(v interface{}) []*models.DueSchedule {
	if v == nil {
		return nil
	}
	return v.([]*models.DueSchedule)
}

func invoicesOrNil(v interface{}) []*models.Invoice {
	if v == nil {
		return nil
	}
	return v.([]*models.Invoice)
}

func itemsOrNil(v interface{}) []*models.OpenItem {
	if v == nil {
		return nil
	}
	return v.([]*models.OpenItem)
}

// MockContractRepository implements ports.ContractRepository
type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) Create(ctx context.Context, tx ports.DBTX, contract *models.Contract) error {
	args := m.Called(ctx, tx, contract)
	return args.Error(0)
}

func (m *MockContractRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*models.Contract, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *MockContractRepository) Update(ctx context.Context, tx ports.DBTX, contract *models.Contract) error {
	args := m.Called(ctx, tx, contract)
	return args.Error(0)
}

// MockProductRepository implements ports.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, tx ports.DBTX, product *models.Product) error {
	args := m.Called(ctx, tx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*models.Product, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

// MockSubscriptionRepository implements ports.SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, tx ports.DBTX, sub *models.Subscription) error {
	args := m.Called(ctx, tx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*models.Subscription, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, tx ports.DBTX, sub *models.Subscription) error {
	args := m.Called(ctx, tx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) SoftDelete(ctx context.Context, tx ports.DBTX, id string, deletedAt time.Time) error {
	args := m.Called(ctx, tx, id, deletedAt)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ListByContract(ctx context.Context, db ports.DBTX, contractID string) ([]*models.Subscription, error) {
	args := m.Called(ctx, db, contractID)
	return subsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockSubscriptionRepository) ListByStatus(ctx context.Context, db ports.DBTX, status models.SubscriptionStatus) ([]*models.Subscription, error) {
	args := m.Called(ctx, db, status)
	return subsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockSubscriptionRepository) ListDueForAutoRenewal(ctx context.Context, db ports.DBTX, from, to time.Time) ([]*models.Subscription, error) {
	args := m.Called(ctx, db, from, to)
	return subsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockSubscriptionRepository) ListExpired(ctx context.Context, db ports.DBTX, asOf time.Time) ([]*models.Subscription, error) {
	args := m.Called(ctx, db, asOf)
	return subsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockSubscriptionRepository) ListActiveWithTerminatedContract(ctx context.Context, db ports.DBTX) ([]*models.Subscription, error) {
	args := m.Called(ctx, db)
	return subsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockSubscriptionRepository) CountByNumber(ctx context.Context, db ports.DBTX, number string) (int64, error) {
	args := m.Called(ctx, db, number)
	return args.Get(0).(int64), args.Error(1)
}

// MockDueScheduleRepository implements ports.DueScheduleRepository
type MockDueScheduleRepository struct {
	mock.Mock
}

func (m *MockDueScheduleRepository) Create(ctx context.Context, tx ports.DBTX, sched *models.DueSchedule) error {
	args := m.Called(ctx, tx, sched)
	return args.Error(0)
}

func (m *MockDueScheduleRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*models.DueSchedule, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DueSchedule), args.Error(1)
}

func (m *MockDueScheduleRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id string) (*models.DueSchedule, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DueSchedule), args.Error(1)
}

func (m *MockDueScheduleRepository) Update(ctx context.Context, tx ports.DBTX, sched *models.DueSchedule) error {
	args := m.Called(ctx, tx, sched)
	return args.Error(0)
}

func (m *MockDueScheduleRepository) ListBySubscription(ctx context.Context, db ports.DBTX, subscriptionID string) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, db, subscriptionID)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleRepository) ListByCustomer(ctx context.Context, db ports.DBTX, customerID string) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, db, customerID)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleRepository) ListByStatus(ctx context.Context, db ports.DBTX, status models.DueScheduleStatus) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, db, status)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleRepository) ListByDueDateRange(ctx context.Context, db ports.DBTX, from, to time.Time) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, db, from, to)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleRepository) ListOwedDueOn(ctx context.Context, db ports.DBTX, date time.Time) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, db, date)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleRepository) ListOwedDueOnOrBefore(ctx context.Context, db ports.DBTX, date time.Time) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, db, date)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleRepository) ListUnsettledBySubscription(ctx context.Context, db ports.DBTX, subscriptionID string) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, db, subscriptionID)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleRepository) ListUnsettledDueAfter(ctx context.Context, db ports.DBTX, subscriptionID string, after time.Time) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, db, subscriptionID, after)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleRepository) ListPendingPastDue(ctx context.Context, db ports.DBTX, asOf time.Time) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, db, asOf)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleRepository) ListActiveStatusOrphans(ctx context.Context, db ports.DBTX) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, db)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleRepository) CountBySubscription(ctx context.Context, db ports.DBTX, subscriptionID string) (int64, error) {
	args := m.Called(ctx, db, subscriptionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDueScheduleRepository) CountByNumber(ctx context.Context, db ports.DBTX, number string) (int64, error) {
	args := m.Called(ctx, db, number)
	return args.Get(0).(int64), args.Error(1)
}

// MockInvoiceRepository implements ports.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, tx ports.DBTX, invoice *models.Invoice) error {
	args := m.Called(ctx, tx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*models.Invoice, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id string, status models.InvoiceStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockInvoiceRepository) ListBySubscription(ctx context.Context, db ports.DBTX, subscriptionID string) ([]*models.Invoice, error) {
	args := m.Called(ctx, db, subscriptionID)
	return invoicesOrNil(args.Get(0)), args.Error(1)
}

func (m *MockInvoiceRepository) ListWithoutOpenItem(ctx context.Context, db ports.DBTX) ([]*models.Invoice, error) {
	args := m.Called(ctx, db)
	return invoicesOrNil(args.Get(0)), args.Error(1)
}

func (m *MockInvoiceRepository) ListOpenItemMismatches(ctx context.Context, db ports.DBTX) ([]ports.InvoiceMismatch, error) {
	args := m.Called(ctx, db)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.InvoiceMismatch), args.Error(1)
}

func (m *MockInvoiceRepository) CountByNumber(ctx context.Context, db ports.DBTX, number string) (int64, error) {
	args := m.Called(ctx, db, number)
	return args.Get(0).(int64), args.Error(1)
}

// MockOpenItemRepository implements ports.OpenItemRepository
type MockOpenItemRepository struct {
	mock.Mock
}

func (m *MockOpenItemRepository) Create(ctx context.Context, tx ports.DBTX, item *models.OpenItem) error {
	args := m.Called(ctx, tx, item)
	return args.Error(0)
}

func (m *MockOpenItemRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*models.OpenItem, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OpenItem), args.Error(1)
}

func (m *MockOpenItemRepository) Update(ctx context.Context, tx ports.DBTX, item *models.OpenItem) error {
	args := m.Called(ctx, tx, item)
	return args.Error(0)
}

func (m *MockOpenItemRepository) Delete(ctx context.Context, tx ports.DBTX, id string) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockOpenItemRepository) ListByInvoice(ctx context.Context, db ports.DBTX, invoiceID string) ([]*models.OpenItem, error) {
	args := m.Called(ctx, db, invoiceID)
	return itemsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockOpenItemRepository) ListByStatus(ctx context.Context, db ports.DBTX, status models.OpenItemStatus) ([]*models.OpenItem, error) {
	args := m.Called(ctx, db, status)
	return itemsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockOpenItemRepository) ListOrphaned(ctx context.Context, db ports.DBTX) ([]*models.OpenItem, error) {
	args := m.Called(ctx, db)
	return itemsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockOpenItemRepository) ListOpenPastDue(ctx context.Context, db ports.DBTX, asOf time.Time) ([]*models.OpenItem, error) {
	args := m.Called(ctx, db, asOf)
	return itemsOrNil(args.Get(0)), args.Error(1)
}

// MockMaintenanceRepository implements ports.MaintenanceRepository
type MockMaintenanceRepository struct {
	mock.Mock
}

func (m *MockMaintenanceRepository) ClearBusinessData(ctx context.Context, tx ports.DBTX) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockMaintenanceRepository) StatusReport(ctx context.Context, db ports.DBTX) (*ports.BusinessDataReport, error) {
	args := m.Called(ctx, db)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.BusinessDataReport), args.Error(1)
}
