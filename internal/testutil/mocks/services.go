package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/subledger/billing-engine/internal/domain/models"
	"github.com/subledger/billing-engine/internal/services/ports"
)

// MockDueScheduleService implements ports.DueScheduleService for
// subscription lifecycle tests
type MockDueScheduleService struct {
	mock.Mock
}

func (m *MockDueScheduleService) Generate(ctx context.Context, subscriptionID string, periods int) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, subscriptionID, periods)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleService) GenerateFrom(ctx context.Context, subscriptionID string, from time.Time, periods int) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, subscriptionID, from, periods)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleService) Get(ctx context.Context, id string) (*models.DueSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DueSchedule), args.Error(1)
}

func (m *MockDueScheduleService) ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, subscriptionID)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleService) ListByCustomer(ctx context.Context, customerID string) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, customerID)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleService) ListByStatus(ctx context.Context, status models.DueScheduleStatus) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, status)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleService) ListByDueDateRange(ctx context.Context, from, to time.Time) ([]*models.DueSchedule, error) {
	args := m.Called(ctx, from, to)
	return schedsOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDueScheduleService) RecordPayment(ctx context.Context, req ports.RecordPaymentRequest) (*models.DueSchedule, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DueSchedule), args.Error(1)
}

func (m *MockDueScheduleService) MarkPaid(ctx context.Context, id string) (*models.DueSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DueSchedule), args.Error(1)
}

func (m *MockDueScheduleService) Pause(ctx context.Context, id string) (*models.DueSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DueSchedule), args.Error(1)
}

func (m *MockDueScheduleService) Cancel(ctx context.Context, id string) (*models.DueSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DueSchedule), args.Error(1)
}

func (m *MockDueScheduleService) IssueReminder(ctx context.Context, id string) (*models.DueSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DueSchedule), args.Error(1)
}

func (m *MockDueScheduleService) ProcessOverdue(ctx context.Context, asOf time.Time) (*ports.OverdueSweepResult, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.OverdueSweepResult), args.Error(1)
}
