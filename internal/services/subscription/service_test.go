package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/subledger/billing-engine/internal/domain/models"
	"github.com/subledger/billing-engine/internal/services/numbering"
	"github.com/subledger/billing-engine/internal/services/ports"
	"github.com/subledger/billing-engine/internal/testutil/fixtures"
	"github.com/subledger/billing-engine/internal/testutil/mocks"
	apperrors "github.com/subledger/billing-engine/pkg/errors"
)

type subscriptionMocks struct {
	subRepo      *mocks.MockSubscriptionRepository
	dueRepo      *mocks.MockDueScheduleRepository
	contractRepo *mocks.MockContractRepository
	schedules    *mocks.MockDueScheduleService
}

func setupSubscriptionService(t *testing.T) (*Service, *subscriptionMocks) {
	t.Helper()
	m := &subscriptionMocks{
		subRepo:      &mocks.MockSubscriptionRepository{},
		dueRepo:      &mocks.MockDueScheduleRepository{},
		contractRepo: &mocks.MockContractRepository{},
		schedules:    &mocks.MockDueScheduleService{},
	}
	svc := NewService(&mocks.MockDBPort{}, m.subRepo, m.dueRepo, m.contractRepo,
		m.schedules, numbering.NewGenerator(), 0, mocks.NopLogger{})
	return svc, m
}

// TestCreate_Defaults verifies the documented defaults: monthly cycle,
// one-year term, auto-renewal on, ACTIVE status, twelve schedules
func TestCreate_Defaults(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	contract := fixtures.NewContract().Build()
	m.contractRepo.On("GetByID", ctx, mock.Anything, contract.ID).Return(contract, nil)
	m.subRepo.On("CountByNumber", ctx, mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)
	m.subRepo.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.Subscription")).Return(nil)
	m.schedules.On("Generate", ctx, mock.AnythingOfType("string"), 12).Return([]*models.DueSchedule{}, nil)

	sub, err := svc.Create(ctx, ports.CreateSubscriptionRequest{
		ContractID:   contract.ID,
		ProductName:  "Standard Plan",
		MonthlyPrice: fixtures.Money("49.90"),
		StartDate:    fixtures.Date(2025, time.January, 1),
	})

	require.NoError(t, err)
	assert.Equal(t, models.SubStatusActive, sub.Status)
	assert.Equal(t, models.CycleMonthly, sub.BillingCycle)
	assert.True(t, sub.AutoRenew)
	require.NotNil(t, sub.EndDate)
	assert.Equal(t, fixtures.Date(2026, time.January, 1), *sub.EndDate)
	assert.NotEmpty(t, sub.Number)
	m.schedules.AssertCalled(t, "Generate", ctx, sub.ID, 12)
}

// TestCreate_QuarterlyPeriodCount verifies the generation horizon is
// derived from the term and cycle
func TestCreate_QuarterlyPeriodCount(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	contract := fixtures.NewContract().Build()
	end := fixtures.Date(2026, time.January, 1)
	m.contractRepo.On("GetByID", ctx, mock.Anything, contract.ID).Return(contract, nil)
	m.subRepo.On("CountByNumber", ctx, mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)
	m.subRepo.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.Subscription")).Return(nil)
	m.schedules.On("Generate", ctx, mock.AnythingOfType("string"), 4).Return([]*models.DueSchedule{}, nil)

	sub, err := svc.Create(ctx, ports.CreateSubscriptionRequest{
		ContractID:   contract.ID,
		ProductName:  "Standard Plan",
		MonthlyPrice: fixtures.Money("49.90"),
		StartDate:    fixtures.Date(2025, time.January, 1),
		EndDate:      &end,
		BillingCycle: models.CycleQuarterly,
	})

	require.NoError(t, err)
	m.schedules.AssertCalled(t, "Generate", ctx, sub.ID, 4)
}

func TestCreate_ContractNotFound(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	m.contractRepo.On("GetByID", ctx, mock.Anything, "missing").Return(nil, apperrors.NotFound("contract", "missing"))

	_, err := svc.Create(ctx, ports.CreateSubscriptionRequest{
		ContractID:   "missing",
		ProductName:  "Standard Plan",
		MonthlyPrice: fixtures.Money("49.90"),
		StartDate:    fixtures.Date(2025, time.January, 1),
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

// TestCreate_InactiveContract verifies a terminated contract rejects new
// subscriptions
func TestCreate_InactiveContract(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	contract := fixtures.NewContract().Terminated(fixtures.Date(2025, time.June, 30)).Build()
	m.contractRepo.On("GetByID", ctx, mock.Anything, contract.ID).Return(contract, nil)

	_, err := svc.Create(ctx, ports.CreateSubscriptionRequest{
		ContractID:   contract.ID,
		ProductName:  "Standard Plan",
		MonthlyPrice: fixtures.Money("49.90"),
		StartDate:    fixtures.Date(2025, time.January, 1),
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidArgument(err))
	m.subRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_NegativePrice(t *testing.T) {
	svc, _ := setupSubscriptionService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ports.CreateSubscriptionRequest{
		ContractID:   "ctr-1",
		ProductName:  "Standard Plan",
		MonthlyPrice: fixtures.Money("-1.00"),
		StartDate:    fixtures.Date(2025, time.January, 1),
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestCreate_UnknownBillingCycle(t *testing.T) {
	svc, _ := setupSubscriptionService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ports.CreateSubscriptionRequest{
		ContractID:   "ctr-1",
		ProductName:  "Standard Plan",
		MonthlyPrice: fixtures.Money("49.90"),
		StartDate:    fixtures.Date(2025, time.January, 1),
		BillingCycle: models.BillingCycle("WEEKLY"),
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidArgument(err))
}

// TestCreate_ScheduleGenerationFailureDoesNotFail verifies the
// subscription survives a failed schedule generation; the repair pass
// closes the gap later
func TestCreate_ScheduleGenerationFailureDoesNotFail(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	contract := fixtures.NewContract().Build()
	m.contractRepo.On("GetByID", ctx, mock.Anything, contract.ID).Return(contract, nil)
	m.subRepo.On("CountByNumber", ctx, mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)
	m.subRepo.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.Subscription")).Return(nil)
	m.schedules.On("Generate", ctx, mock.AnythingOfType("string"), 12).
		Return(nil, apperrors.Internal("generation failed", nil))

	sub, err := svc.Create(ctx, ports.CreateSubscriptionRequest{
		ContractID:   contract.ID,
		ProductName:  "Standard Plan",
		MonthlyPrice: fixtures.Money("49.90"),
		StartDate:    fixtures.Date(2025, time.January, 1),
	})

	require.NoError(t, err)
	assert.NotNil(t, sub)
}

// TestUpdate_PriceChangeSyncsFutureSchedules verifies a price change
// overwrites future unsettled schedules, skipping those with a payment
func TestUpdate_PriceChangeSyncsFutureSchedules(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Build()
	untouched := fixtures.NewDueSchedule().WithSubscriptionID(sub.ID).PartiallyPaid(fixtures.Money("20.00")).Build()
	repriced := fixtures.NewDueSchedule().WithSubscriptionID(sub.ID).Build()

	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	m.subRepo.On("Update", ctx, mock.Anything, sub).Return(nil)
	m.dueRepo.On("ListUnsettledDueAfter", ctx, mock.Anything, sub.ID, mock.AnythingOfType("time.Time")).
		Return([]*models.DueSchedule{untouched, repriced}, nil)
	m.dueRepo.On("Update", ctx, mock.Anything, repriced).Return(nil)

	newPrice := fixtures.Money("59.90")
	updated, err := svc.Update(ctx, ports.UpdateSubscriptionRequest{
		SubscriptionID: sub.ID,
		MonthlyPrice:   &newPrice,
	})

	require.NoError(t, err)
	assert.True(t, updated.MonthlyPrice.Equal(newPrice))
	assert.True(t, repriced.Amount.Equal(newPrice))
	assert.True(t, untouched.Amount.Equal(fixtures.Money("49.90")))
	m.dueRepo.AssertNumberOfCalls(t, "Update", 1)
}

// TestUpdate_CycleChangeRebuildsFutureTail verifies a cadence change
// cancels the future tail and regenerates it under the new cycle
func TestUpdate_CycleChangeRebuildsFutureTail(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Build()
	future := fixtures.NewDueSchedule().WithSubscriptionID(sub.ID).Build()

	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	m.subRepo.On("Update", ctx, mock.Anything, sub).Return(nil)
	m.dueRepo.On("ListUnsettledDueAfter", ctx, mock.Anything, sub.ID, mock.AnythingOfType("time.Time")).
		Return([]*models.DueSchedule{future}, nil)
	m.dueRepo.On("Update", ctx, mock.Anything, future).Return(nil)
	m.schedules.On("GenerateFrom", ctx, sub.ID, mock.AnythingOfType("time.Time"), mock.AnythingOfType("int")).
		Return([]*models.DueSchedule{}, nil)

	cycle := models.CycleQuarterly
	updated, err := svc.Update(ctx, ports.UpdateSubscriptionRequest{
		SubscriptionID: sub.ID,
		BillingCycle:   &cycle,
	})

	require.NoError(t, err)
	assert.Equal(t, models.CycleQuarterly, updated.BillingCycle)
	assert.Equal(t, models.DueStatusCancelled, future.Status)
	m.schedules.AssertNumberOfCalls(t, "GenerateFrom", 1)
}

// TestUpdate_EndDateExtensionGeneratesTail verifies extending the term
// generates schedules for the added periods only
func TestUpdate_EndDateExtensionGeneratesTail(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Build() // ends 2026-01-01

	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	m.subRepo.On("Update", ctx, mock.Anything, sub).Return(nil)
	m.schedules.On("GenerateFrom", ctx, sub.ID, fixtures.Date(2026, time.January, 1), 6).
		Return([]*models.DueSchedule{}, nil)

	newEnd := fixtures.Date(2026, time.July, 1)
	_, err := svc.Update(ctx, ports.UpdateSubscriptionRequest{
		SubscriptionID: sub.ID,
		EndDate:        &newEnd,
	})

	require.NoError(t, err)
	m.schedules.AssertCalled(t, "GenerateFrom", ctx, sub.ID, fixtures.Date(2026, time.January, 1), 6)
}

func TestUpdate_CancelledSubscription(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Cancelled().Build()
	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)

	name := "New Plan"
	_, err := svc.Update(ctx, ports.UpdateSubscriptionRequest{
		SubscriptionID: sub.ID,
		ProductName:    &name,
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestGet_SoftDeletedSubscription(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Deleted().Build()
	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)

	_, err := svc.Get(ctx, sub.ID)

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
