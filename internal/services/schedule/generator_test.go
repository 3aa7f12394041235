package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/subledger/billing-engine/internal/domain/models"
	"github.com/subledger/billing-engine/internal/services/numbering"
	"github.com/subledger/billing-engine/internal/testutil/fixtures"
	"github.com/subledger/billing-engine/internal/testutil/mocks"
)

func setupScheduleService(t *testing.T) (*Service, *mocks.MockSubscriptionRepository, *mocks.MockDueScheduleRepository) {
	t.Helper()
	subRepo := &mocks.MockSubscriptionRepository{}
	dueRepo := &mocks.MockDueScheduleRepository{}
	svc := NewService(&mocks.MockDBPort{}, subRepo, dueRepo, numbering.NewGenerator(), 0, mocks.NopLogger{})
	return svc, subRepo, dueRepo
}

// TestGenerate_FullYearMonthly covers the default case: a one-year
// monthly subscription yields twelve pending schedules
func TestGenerate_FullYearMonthly(t *testing.T) {
	svc, subRepo, dueRepo := setupScheduleService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Build()
	subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	dueRepo.On("CountByNumber", ctx, mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)
	dueRepo.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.DueSchedule")).Return(nil)

	created, err := svc.Generate(ctx, sub.ID, 12)

	require.NoError(t, err)
	require.Len(t, created, 12)
	first := created[0]
	assert.Equal(t, sub.ID, first.SubscriptionID)
	assert.Equal(t, fixtures.Date(2025, time.January, 1), first.PeriodStart)
	assert.Equal(t, fixtures.Date(2025, time.January, 31), first.PeriodEnd)
	assert.Equal(t, first.PeriodStart, first.DueDate)
	assert.Equal(t, models.DueStatusPending, first.Status)
	assert.True(t, first.Amount.Equal(sub.MonthlyPrice))
	last := created[11]
	assert.Equal(t, fixtures.Date(2025, time.December, 1), last.PeriodStart)
	assert.Equal(t, fixtures.Date(2025, time.December, 31), last.PeriodEnd)
	dueRepo.AssertNumberOfCalls(t, "Create", 12)
}

// TestGenerate_ZeroPeriodsUsesDefaultHorizon verifies periods <= 0
// selects the twelve-period default
func TestGenerate_ZeroPeriodsUsesDefaultHorizon(t *testing.T) {
	svc, subRepo, dueRepo := setupScheduleService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Build()
	subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	dueRepo.On("CountByNumber", ctx, mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)
	dueRepo.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.DueSchedule")).Return(nil)

	created, err := svc.Generate(ctx, sub.ID, 0)

	require.NoError(t, err)
	assert.Len(t, created, DefaultPeriods)
}

// TestGenerate_ConfiguredHorizonOverridesDefault verifies a horizon set
// at construction replaces the built-in default for periods <= 0
func TestGenerate_ConfiguredHorizonOverridesDefault(t *testing.T) {
	subRepo := &mocks.MockSubscriptionRepository{}
	dueRepo := &mocks.MockDueScheduleRepository{}
	svc := NewService(&mocks.MockDBPort{}, subRepo, dueRepo, numbering.NewGenerator(), 6, mocks.NopLogger{})
	ctx := context.Background()

	sub := fixtures.NewSubscription().Build()
	subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	dueRepo.On("CountByNumber", ctx, mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)
	dueRepo.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.DueSchedule")).Return(nil)

	created, err := svc.Generate(ctx, sub.ID, 0)

	require.NoError(t, err)
	assert.Len(t, created, 6)
}

// TestGenerate_EndDateTruncatesHorizon verifies generation stops at the
// subscription end date even when more periods were requested
func TestGenerate_EndDateTruncatesHorizon(t *testing.T) {
	svc, subRepo, dueRepo := setupScheduleService(t)
	ctx := context.Background()

	end := fixtures.Date(2025, time.March, 31)
	sub := fixtures.NewSubscription().WithTerm(fixtures.Date(2025, time.January, 1), &end).Build()
	subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	dueRepo.On("CountByNumber", ctx, mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)
	dueRepo.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.DueSchedule")).Return(nil)

	created, err := svc.Generate(ctx, sub.ID, 12)

	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, fixtures.Date(2025, time.March, 1), created[2].PeriodStart)
}

// TestGenerate_QuarterlyCycle verifies period boundaries follow the
// billing cycle cadence
func TestGenerate_QuarterlyCycle(t *testing.T) {
	svc, subRepo, dueRepo := setupScheduleService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().WithCycle(models.CycleQuarterly).Build()
	subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	dueRepo.On("CountByNumber", ctx, mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)
	dueRepo.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.DueSchedule")).Return(nil)

	created, err := svc.Generate(ctx, sub.ID, 4)

	require.NoError(t, err)
	require.Len(t, created, 4)
	assert.Equal(t, fixtures.Date(2025, time.January, 1), created[0].PeriodStart)
	assert.Equal(t, fixtures.Date(2025, time.March, 31), created[0].PeriodEnd)
	assert.Equal(t, fixtures.Date(2025, time.April, 1), created[1].PeriodStart)
	assert.Equal(t, fixtures.Date(2025, time.October, 1), created[3].PeriodStart)
}

// TestGenerate_SubscriptionNotFound verifies missing and soft-deleted
// subscriptions are rejected before any write
func TestGenerate_SubscriptionNotFound(t *testing.T) {
	svc, subRepo, dueRepo := setupScheduleService(t)
	ctx := context.Background()

	subRepo.On("GetByID", ctx, mock.Anything, "missing").Return(nil, errors.New("no rows"))

	created, err := svc.Generate(ctx, "missing", 12)

	require.Error(t, err)
	assert.Nil(t, created)
	dueRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_SoftDeletedSubscription(t *testing.T) {
	svc, subRepo, _ := setupScheduleService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Deleted().Build()
	subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)

	_, err := svc.Generate(ctx, sub.ID, 12)

	require.Error(t, err)
}

// TestGenerate_PersistFailureAborts verifies a failed insert leaves no
// partial schedule set behind
func TestGenerate_PersistFailureAborts(t *testing.T) {
	svc, subRepo, dueRepo := setupScheduleService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Build()
	subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	dueRepo.On("CountByNumber", ctx, mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)
	dueRepo.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.DueSchedule")).Return(errors.New("insert failed"))

	created, err := svc.Generate(ctx, sub.ID, 12)

	require.Error(t, err)
	assert.Nil(t, created)
}

// TestGenerateFrom_ContinuesFromGivenStart covers the renewal path:
// generation starts at the explicit period start, not the subscription
// start date
func TestGenerateFrom_ContinuesFromGivenStart(t *testing.T) {
	svc, subRepo, dueRepo := setupScheduleService(t)
	ctx := context.Background()

	end := fixtures.Date(2026, time.July, 1)
	sub := fixtures.NewSubscription().WithTerm(fixtures.Date(2025, time.January, 1), &end).Build()
	subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	dueRepo.On("CountByNumber", ctx, mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)
	dueRepo.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.DueSchedule")).Return(nil)

	created, err := svc.GenerateFrom(ctx, sub.ID, fixtures.Date(2026, time.January, 1), 6)

	require.NoError(t, err)
	require.Len(t, created, 6)
	assert.Equal(t, fixtures.Date(2026, time.January, 1), created[0].PeriodStart)
	assert.Equal(t, fixtures.Date(2026, time.June, 1), created[5].PeriodStart)
}
