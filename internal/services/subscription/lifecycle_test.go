package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/subledger/billing-engine/internal/domain/models"
	"github.com/subledger/billing-engine/internal/testutil/fixtures"
	apperrors "github.com/subledger/billing-engine/pkg/errors"
)

// TestCancel_CancelsFutureSchedules verifies cancellation cuts off at
// the effective date: schedules due after it are cancelled, earlier ones
// stay collectible
func TestCancel_CancelsFutureSchedules(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Build()
	effective := fixtures.Date(2025, time.June, 15)
	july := fixtures.NewDueSchedule().WithSubscriptionID(sub.ID).WithDueDate(fixtures.Date(2025, time.July, 1)).Build()
	august := fixtures.NewDueSchedule().WithSubscriptionID(sub.ID).WithDueDate(fixtures.Date(2025, time.August, 1)).Build()

	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	m.subRepo.On("Update", ctx, mock.Anything, sub).Return(nil)
	m.dueRepo.On("ListUnsettledDueAfter", ctx, mock.Anything, sub.ID, effective).
		Return([]*models.DueSchedule{july, august}, nil)
	m.dueRepo.On("Update", ctx, mock.Anything, mock.AnythingOfType("*models.DueSchedule")).Return(nil)

	cancelled, err := svc.Cancel(ctx, sub.ID, &effective)

	require.NoError(t, err)
	assert.Equal(t, models.SubStatusCancelled, cancelled.Status)
	assert.False(t, cancelled.AutoRenew)
	require.NotNil(t, cancelled.EndDate)
	assert.Equal(t, effective, *cancelled.EndDate)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, models.DueStatusCancelled, july.Status)
	assert.Equal(t, models.DueStatusCancelled, august.Status)
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Cancelled().Build()
	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)

	_, err := svc.Cancel(ctx, sub.ID, nil)

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

// TestCancel_ScheduleCleanupFailureDoesNotFail verifies the status
// change survives a failed schedule cleanup
func TestCancel_ScheduleCleanupFailureDoesNotFail(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Build()
	effective := fixtures.Date(2025, time.June, 15)
	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	m.subRepo.On("Update", ctx, mock.Anything, sub).Return(nil)
	m.dueRepo.On("ListUnsettledDueAfter", ctx, mock.Anything, sub.ID, effective).
		Return(nil, apperrors.Internal("query failed", nil))

	cancelled, err := svc.Cancel(ctx, sub.ID, &effective)

	require.NoError(t, err)
	assert.Equal(t, models.SubStatusCancelled, cancelled.Status)
}

// TestRenew_GeneratesFromOldEndDate verifies renewal extends the term
// and continues schedule generation from the old end date, not today
func TestRenew_GeneratesFromOldEndDate(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Build() // ends 2026-01-01
	newEnd := fixtures.Date(2026, time.July, 1)

	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	m.subRepo.On("Update", ctx, mock.Anything, sub).Return(nil)
	m.schedules.On("GenerateFrom", ctx, sub.ID, fixtures.Date(2026, time.January, 1), 6).
		Return([]*models.DueSchedule{}, nil)

	renewed, err := svc.Renew(ctx, sub.ID, newEnd)

	require.NoError(t, err)
	assert.Equal(t, models.SubStatusActive, renewed.Status)
	require.NotNil(t, renewed.EndDate)
	assert.Equal(t, newEnd, *renewed.EndDate)
	m.schedules.AssertCalled(t, "GenerateFrom", ctx, sub.ID, fixtures.Date(2026, time.January, 1), 6)
}

// TestRenew_ExpiredSubscription verifies renewal reactivates an expired
// subscription
func TestRenew_ExpiredSubscription(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Expired().Build()
	newEnd := fixtures.Date(2027, time.January, 1)

	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	m.subRepo.On("Update", ctx, mock.Anything, sub).Return(nil)
	m.schedules.On("GenerateFrom", ctx, sub.ID, mock.AnythingOfType("time.Time"), mock.AnythingOfType("int")).
		Return([]*models.DueSchedule{}, nil)

	renewed, err := svc.Renew(ctx, sub.ID, newEnd)

	require.NoError(t, err)
	assert.Equal(t, models.SubStatusActive, renewed.Status)
}

func TestRenew_NewEndDoesNotExtend(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Build() // ends 2026-01-01
	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)

	_, err := svc.Renew(ctx, sub.ID, fixtures.Date(2025, time.June, 1))

	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidArgument(err))
	m.subRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRenew_CancelledSubscription(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Cancelled().Build()
	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)

	_, err := svc.Renew(ctx, sub.ID, fixtures.Date(2027, time.January, 1))

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestPause_NonActiveSubscription(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Paused().Build()
	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)

	_, err := svc.Pause(ctx, sub.ID)

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

// TestActivate_RegeneratesMissingSchedules verifies activation runs the
// default generation when the subscription has no schedules at all
func TestActivate_RegeneratesMissingSchedules(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Paused().Build()
	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	m.subRepo.On("Update", ctx, mock.Anything, sub).Return(nil)
	m.dueRepo.On("CountBySubscription", ctx, mock.Anything, sub.ID).Return(int64(0), nil)
	m.schedules.On("Generate", ctx, sub.ID, 0).Return([]*models.DueSchedule{}, nil)

	activated, err := svc.Activate(ctx, sub.ID)

	require.NoError(t, err)
	assert.Equal(t, models.SubStatusActive, activated.Status)
	m.schedules.AssertCalled(t, "Generate", ctx, sub.ID, 0)
}

func TestActivate_KeepsExistingSchedules(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	sub := fixtures.NewSubscription().Paused().Build()
	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	m.subRepo.On("Update", ctx, mock.Anything, sub).Return(nil)
	m.dueRepo.On("CountBySubscription", ctx, mock.Anything, sub.ID).Return(int64(12), nil)

	_, err := svc.Activate(ctx, sub.ID)

	require.NoError(t, err)
	m.schedules.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

// TestDelete_ActiveContractRejected verifies a subscription cannot be
// deleted while its contract is active
func TestDelete_ActiveContractRejected(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	contract := fixtures.NewContract().Build()
	sub := fixtures.NewSubscription().WithContractID(contract.ID).Build()
	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	m.contractRepo.On("GetByID", ctx, mock.Anything, contract.ID).Return(contract, nil)

	err := svc.Delete(ctx, sub.ID)

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	m.subRepo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestDelete_CancelsUnsettledSchedules verifies deletion under an
// inactive contract cancels unsettled schedules and soft-deletes the row
func TestDelete_CancelsUnsettledSchedules(t *testing.T) {
	svc, m := setupSubscriptionService(t)
	ctx := context.Background()

	contract := fixtures.NewContract().Terminated(fixtures.Date(2025, time.June, 30)).Build()
	sub := fixtures.NewSubscription().WithContractID(contract.ID).Build()
	open := fixtures.NewDueSchedule().WithSubscriptionID(sub.ID).Build()

	m.subRepo.On("GetByID", ctx, mock.Anything, sub.ID).Return(sub, nil)
	m.contractRepo.On("GetByID", ctx, mock.Anything, contract.ID).Return(contract, nil)
	m.dueRepo.On("ListUnsettledBySubscription", ctx, mock.Anything, sub.ID).Return([]*models.DueSchedule{open}, nil)
	m.dueRepo.On("Update", ctx, mock.Anything, open).Return(nil)
	m.subRepo.On("SoftDelete", ctx, mock.Anything, sub.ID, mock.AnythingOfType("time.Time")).Return(nil)

	err := svc.Delete(ctx, sub.ID)

	require.NoError(t, err)
	assert.Equal(t, models.DueStatusCancelled, open.Status)
	m.subRepo.AssertCalled(t, "SoftDelete", ctx, mock.Anything, sub.ID, mock.AnythingOfType("time.Time"))
}
