package shutdown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestInFlightTracker_AddAndDone verifies the active count follows
// claimed and released slots
func TestInFlightTracker_AddAndDone(t *testing.T) {
	tracker := NewInFlightTracker("cron", zap.NewNop())

	require.True(t, tracker.Add())
	require.True(t, tracker.Add())
	assert.Equal(t, 2, tracker.Active())

	tracker.Done()
	assert.Equal(t, 1, tracker.Active())
	assert.False(t, tracker.IsShuttingDown())
}

// TestInFlightTracker_RejectsAfterShutdown verifies no new batch can
// start once draining has begun
func TestInFlightTracker_RejectsAfterShutdown(t *testing.T) {
	tracker := NewInFlightTracker("cron", zap.NewNop())

	require.NoError(t, tracker.Shutdown(context.Background()))

	assert.True(t, tracker.IsShuttingDown())
	assert.False(t, tracker.Add())
	assert.Equal(t, 0, tracker.Active())
}

// TestInFlightTracker_WaitsForDrain verifies Shutdown blocks until the
// running batch releases its slot
func TestInFlightTracker_WaitsForDrain(t *testing.T) {
	tracker := NewInFlightTracker("cron", zap.NewNop())
	require.True(t, tracker.Add())

	done := make(chan error, 1)
	go func() {
		done <- tracker.Shutdown(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("shutdown returned before the batch finished")
	case <-time.After(50 * time.Millisecond):
	}

	tracker.Done()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("shutdown did not return after the batch finished")
	}
	assert.Equal(t, 0, tracker.Active())
}

// TestInFlightTracker_DrainDeadline verifies Shutdown gives up with the
// context error when a batch outlives the deadline
func TestInFlightTracker_DrainDeadline(t *testing.T) {
	tracker := NewInFlightTracker("cron", zap.NewNop())
	require.True(t, tracker.Add())
	defer tracker.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tracker.Shutdown(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
