package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestShutdown_ReverseOrder verifies stages stop in reverse registration
// order, servers before the pool
func TestShutdown_ReverseOrder(t *testing.T) {
	m := NewManager(zap.NewNop(), 5*time.Second)

	var order []string
	m.RegisterNoErr("database", func() { order = append(order, "database") })
	m.Register("inflight", func(context.Context) error {
		order = append(order, "inflight")
		return nil
	})
	m.Register("http-server", func(context.Context) error {
		order = append(order, "http-server")
		return nil
	})

	err := m.Shutdown()

	require.NoError(t, err)
	assert.Equal(t, []string{"http-server", "inflight", "database"}, order)
}

// TestShutdown_ContinuesPastFailure verifies one failing stage does not
// stop the stages after it, and its error survives into the result
func TestShutdown_ContinuesPastFailure(t *testing.T) {
	m := NewManager(zap.NewNop(), 5*time.Second)

	poolClosed := false
	m.RegisterNoErr("database", func() { poolClosed = true })
	m.Register("http-server", func(context.Context) error {
		return errors.New("listener already closed")
	})

	err := m.Shutdown()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "http-server")
	assert.Contains(t, err.Error(), "listener already closed")
	assert.True(t, poolClosed)
}

// TestShutdown_HungStageHitsDeadline verifies a stop function that never
// returns gives up at the shared deadline instead of stalling the rest
func TestShutdown_HungStageHitsDeadline(t *testing.T) {
	m := NewManager(zap.NewNop(), 50*time.Millisecond)

	drained := false
	m.Register("inflight", func(context.Context) error {
		drained = true
		return nil
	})
	m.Register("http-server", func(context.Context) error {
		select {} // never returns
	})

	err := m.Shutdown()

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, drained)
}

// TestRegisterServer_UsesShutdownMethod verifies server-shaped values
// register through their Shutdown method
func TestRegisterServer_UsesShutdownMethod(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	srv := &fakeServer{}
	m.RegisterServer("ops-server", srv)

	require.NoError(t, m.Shutdown())
	assert.True(t, srv.stopped)
}

type fakeServer struct {
	stopped bool
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.stopped = true
	return nil
}
