package shutdown

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	inflightBatches = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inflight_batch_requests",
		Help: "Batch requests currently executing",
	}, []string{"tracker"})

	rejectedBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutdown_rejected_requests_total",
		Help: "Batch requests rejected because shutdown had started",
	}, []string{"tracker"})
)

// InFlightTracker counts running batch requests so shutdown can wait
// for them. An invoice batch interrupted mid-run leaves schedules for
// the next run (each conversion is its own transaction), but letting it
// finish avoids a repair pass for no reason.
type InFlightTracker struct {
	logger *zap.Logger
	name   string

	mu       sync.Mutex
	active   int
	draining bool
	idle     *sync.Cond
}

// NewInFlightTracker creates a tracker; name labels its metrics and logs
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	t := &InFlightTracker{logger: logger, name: name}
	t.idle = sync.NewCond(&t.mu)
	return t
}

// Add claims a slot for one batch request. Returns false once draining
// has started; callers must not begin work then.
func (t *InFlightTracker) Add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.draining {
		rejectedBatches.WithLabelValues(t.name).Inc()
		return false
	}
	t.active++
	inflightBatches.WithLabelValues(t.name).Inc()
	return true
}

// Done releases the slot claimed by Add, typically via defer
func (t *InFlightTracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active--
	inflightBatches.WithLabelValues(t.name).Dec()
	if t.active == 0 {
		t.idle.Broadcast()
	}
}

// Active returns the number of batch requests currently executing
func (t *InFlightTracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// IsShuttingDown reports whether draining has started
func (t *InFlightTracker) IsShuttingDown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draining
}

// Shutdown rejects new work and waits for active batches to finish,
// giving up with the context's error at the deadline
func (t *InFlightTracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.draining = true
	active := t.active
	t.mu.Unlock()

	t.logger.Info("draining in-flight batch requests",
		zap.String("tracker", t.name),
		zap.Int("active", active),
	)

	done := make(chan struct{})
	go func() {
		t.mu.Lock()
		for t.active > 0 {
			t.idle.Wait()
		}
		t.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("all batch requests drained", zap.String("tracker", t.name))
		return nil
	case <-ctx.Done():
		t.logger.Warn("drain deadline reached with batches still running",
			zap.String("tracker", t.name),
			zap.Int("active", t.Active()),
		)
		return ctx.Err()
	}
}
