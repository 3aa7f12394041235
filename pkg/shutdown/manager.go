// Package shutdown coordinates graceful termination of the billing
// engine: the cron surface stops accepting batch triggers, running
// batches drain, and the database pool closes last.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shutdown_duration_seconds",
		Help:    "Total time taken to stop the billing engine gracefully",
		Buckets: []float64{1, 5, 10, 15, 20, 30},
	})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shutdown_stage_duration_seconds",
		Help:    "Time taken to stop each shutdown stage",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"stage"})

	stageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutdown_stage_errors_total",
		Help: "Shutdown errors by stage",
	}, []string{"stage"})
)

// StopFunc stops one component, honoring the shutdown deadline
type StopFunc func(context.Context) error

type stage struct {
	name string
	stop StopFunc
}

// Manager runs registered shutdown stages in reverse registration order,
// one stage at a time. Sequential teardown matters here: the HTTP
// servers must stop before the in-flight batch tracker drains, and the
// tracker must drain before the pool closes, or a running invoice batch
// loses its connections mid-transaction.
type Manager struct {
	logger  *zap.Logger
	mu      sync.Mutex
	stages  []stage
	timeout time.Duration
}

// NewManager creates a shutdown manager with an overall deadline shared
// by all stages
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{logger: logger, timeout: timeout}
}

// Register adds a shutdown stage. Stages run in reverse registration
// order, so register in startup order: database first, servers last.
func (m *Manager) Register(name string, stop StopFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage{name: name, stop: stop})
}

// RegisterServer registers anything with an HTTP-server-shaped Shutdown
func (m *Manager) RegisterServer(name string, server interface {
	Shutdown(context.Context) error
}) {
	m.Register(name, server.Shutdown)
}

// RegisterNoErr registers a stop function that cannot fail, such as
// pgxpool.Pool.Close
func (m *Manager) RegisterNoErr(name string, stop func()) {
	m.Register(name, func(context.Context) error {
		stop()
		return nil
	})
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then runs all stages
func (m *Manager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	m.logger.Info("shutdown signal received",
		zap.String("signal", sig.String()),
		zap.Duration("timeout", m.timeout),
	)

	if err := m.Shutdown(); err != nil {
		m.logger.Error("graceful shutdown finished with errors", zap.Error(err))
		return
	}
	m.logger.Info("graceful shutdown complete")
}

// Shutdown runs every registered stage in reverse order under the
// shared deadline, continuing past stage failures. The joined stage
// errors are returned.
func (m *Manager) Shutdown() error {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	stages := make([]stage, len(m.stages))
	copy(stages, m.stages)
	m.mu.Unlock()

	var errs []error
	for i := len(stages) - 1; i >= 0; i-- {
		st := stages[i]
		stageStart := time.Now()

		if err := runStage(ctx, st); err != nil {
			stageErrors.WithLabelValues(st.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", st.name, err))
			m.logger.Error("shutdown stage failed",
				zap.String("stage", st.name),
				zap.Error(err),
				zap.Duration("elapsed", time.Since(stageStart)),
			)
		} else {
			m.logger.Info("shutdown stage done",
				zap.String("stage", st.name),
				zap.Duration("elapsed", time.Since(stageStart)),
			)
		}
		stageDuration.WithLabelValues(st.name).Observe(time.Since(stageStart).Seconds())
	}

	shutdownDuration.Observe(time.Since(started).Seconds())
	return errors.Join(errs...)
}

// runStage executes one stop function, giving up when the shared
// deadline expires so a hung component cannot stall the stages after it
func runStage(ctx context.Context, st stage) error {
	done := make(chan error, 1)
	go func() {
		done <- st.stop(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
