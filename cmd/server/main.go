package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/subledger/billing-engine/internal/adapters/postgres"
	"github.com/subledger/billing-engine/internal/adapters/zaplog"
	"github.com/subledger/billing-engine/internal/config"
	cronHandler "github.com/subledger/billing-engine/internal/handlers/cron"
	"github.com/subledger/billing-engine/internal/services/billing"
	"github.com/subledger/billing-engine/internal/services/maintenance"
	"github.com/subledger/billing-engine/internal/services/numbering"
	scheduleService "github.com/subledger/billing-engine/internal/services/schedule"
	subscriptionService "github.com/subledger/billing-engine/internal/services/subscription"
	"github.com/subledger/billing-engine/pkg/middleware"
	"github.com/subledger/billing-engine/pkg/observability"
	"github.com/subledger/billing-engine/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting billing engine",
		zap.String("version", "0.1.0"),
	)

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, cfg.Database.ConnectionString(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	logger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
	)

	// Wire adapters and services
	db := postgres.NewDBExecutor(pool)
	portLogger := zaplog.NewZapLogger(logger)

	contractRepo := postgres.NewContractRepository(db)
	productRepo := postgres.NewProductRepository(db)
	subRepo := postgres.NewSubscriptionRepository(db)
	dueRepo := postgres.NewDueScheduleRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)
	openItemRepo := postgres.NewOpenItemRepository(db)
	maintRepo := postgres.NewMaintenanceRepository(db)
	numbers := numbering.NewGenerator()

	schedules := scheduleService.NewService(db, subRepo, dueRepo, numbers, cfg.Billing.DefaultPeriods, portLogger)
	subscriptions := subscriptionService.NewService(db, subRepo, dueRepo, contractRepo, schedules, numbers, cfg.Billing.AutoRenewDays, portLogger)
	billingService := billing.NewService(db, dueRepo, subRepo, contractRepo, productRepo, invoiceRepo, openItemRepo, numbers, portLogger)
	maintenanceService := maintenance.NewService(db, subRepo, dueRepo, contractRepo, invoiceRepo, openItemRepo, maintRepo, portLogger)

	billingHandler := cronHandler.NewBillingHandler(billingService, logger, cfg.Cron.Secret, cfg.Billing.IncludeBackdated)
	sweepHandler := cronHandler.NewSweepHandler(subscriptions, schedules, logger, cfg.Cron.Secret)
	maintenanceHandler := cronHandler.NewMaintenanceHandler(maintenanceService, logger, cfg.Cron.Secret)

	// Cron runs are the only callers; a low per-IP limit keeps a broken
	// scheduler from stampeding the batch endpoints
	rateLimiter := middleware.NewRateLimiter(cfg.Cron.RateLimit, cfg.Cron.RateBurst)

	// Batch endpoints keep running through a shutdown signal until the
	// tracker drains or the shutdown timeout expires
	inflight := shutdown.NewInFlightTracker("cron", logger)

	httpMux := http.NewServeMux()
	httpMux.HandleFunc("/cron/run-billing", tracked(inflight, billingHandler.RunBilling))
	httpMux.HandleFunc("/cron/billing-preview", billingHandler.Preview)
	httpMux.HandleFunc("/cron/billing-can-run", billingHandler.CanRun)
	httpMux.HandleFunc("/cron/cancel-invoice", tracked(inflight, billingHandler.CancelInvoice))
	httpMux.HandleFunc("/cron/process-auto-renewals", tracked(inflight, sweepHandler.ProcessAutoRenewals))
	httpMux.HandleFunc("/cron/process-expired", tracked(inflight, sweepHandler.ProcessExpired))
	httpMux.HandleFunc("/cron/process-overdue", tracked(inflight, sweepHandler.ProcessOverdue))
	httpMux.HandleFunc("/cron/repair-consistency", tracked(inflight, maintenanceHandler.RepairConsistency))
	httpMux.HandleFunc("/cron/status-report", maintenanceHandler.StatusReport)
	httpMux.HandleFunc("/cron/clear-business-data", tracked(inflight, maintenanceHandler.ClearBusinessData))
	httpMux.HandleFunc("/cron/health", billingHandler.HealthCheck)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: observability.MetricsMiddleware(rateLimiter.Middleware(httpMux)),
	}

	// Metrics and health on a separate port
	healthChecker := observability.NewHealthChecker(pool)
	opsServer := observability.StartOpsServer(strconv.Itoa(cfg.Server.MetricsPort), healthChecker, logger)

	go func() {
		logger.Info("HTTP server listening",
			zap.Int("port", cfg.Server.Port),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Components shut down in reverse registration order: servers first,
	// then in-flight batch work, database last
	manager := shutdown.NewManager(logger, 30*time.Second)
	manager.RegisterNoErr("database", pool.Close)
	manager.Register("inflight-work", inflight.Shutdown)
	manager.RegisterNoErr("rate-limiter", rateLimiter.Shutdown)
	manager.RegisterServer("ops-server", opsServer)
	manager.RegisterServer("http-server", httpServer)

	manager.WaitForShutdown()
	logger.Info("Servers stopped")
}

// tracked wraps a handler so graceful shutdown waits for it to finish;
// new requests after shutdown starts are rejected
func tracked(inflight *shutdown.InFlightTracker, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !inflight.Add() {
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer inflight.Done()
		handler(w, r)
	}
}

// initLogger builds the zap logger from config
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}
