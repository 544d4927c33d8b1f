package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kevin07696/paylater-service/internal/adapters/logging"
	"github.com/kevin07696/paylater-service/internal/adapters/postgres"
	"github.com/kevin07696/paylater-service/internal/adapters/stripegw"
	"github.com/kevin07696/paylater-service/internal/config"
	cronHandler "github.com/kevin07696/paylater-service/internal/handlers/cron"
	planHandler "github.com/kevin07696/paylater-service/internal/handlers/plan"
	webhookHandler "github.com/kevin07696/paylater-service/internal/handlers/webhook"
	"github.com/kevin07696/paylater-service/internal/services/fees"
	planService "github.com/kevin07696/paylater-service/internal/services/plan"
	"github.com/kevin07696/paylater-service/internal/services/retry"
	"github.com/kevin07696/paylater-service/internal/services/scheduler"
	webhookService "github.com/kevin07696/paylater-service/internal/services/webhook"
	"github.com/kevin07696/paylater-service/pkg/middleware"
	"github.com/kevin07696/paylater-service/pkg/observability"
	"github.com/kevin07696/paylater-service/pkg/resilience"
	"github.com/kevin07696/paylater-service/pkg/shutdown"
	"github.com/kevin07696/paylater-service/pkg/timeutil"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logAdapter, zapLogger, err := logging.NewLogger(cfg.Logger.Level, cfg.Logger.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting paylater service",
		zap.String("version", "0.1.0"),
	)

	dbPool, err := initDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	zapLogger.Info("database connection established",
		zap.String("database", cfg.Database.Database),
	)

	dbPort := postgres.NewDB(dbPool)
	planRepo := postgres.NewPlanRepository()
	instRepo := postgres.NewInstallmentRepository()
	txnRepo := postgres.NewTransactionRepository()

	clock := timeutil.SystemClock{}
	timeouts := resilience.DefaultTimeoutConfig()
	if cfg.Gateway.Timeout > 0 {
		timeouts.Gateway = time.Duration(cfg.Gateway.Timeout) * time.Second
	}

	policy := retry.DefaultPolicy()
	if cfg.Plan.MaxRetryAttempts > 0 {
		policy.MaxAttempts = cfg.Plan.MaxRetryAttempts
	}

	feeCalc := fees.NewCalculator(fees.DefaultRates(), clock)

	gateway := stripegw.NewAdapter(&stripegw.Config{
		BaseURL: cfg.Gateway.BaseURL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: time.Duration(cfg.Gateway.Timeout) * time.Second,
	}, logAdapter)

	plans := planService.NewService(
		dbPort, planRepo, instRepo, txnRepo, gateway, policy, clock, logAdapter,
		planService.Options{
			Timeouts:            timeouts,
			GatewayProvider:     cfg.Gateway.Provider,
			DefaultInstallments: cfg.Plan.DefaultInstallments,
			MaxInstallments:     cfg.Plan.MaxInstallments,
		},
	)

	sweeper := scheduler.NewSweeper(
		dbPort, planRepo, instRepo, txnRepo, plans, feeCalc, policy, timeouts, clock, logAdapter,
		scheduler.Config{
			GatewayProvider: cfg.Gateway.Provider,
			BatchSize:       int32(cfg.Scheduler.BatchSize),
			PendingTimeout:  time.Duration(cfg.Scheduler.PendingTimeoutMin) * time.Minute,
			ChargesPerSec:   cfg.Scheduler.ChargesPerSec,
		},
	)

	runner, err := scheduler.NewRunner(sweeper, logAdapter, cfg.Scheduler.DueSpec, cfg.Scheduler.RetrySpec)
	if err != nil {
		zapLogger.Fatal("failed to schedule sweeps", zap.Error(err))
	}
	runner.Start()

	reconciler := webhookService.NewReconciler(dbPort, txnRepo, plans, clock, logAdapter)

	// HTTP surface
	sweepTracker := shutdown.NewInFlightTracker("sweeps", zapLogger)
	planH := planHandler.NewHandler(plans, timeouts, zapLogger)
	webhookH := webhookHandler.NewGatewayWebhookHandler(reconciler, timeouts, zapLogger, cfg.Server.WebhookSecret)
	sweepH := cronHandler.NewSweepHandler(sweeper, sweepTracker, zapLogger, cfg.Server.CronSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/plans", planH.Checkout)
	mux.HandleFunc("GET /api/v1/plans", planH.ListPlans)
	mux.HandleFunc("GET /api/v1/plans/{id}", planH.GetPlan)
	mux.HandleFunc("GET /api/v1/plans/{id}/summary", planH.Summary)
	mux.HandleFunc("POST /api/v1/plans/{id}/cancel", planH.Cancel)
	mux.HandleFunc("POST /api/v1/plans/{id}/pause", planH.Pause)
	mux.HandleFunc("POST /api/v1/plans/{id}/resume", planH.Resume)
	mux.HandleFunc("PUT /api/v1/plans/{id}/payment-method", planH.UpdatePaymentMethod)
	mux.HandleFunc("POST /api/v1/transactions/{id}/refund", planH.Refund)
	mux.HandleFunc("POST /webhooks/gateway", webhookH.HandleEvent)
	mux.HandleFunc("POST /cron/due-sweep", sweepH.DueSweep)
	mux.HandleFunc("POST /cron/retry-sweep", sweepH.RetrySweep)

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RequestsPerSec, cfg.Server.RequestBurst)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      rateLimiter.Middleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: timeouts.HTTPHandler + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zapLogger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("http server failed", zap.Error(err))
		}
	}()

	healthChecker := observability.NewHealthChecker(dbPool)
	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), healthChecker, zapLogger)
	zapLogger.Info("metrics server listening", zap.Int("port", cfg.Server.MetricsPort))

	// Shutdown order is LIFO: stop taking work first, flush last
	manager := shutdown.NewManager(zapLogger, 30*time.Second)
	manager.RegisterNoErr("database_pool", dbPool.Close)
	manager.RegisterNoErr("rate_limiter", rateLimiter.Shutdown)
	manager.RegisterHTTPServer("metrics_server", metricsServer)
	manager.RegisterHTTPServer("http_server", httpServer)
	manager.Register("in_flight_sweeps", sweepTracker.Shutdown)
	manager.Register("cron_runner", runner.Stop)

	manager.WaitForShutdown()
}

func initDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
