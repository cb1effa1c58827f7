package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "procurement-flow/internal/adapters/web"
	"procurement-flow/internal/app"
	"procurement-flow/internal/approval"
	"procurement-flow/internal/cache"
	"procurement-flow/internal/config"
	"procurement-flow/internal/core"
	"procurement-flow/internal/db"
	"procurement-flow/internal/logging"
	"procurement-flow/internal/metrics"
	"procurement-flow/internal/notify"
	"procurement-flow/internal/settings"
	"procurement-flow/internal/store/postgres"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting procurement server", cfg.LogFields()...)

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(cfg.MetricsPrefix, reg)
	store := postgres.New(pool).WithObserver(func(d time.Duration, err error) {
		m.TrackDB("tx", d, err)
	})

	provider := settings.NewProvider(store, logger)
	if err := provider.Refresh(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	go provider.Run(ctx, cfg.SettingsRefresh)

	deps := app.Deps{
		Store:    store,
		Settings: provider,
		Metrics:  m,
		Logger:   logger,
		LinkBase: cfg.PublicBaseURL,
		Notifier: notify.NewLogNotifier(logger),
	}
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		deps.Cache = cache.NewDashboardCache(rdb, cfg.DashboardCacheTTL, logger)
		deps.Notifier = notify.NewRedisQueue(rdb, cfg.MailQueueKey, logger)
	} else {
		logger.Warn("REDIS_URL not set: dashboard cache disabled, supplier mail is only logged")
	}
	if cfg.ApprovalEngineURL != "" {
		deps.Approvals = approval.NewClient(cfg.ApprovalEngineURL, cfg.ApprovalEngineToken)
	} else {
		logger.Warn("APPROVAL_ENGINE_URL not set: approval registration is skipped")
	}
	logApprovalFlow(logger, provider.Current())

	svc, err := app.NewAppService(deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: webAdapter.NewHandler(svc, webAdapter.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			JWTSecret:      cfg.JWTSecret,
			Logger:         logger,
			Metrics:        m,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func logApprovalFlow(logger *zap.Logger, s core.Settings) {
	if s.ApprovalFlowID <= 0 {
		logger.Warn("purchase order approval flow is not configured; ordering is disabled until it is set",
			zap.String("setting", settings.KeyApprovalFlowID))
	}
}
