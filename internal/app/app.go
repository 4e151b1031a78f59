package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/api"
	"github.com/ayo6706/multicurrency-wallet/internal/config"
	"github.com/ayo6706/multicurrency-wallet/internal/db"
	"github.com/ayo6706/multicurrency-wallet/internal/observability"
	"github.com/ayo6706/multicurrency-wallet/internal/worker"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and background workers, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MigrateOnStart {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database migrations applied")
	}

	c, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	workers := []*worker.Periodic{
		worker.NewClaimExpiryWorker(c.Services.Claims, cfg.ClaimExpiryInterval),
		worker.NewDepositPollWorker(c.Poller, cfg.DepositPollInterval),
		worker.NewReconciliationWorker(c.Reconciliation, cfg.ReconciliationInterval),
		worker.NewIdempotencyPurgeWorker(c.Idempotency, time.Hour),
	}
	stops := make([]func(), 0, len(workers))
	for _, w := range workers {
		stops = append(stops, w.Run(ctx))
	}
	logger.Info("background workers started", zap.Int("count", len(workers)))

	router := api.NewRouter(cfg, logger, c.Pool, c.Redis, c.Idempotency, c.Services)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("stopping background workers")
	for _, stop := range stops {
		stop()
	}

	logger.Info("shutdown complete")
	return nil
}

// NewLogger builds a production zap logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
