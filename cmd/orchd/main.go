// Command orchd is the orchestrator process: it serves the External API
// Shim and runs the Tick Loop in the same binary, the way the original
// implementation's single FastAPI/ASGI process did with its startup-hook
// periodic task. Wiring order (config → logging → database → templates →
// telemetry → scheduler → HTTP server → graceful shutdown) follows the
// bootstrap shape in cmd/divinesense/main.go and cmd/openchoreo-api/main.go.
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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jordigilh/orch/internal/advancer"
	"github.com/jordigilh/orch/internal/alerting"
	"github.com/jordigilh/orch/internal/config"
	"github.com/jordigilh/orch/internal/database"
	"github.com/jordigilh/orch/internal/executor"
	"github.com/jordigilh/orch/internal/httpapi"
	"github.com/jordigilh/orch/internal/logging"
	"github.com/jordigilh/orch/internal/scheduler"
	"github.com/jordigilh/orch/internal/store"
	"github.com/jordigilh/orch/internal/telemetry"
	"github.com/jordigilh/orch/internal/template/builtin"
	"github.com/jordigilh/orch/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return err
	}

	logger, err := logging.New(cfg.Application, cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		return err
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		logger.Error("run migrations", zap.Error(err))
		return err
	}

	asyncPool, err := database.NewPool(ctx, cfg.AsyncDatabaseURL)
	if err != nil {
		logger.Error("open async pool", zap.Error(err))
		return err
	}
	defer asyncPool.Close()

	readDB, err := database.NewReadDB(cfg.DatabaseURL)
	if err != nil {
		logger.Error("open read db", zap.Error(err))
		return err
	}
	defer readDB.Close()

	registry := builtin.Registry()
	exec := executor.New(registry, logger)
	adv := advancer.New(asyncPool, exec, logger)
	st := store.New(readDB)

	metrics := telemetryMetrics()
	alerter := alerting.New(cfg.SlackWebhookURL, logger)
	notifier := webhook.New(webhook.Config{
		NumOfRetries:        cfg.WebhookNumOfRetries,
		Timeout:             cfg.WebhookTimeout,
		PauseBetweenRetries: cfg.WebhookPauseBetweenRetries,
	}, redisClientOrNil(cfg.RedisURL, logger), metrics, logger)

	onFlowComplete := func(ctx context.Context, flowID uuid.UUID) {
		flow, err := st.GetFlowByID(ctx, flowID)
		if err != nil {
			logger.Warn("failed to load completed flow for webhook", zap.Error(err), zap.String("flow_id", flowID.String()))
			return
		}
		notifier.Notify(ctx, *flow)
	}

	sched := scheduler.New(asyncPool, adv, metrics, logger, cfg.TickPeriod, alerter.Alert, onFlowComplete)
	sched.Start(ctx)
	defer sched.Stop()

	srv := &http.Server{
		Addr:    ":8000",
		Handler: httpapi.New(registry, st, adv, logger).Router(),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

func telemetryMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics(prometheus.DefaultRegisterer)
}

func redisClientOrNil(redisURL string, logger *zap.Logger) *redis.Client {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("malformed redis_url, webhook delivery guard disabled", zap.Error(err))
		return nil
	}

	return redis.NewClient(opts)
}
