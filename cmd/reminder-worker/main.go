package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/medcare-assistant/cmd/mainconfig"
	"github.com/wolfman30/medcare-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medcare-assistant/internal/config"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

// The reminder worker scans due reminders and delivers them from the shared
// SQS queue. Set REMINDER_SCAN=false on extra replicas so only one publishes.
func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("component", "reminder-worker")

	if cfg.UseMemoryQueue {
		logger.Error("the reminder worker needs REMINDER_QUEUE_URL with USE_MEMORY_QUEUE=false; the API delivers in-memory reminders itself")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	infra := bootstrap.Infra{
		AWS:      awsConfig,
		Registry: reg,
		Pool:     bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger),
		Redis:    bootstrap.BuildRedisClient(ctx, cfg, logger, true),
	}
	if infra.Pool == nil || infra.Redis == nil {
		logger.Error("the reminder worker requires postgres and redis")
		os.Exit(1)
	}
	defer infra.Pool.Close()
	defer func() { _ = infra.Redis.Close() }()

	svc, err := bootstrap.BuildServices(ctx, cfg, infra, logger)
	if err != nil {
		logger.Error("failed to wire services", "error", err)
		os.Exit(1)
	}

	scan := os.Getenv("REMINDER_SCAN") != "false"
	wait := bootstrap.StartReminders(ctx, svc, cfg, logger, scan, true)

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down reminder worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()
	_ = metricsSrv.Shutdown(doneCtx)

	waitCh := make(chan struct{})
	go func() {
		wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("reminder worker stopped")
	case <-doneCtx.Done():
		logger.Error("reminder worker shutdown timed out", "error", doneCtx.Err())
	}
}
