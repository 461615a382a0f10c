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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/medcare-assistant/cmd/mainconfig"
	"github.com/wolfman30/medcare-assistant/internal/api/router"
	"github.com/wolfman30/medcare-assistant/internal/app/bootstrap"
	"github.com/wolfman30/medcare-assistant/internal/auth"
	"github.com/wolfman30/medcare-assistant/internal/chatbot"
	appconfig "github.com/wolfman30/medcare-assistant/internal/config"
	"github.com/wolfman30/medcare-assistant/internal/prescriptions"
	"github.com/wolfman30/medcare-assistant/internal/reminders"
	"github.com/wolfman30/medcare-assistant/internal/scheduling"
	"github.com/wolfman30/medcare-assistant/internal/users"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

func main() {
	envErr := godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting medcare-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"dotenv", envErr == nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	reg := newRegistry()
	infra := bootstrap.Infra{
		AWS:      awsCfg,
		Registry: reg,
		Redis:    bootstrap.BuildRedisClient(ctx, cfg, logger, true),
	}
	if !cfg.UseMemoryStores {
		infra.Pool = bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
		infra.SQL = bootstrap.OpenTranscriptDB(ctx, cfg.DatabaseURL, logger)
	}
	defer closeInfra(infra)

	svc, err := bootstrap.BuildServices(ctx, cfg, infra, logger)
	if err != nil {
		logger.Error("failed to wire services", "error", err)
		os.Exit(1)
	}

	// The in-process queue is invisible to a separate worker, so the API
	// scans and delivers reminders itself.
	waitReminders := func() {}
	if cfg.UseMemoryQueue {
		waitReminders = bootstrap.StartReminders(ctx, svc, cfg, logger, true, true)
		logger.Info("inline reminder pipeline started")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      buildRouter(cfg, svc, reg, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	waitReminders()

	logger.Info("server stopped")
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func buildRouter(cfg *appconfig.Config, svc *bootstrap.Services, reg *prometheus.Registry, logger *logging.Logger) http.Handler {
	return router.New(&router.Config{
		Logger:               logger,
		Tokens:               svc.Tokens,
		AuthHandler:          auth.NewHandler(svc.Auth, logger),
		UsersHandler:         users.NewHandler(svc.Users, auth.BcryptHasher{}, logger),
		SchedulingHandler:    scheduling.NewHandler(svc.Scheduling, logger),
		PrescriptionsHandler: prescriptions.NewHandler(svc.Prescriptions, logger),
		ChatHandler:          chatbot.NewHandler(svc.Engine, svc.Transcript, logger),
		RemindersHandler:     reminders.NewHandler(svc.Inbox, logger),
		MetricsHandler:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		RateLimitRPS:         cfg.RateLimitRPS,
		RateLimitBurst:       cfg.RateLimitBurst,
	})
}

func closeInfra(infra bootstrap.Infra) {
	if infra.Pool != nil {
		infra.Pool.Close()
	}
	if infra.SQL != nil {
		_ = infra.SQL.Close()
	}
	if infra.Redis != nil {
		_ = infra.Redis.Close()
	}
}
