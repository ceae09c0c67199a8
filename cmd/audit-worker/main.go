package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/motorlote/motorlote-backend/internal/audit"
	"github.com/motorlote/motorlote-backend/pkg/config"
	"github.com/motorlote/motorlote-backend/pkg/db"
	"github.com/motorlote/motorlote-backend/pkg/instance"
	"github.com/motorlote/motorlote-backend/pkg/logger"
	"github.com/motorlote/motorlote-backend/pkg/metrics"
	"github.com/motorlote/motorlote-backend/pkg/migrate"
	"github.com/motorlote/motorlote-backend/pkg/outbox"
	"github.com/motorlote/motorlote-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "audit-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "audit-worker"

	logg = logger.New(logger.Options{
		ServiceName: "audit-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	registry := prometheus.NewRegistry()
	workerMetrics := metrics.NewWorkerMetrics(registry)

	service, err := NewService(ServiceParams{
		Config:  cfg,
		Logger:  logg,
		DB:      dbClient,
		PubSub:  pubsubClient,
		Outbox:  outbox.NewRepository(dbClient.DB()),
		Audit:   audit.NewRepository(dbClient.DB()),
		Metrics: workerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create audit worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "audit-worker",
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting audit worker")

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(":"+cfg.App.Port, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "metrics server stopped")
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "audit worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "audit worker shutting down gracefully")
}
