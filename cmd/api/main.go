package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/motorlote/motorlote-backend/api/routes"
	"github.com/motorlote/motorlote-backend/internal/catalog"
	"github.com/motorlote/motorlote-backend/internal/reservations"
	"github.com/motorlote/motorlote-backend/internal/sales"
	"github.com/motorlote/motorlote-backend/internal/vehicles"
	"github.com/motorlote/motorlote-backend/pkg/config"
	"github.com/motorlote/motorlote-backend/pkg/db"
	"github.com/motorlote/motorlote-backend/pkg/logger"
	"github.com/motorlote/motorlote-backend/pkg/migrate"
	"github.com/motorlote/motorlote-backend/pkg/outbox"
	"github.com/motorlote/motorlote-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	vehiclesRepo := vehicles.NewRepository(dbClient.DB())
	reservationsRepo := reservations.NewRepository(dbClient.DB())
	salesRepo := sales.NewRepository(dbClient.DB())

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	vehiclesService, err := vehicles.NewService(vehiclesRepo, catalogRepo, dbClient, outboxService, reservationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create vehicles service", err)
		os.Exit(1)
	}

	salesService, err := sales.NewService(salesRepo, catalogRepo, vehiclesRepo, vehiclesService, reservationsRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	reservationsService, err := reservations.NewService(reservationsRepo, catalogRepo, vehiclesRepo, vehiclesService, salesService, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservations service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, vehiclesService, reservationsService, salesService),
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	closeErr := multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if closeErr != nil {
		logg.Error(ctx, "shutdown finished with errors", closeErr)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
