package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/motorlote/motorlote-backend/api/controllers"
	reservationcontrollers "github.com/motorlote/motorlote-backend/api/controllers/reservations"
	salecontrollers "github.com/motorlote/motorlote-backend/api/controllers/sales"
	vehiclecontrollers "github.com/motorlote/motorlote-backend/api/controllers/vehicles"
	"github.com/motorlote/motorlote-backend/api/middleware"
	"github.com/motorlote/motorlote-backend/internal/reservations"
	"github.com/motorlote/motorlote-backend/internal/sales"
	"github.com/motorlote/motorlote-backend/internal/vehicles"
	"github.com/motorlote/motorlote-backend/pkg/config"
	"github.com/motorlote/motorlote-backend/pkg/db"
	"github.com/motorlote/motorlote-backend/pkg/logger"
	"github.com/motorlote/motorlote-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	vehiclesService vehicles.Service,
	reservationsService reservations.Service,
	salesService sales.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		// Typed nils satisfy the middleware's store interface, so only
		// wire the limiter when a client actually exists.
		if redisClient != nil {
			policy := middleware.NewRateLimitPolicy(
				"mutations",
				cfg.RateLimit.Window,
				cfg.RateLimit.IPLimit,
				cfg.RateLimit.ActorLimit,
			)
			r.Use(middleware.RateLimit(policy, redisClient, logg))
		}
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", vehiclecontrollers.List(vehiclesService, logg))
			r.Get("/{vehicleId}", vehiclecontrollers.Detail(vehiclesService, logg))
			r.Post("/{vehicleId}/stage", vehiclecontrollers.TransitionStage(vehiclesService, logg))
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", reservationcontrollers.List(reservationsService, logg))
			r.Post("/", reservationcontrollers.Create(reservationsService, logg))
			r.Get("/{reservationId}", reservationcontrollers.Detail(reservationsService, logg))
			r.Post("/{reservationId}/cancel", reservationcontrollers.Cancel(reservationsService, logg))
			r.Post("/{reservationId}/convert", reservationcontrollers.Convert(reservationsService, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", salecontrollers.List(salesService, logg))
			r.Post("/", salecontrollers.Create(salesService, logg))
			r.Get("/{saleId}", salecontrollers.Detail(salesService, logg))
			r.Post("/{saleId}/void", salecontrollers.Void(salesService, logg))
		})
	})

	return r
}
