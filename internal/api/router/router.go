package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fairwaymarket/teesheet/internal/http/handlers"
	httpmiddleware "github.com/fairwaymarket/teesheet/internal/http/middleware"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	BookingsHandler *handlers.BookingsHandler
	IndexHandler    *handlers.IndexHandler
	MetricsHandler  http.Handler
	CORSOrigins     []string
	RateLimitPerSec float64
	RateLimitBurst  int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSOrigins))
	}
	if cfg.RateLimitPerSec > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/healthz", handlers.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.IndexHandler != nil {
		r.Post("/webhooks/index/{courseID}", cfg.IndexHandler.Run)
	}

	if cfg.BookingsHandler != nil {
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", cfg.BookingsHandler.Create)
			r.Delete("/{bookingID}", cfg.BookingsHandler.Cancel)
		})
	}

	return r
}
