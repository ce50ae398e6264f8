package router

import (
	"net/http"

	"staffhub-api/internal/handler"
	"staffhub-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler      *handler.Handler
	HRHandler    *handler.HRHandler
	AdminHandler *handler.AdminHandler
	Logger       *zap.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.HRHandler != nil {
			r.Get("/employees/{employeeID}", cfg.HRHandler.GetEmployee)

			r.Route("/tenants/{tenantID}", func(r chi.Router) {
				r.Get("/employees", cfg.HRHandler.ListEmployees)
				r.Put("/employees/{employeeID}/status", cfg.HRHandler.UpdateEmployeeStatus)
				r.Get("/analytics/{metric}", cfg.HRHandler.GetMetric)
				r.Get("/settings", cfg.HRHandler.GetSettings)
			})
		}

		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Post("/cache/warm", cfg.AdminHandler.WarmAll)
				r.Post("/cache/warm/{tenantID}", cfg.AdminHandler.WarmTenant)
				r.Delete("/cache/tenants/{tenantID}", cfg.AdminHandler.InvalidateTenant)
			})
		}
	})

	return r
}
