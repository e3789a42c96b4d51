package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"silo-backend/internal/metrics"
)

// NewRouter wires all API routes
func NewRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(durationMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/telemetry", h.HandleIngest)
		r.Get("/telemetry/{deviceID}", h.HandleGetTelemetry)

		r.Route("/actuators", func(r chi.Router) {
			r.Get("/", h.HandleListActuators)
			r.Post("/bulk-control", h.HandleBulkControl)
			r.Get("/{id}", h.HandleGetActuator)
			r.Post("/{id}/control", h.HandleControl)
			r.Put("/{id}/schedule", h.HandleSetSchedule)
		})

		r.Route("/silos/{deviceID}", func(r chi.Router) {
			r.Get("/", h.HandleGetDevice)
			r.Put("/config", h.HandleConfigureDevice)
			r.Get("/probes/compare", h.HandleCompareProbes)
			r.Get("/alerts", h.HandleRecentAlerts)
		})
	})

	r.Get("/health", h.HandleHealth)
	r.Get("/ws", h.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// durationMiddleware observes request latency per route pattern
func durationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
