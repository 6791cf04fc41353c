// Package server exposes the scoring and forecasting engine over HTTP.
// Responses use a uniform {data, error} envelope.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/revenue-intel/internal/db"
	"github.com/sells-group/revenue-intel/internal/forecast"
	"github.com/sells-group/revenue-intel/internal/scenario"
	"github.com/sells-group/revenue-intel/internal/settings"
)

// Server holds the request-scoped collaborators.
type Server struct {
	pool     db.Pool
	defaults settings.Settings
	agg      *forecast.Aggregator
	sim      *scenario.Simulator
	origins  []string
}

// New wires a Server. pool may be nil; handlers then answer db_unavailable
// instead of panicking, which keeps /health alive while the store is down.
func New(pool db.Pool, defaults settings.Settings, origins []string) *Server {
	agg := forecast.New(pool, defaults)
	return &Server{
		pool:     pool,
		defaults: defaults,
		agg:      agg,
		sim:      scenario.New(agg),
		origins:  origins,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Get("/settings", s.handleGetSettings)
	r.Get("/settings/defaults", s.handleGetDefaults)
	r.Put("/settings", s.handlePutSettings)

	r.Get("/forecast", s.handleForecast)
	r.Get("/forecast/export", s.handleForecastExport)
	r.Get("/deal-score/{dealID}", s.handleDealScore)
	r.Get("/rep-performance", s.handleRepPerformance)

	r.Post("/scenario", s.handleScenario)
	r.Post("/backfill", s.handleBackfill)

	return r
}

// requirePool rejects the request with db_unavailable when no store is wired.
func (s *Server) requirePool(w http.ResponseWriter) bool {
	if s.pool == nil {
		respondError(w, http.StatusInternalServerError, codeDBUnavailable, "database not available")
		return false
	}
	return true
}
