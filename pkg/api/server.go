// Package api exposes the stream decoder and the session archive over HTTP.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ACascarino/pat/pkg/archive"
)

// Router builds the HTTP routing tree for a server instance.
func Router(server *Server, metrics *Metrics) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(server.config.APIKey)))

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		r.Post("/decode", metrics.InstrumentHandler("POST", "/api/v1/decode", server.handleDecode))

		r.Post("/sessions", metrics.InstrumentHandler("POST", "/api/v1/sessions", server.handleStoreSession))
		r.Get("/sessions", metrics.InstrumentHandler("GET", "/api/v1/sessions", server.handleListSessions))
		r.Get("/sessions/{id}", metrics.InstrumentHandler("GET", "/api/v1/sessions/{id}", server.handleGetSession))
		r.Get("/sessions/{id}/rows", metrics.InstrumentHandler("GET", "/api/v1/sessions/{id}/rows", server.handleSessionRows))
		r.Delete("/sessions/{id}", metrics.InstrumentHandler("DELETE", "/api/v1/sessions/{id}", server.handleDeleteSession))
	})

	return r
}

// StartServer starts the HTTP server with all routes configured and blocks
// until it fails.
func StartServer(arc *archive.Archive, config ServerConfig, logger *zap.Logger) error {
	metrics := NewMetrics(nil)
	server := NewServer(arc, config, metrics, logger)
	router := Router(server, metrics)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	logger.Info("starting decode service",
		zap.String("addr", addr),
		zap.Bool("auth", config.APIKey != ""))
	return http.ListenAndServe(addr, router)
}
