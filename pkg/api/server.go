// Package api serves the drawing archive over HTTP
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/ssargent/dwgkit/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

// NewRouter configures every route of the API. Routes under /api/v1 require
// the API key when one is configured.
func NewRouter(server *Server, registry *prometheus.Registry) chi.Router {
	metrics := server.metrics

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"ETag", "Content-Disposition", "X-Dwgkit-Notifications"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/health", metrics.InstrumentHandler("GET", "/health", server.handleHealth))

	r.Route("/api/v1", func(r chi.Router) {
		if server.config.APIKey != "" {
			r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(server.config.APIKey)))
		}

		r.Post("/documents", metrics.InstrumentHandler("POST", "/api/v1/documents", server.handleUpload))
		r.Get("/documents", metrics.InstrumentHandler("GET", "/api/v1/documents", server.handleList))
		r.Route("/documents/{id}", func(r chi.Router) {
			r.Get("/", metrics.InstrumentHandler("GET", "/api/v1/documents/{id}", server.handleGet))
			r.Delete("/", metrics.InstrumentHandler("DELETE", "/api/v1/documents/{id}", server.handleDelete))
			r.Get("/handles", metrics.InstrumentHandler("GET", "/api/v1/documents/{id}/handles", server.handleHandles))
			r.Get("/entities", metrics.InstrumentHandler("GET", "/api/v1/documents/{id}/entities", server.handleEntities))
			r.Get("/snapshot", metrics.InstrumentHandler("GET", "/api/v1/documents/{id}/snapshot", server.handleSnapshot))
			r.Get("/convert", metrics.InstrumentHandler("GET", "/api/v1/documents/{id}/convert", server.handleConvert))
		})
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, archive storage.Archive, config ServerConfig, logger logrus.FieldLogger, registry *prometheus.Registry) error {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	metrics := NewMetrics(registry)
	server := NewServer(archive, config, metrics, logger)
	server.refreshStats()

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(server, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("starting dwgkit API server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down dwgkit API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
