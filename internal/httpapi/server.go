// Package httpapi serves the bookmark store over a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nikbrunner/marks/internal/config"
	"github.com/nikbrunner/marks/internal/httpapi/mw"
	"github.com/nikbrunner/marks/internal/logger"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http   *http.Server
	logger logger.Logger
}

// New builds the HTTP server.
func New(cfg config.ServerConfig, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	s := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewHandler(cfg, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return &Server{http: s, logger: d.Logger}
}

// NewHandler builds the router with its middleware stack and routes.
func NewHandler(cfg config.ServerConfig, d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.StartTime.IsZero() {
		d.StartTime = time.Now()
	}

	r := chi.NewRouter()

	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(mw.Log(d.Logger))
	if d.Metrics != nil {
		r.Use(mw.Metrics(d.Metrics))
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match", "X-Request-ID"},
			ExposedHeaders:   []string{"ETag", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	registerRoutes(r, d)
	return r
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	// http.ErrServerClosed is expected on graceful shutdown.
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	return s.http.Shutdown(ctx)
}
