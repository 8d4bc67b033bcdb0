// Package server exposes the assistant over HTTP.
//
//	GET  /               health
//	POST /query          {"query": "...", "skip_cache": false}
//	GET  /mibs           loaded MIB modules
//	POST /mibs/upload    {"file_path": "..."}
//	POST /oid/resolve    {"name": "IF-MIB::ifDescr.1"}
//	POST /oid/translate  {"oid": "1.3.6.1.2.1.2.2.1.2.1"}
//	POST /clear-cache    ?prefix=
//	GET  /metrics        Prometheus exposition
//
// Request bodies may also be a bare JSON string holding the single field.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vpbank/snmp_assistant/models"
)

// AppName is reported by the health endpoint.
const AppName = "SNMP Assistant"

// Service is the subset of *app.App the handlers use.
type Service interface {
	Query(ctx context.Context, text string, skipCache bool) (models.StructuredResponse, error)
	LoadedMibs() []string
	AddMib(path string) (string, error)
	ResolveName(name string) (string, bool)
	TranslateOID(oid string) (string, bool)
	ClearCache(prefix string) int
}

// Config controls the HTTP server.
type Config struct {
	// Listen is the TCP address (default ":8000").
	Listen string

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration

	// Metrics serves /metrics. Optional.
	Metrics http.Handler
}

// Server routes HTTP requests to a Service.
type Server struct {
	cfg    Config
	svc    Service
	router *chi.Mux
	logger *slog.Logger
}

// New builds the router.
func New(cfg Config, svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8000"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{cfg: cfg, svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))
	r.Use(middleware.StripSlashes)

	r.Get("/", s.health)
	r.Post("/query", s.query)
	r.Route("/mibs", func(r chi.Router) {
		r.Get("/", s.listMibs)
		r.Post("/upload", s.uploadMib)
	})
	r.Route("/oid", func(r chi.Router) {
		r.Post("/resolve", s.resolveName)
		r.Post("/translate", s.translateOID)
	})
	r.Post("/clear-cache", s.clearCache)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, r, http.StatusNotFound, "NOT_FOUND", "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method Not Allowed")
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// no-op logger writer
// ─────────────────────────────────────────────────────────────────────────────

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
