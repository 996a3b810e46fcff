// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihandler "github.com/newthinker/signalbook/internal/api/handler/api"
	"github.com/newthinker/signalbook/internal/api/job"
	"github.com/newthinker/signalbook/internal/api/middleware"
	"github.com/newthinker/signalbook/internal/metrics"
	"github.com/newthinker/signalbook/internal/notifier"
	"github.com/newthinker/signalbook/internal/storage/archive"
	"github.com/newthinker/signalbook/internal/storage/signal"
)

// Server represents the signalbook HTTP server
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	jobs       *job.Store
	notifiers  *notifier.Registry
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	APIKey       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MetricsPath  string
	MaxJobs      int
	JobTTL       time.Duration
}

// Dependencies are the components the routes serve.
type Dependencies struct {
	SignalStore signal.Store
	Metrics     *metrics.Registry  // nil disables /metrics and request metrics
	Archiver    *archive.Archiver  // nil disables the archive routes
	Notifiers   *notifier.Registry // nil disables lifecycle notifications
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.SignalStore == nil {
		return nil, fmt.Errorf("signal store required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.MaxJobs == 0 {
		cfg.MaxJobs = 100
	}
	if cfg.JobTTL == 0 {
		cfg.JobTTL = time.Hour
	}

	mux := http.NewServeMux()

	s := &Server{
		logger:    logger,
		mux:       mux,
		jobs:      job.NewStore(cfg.MaxJobs, cfg.JobTTL),
		notifiers: deps.Notifiers,
	}
	s.setupRoutes(cfg, deps)

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	signals := apihandler.NewSignalsHandler(deps.SignalStore, deps.Metrics, s.logger).WithNotifiers(deps.Notifiers)
	stats := apihandler.NewStatsHandler(deps.SignalStore)
	auth := middleware.APIKeyAuth(cfg.APIKey)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/v1/signals", signals.List)
	s.mux.HandleFunc("GET /api/v1/signals/{id}", func(w http.ResponseWriter, r *http.Request) {
		signals.GetByID(w, r, r.PathValue("id"))
	})
	s.mux.HandleFunc("GET /api/v1/stats", stats.Get)

	s.mux.Handle("POST /api/v1/signals", auth(http.HandlerFunc(signals.Create)))
	s.mux.Handle("POST /api/v1/signals/{id}/actions", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signals.AppendAction(w, r, r.PathValue("id"))
	})))

	if deps.Archiver != nil {
		archiveHandler := apihandler.NewArchiveHandler(deps.Archiver, deps.SignalStore, s.jobs, deps.Metrics, s.logger)
		s.mux.Handle("POST /api/v1/archive", auth(http.HandlerFunc(archiveHandler.Start)))
		s.mux.HandleFunc("GET /api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
			archiveHandler.GetJob(w, r, r.PathValue("id"))
		})
	}

	if deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.jobs.Wait()
	if s.notifiers != nil {
		s.notifiers.Wait()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
