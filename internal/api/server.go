package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattjoyce/orchestra-gw/internal/agent"
	"github.com/mattjoyce/orchestra-gw/internal/audit"
	"github.com/mattjoyce/orchestra-gw/internal/auth"
	"github.com/mattjoyce/orchestra-gw/internal/events"
	"github.com/mattjoyce/orchestra-gw/internal/task"
)

// Dispatcher defines the interface for action dispatch.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, parameters json.RawMessage, tenantID string) (any, error)
}

// SpendRecorder defines the interface for recording quota spend.
type SpendRecorder interface {
	Record(ctx context.Context, tenantID string, d time.Duration) error
}

// AuditLog defines the interface for audit persistence.
type AuditLog interface {
	Record(ctx context.Context, e audit.Entry) error
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// Config holds API server configuration
type Config struct {
	Listen string
	// APIKey is the legacy single bearer token (default tenant, full access).
	APIKey string
	// Tokens is an optional list of scoped bearer tokens.
	Tokens []auth.TokenConfig
}

// Server represents the HTTP API server
type Server struct {
	config    Config
	dispatch  Dispatcher
	tasks     *task.Executor
	registry  *agent.Registry
	auditLog  AuditLog
	spend     SpendRecorder
	events    *events.Hub
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance. auditLog and spend may be nil;
// the corresponding side effects are skipped.
func New(config Config, dispatch Dispatcher, tasks *task.Executor, registry *agent.Registry, auditLog AuditLog, spend SpendRecorder, hub *events.Hub, logger *slog.Logger) *Server {
	if hub == nil {
		hub = events.NewHub(256)
	}
	return &Server{
		config:    config,
		dispatch:  dispatch,
		tasks:     tasks,
		registry:  registry,
		auditLog:  auditLog,
		spend:     spend,
		events:    hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // actions and workflows run synchronously
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoints.
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	// Protected API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(s.requireScopes("actions:execute", "*")).Post("/actions", s.handleAction)
		r.With(s.requireScopes("actions:execute", "*")).Post("/messages", s.handleMessages)
		r.With(s.requireScopes("events:ro", "*")).Get("/events", s.handleEvents)
		r.With(s.requireScopes("agents:ro", "*")).Get("/agents", s.handleAgents)
		r.With(s.requireScopes("audit:ro", "*")).Get("/audit", s.handleAudit)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
