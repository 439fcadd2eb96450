package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neoosi/neoosi-core/internal/core/ports/driving"
	"github.com/neoosi/neoosi-core/internal/observability"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	authService  driving.AuthService
	assistant    driving.AssistantService
	indexService driving.IndexService
	taskService  driving.TaskService

	// Infrastructure
	metrics     *observability.Metrics
	gatherer    prometheus.Gatherer
	corsOrigins []string
	checks      []readinessCheck
}

type readinessCheck struct {
	name   string
	pinger Pinger
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	Version     string
	CORSOrigins []string

	// Gatherer backs GET /metrics; defaults to prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        8080,
		Version:     "dev",
		CORSOrigins: []string{"*"},
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	assistant driving.AssistantService,
	indexService driving.IndexService,
	taskService driving.TaskService,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router:       http.NewServeMux(),
		version:      cfg.Version,
		logger:       logger,
		authService:  authService,
		assistant:    assistant,
		indexService: indexService,
		taskService:  taskService,
		metrics:      metrics,
		gatherer:     gatherer,
		corsOrigins:  cfg.CORSOrigins,
	}

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// Answers can wait through generation retries and the fallback backend
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// AddReadinessCheck registers a dependency pinged by GET /ready
func (s *Server) AddReadinessCheck(name string, p Pinger) {
	if p == nil {
		return
	}
	s.checks = append(s.checks, readinessCheck{name: name, pinger: p})
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = NewMetricsMiddleware(s.metrics).Handler(h)
	h = NewCORSMiddleware(s.corsOrigins).Handler(h)
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Assistant endpoints (authenticated)
	s.router.HandleFunc("GET /api/v1/categories", s.handleCategories)
	s.router.Handle("POST /api/v1/ai/chat",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleChat)))
	s.router.Handle("GET /api/v1/ai/chat/history",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleChatHistory)))

	// Index administration (admin-only)
	s.router.Handle("GET /api/v1/admin/index",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleIndexStatus))))
	s.router.Handle("POST /api/v1/admin/index/rebuild",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleRebuildIndex))))
	s.router.Handle("GET /api/v1/admin/tasks/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleGetTask))))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
