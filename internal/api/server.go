package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/doctor/config"
	"example.com/backstage/services/doctor/internal/metrics"
	"example.com/backstage/services/doctor/internal/registry"
	"example.com/backstage/services/doctor/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config     config.ServerConfig
	appName    string
	router     *gin.Engine
	httpServer *http.Server
	registry   *registry.Registry
	metrics    *metrics.Metrics
	tracer     *tracing.Tracer
	checks     map[string]HealthCheck
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, reg *registry.Registry, m *metrics.Metrics, tracer *tracing.Tracer, checks map[string]HealthCheck) *Server {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	appName := cfg.AppName
	if appName == "" {
		appName = "doctorApp"
	}

	server := &Server{
		config:   cfg.Server,
		appName:  appName,
		registry: reg,
		metrics:  m,
		tracer:   tracer,
		checks:   checks,
	}
	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	return server
}

// Router exposes the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRouter configures middleware and routes
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(RequestIDMiddleware())
	if app := s.tracer.Application(); app != nil {
		router.Use(TracingMiddleware(app)...)
	}
	if s.config.CorsEnabled {
		router.Use(CORSMiddleware(s.config.CorsOrigins, s.alertHeader(), s.errorHeader(), s.paramsHeader()))
	}
	router.Use(gin.Recovery())
	router.Use(LoggingMiddleware())
	router.Use(MetricsMiddleware(s.metrics))

	NewMetricsHandler(s.metrics, s.checks).RegisterRoutes(router)

	api := router.Group("/api")
	registerResource(s, api, "replies", s.registry.Replies)
	registerResource(s, api, "reviews", s.registry.Reviews)
	registerResource(s, api, "payment-settings", s.registry.PaymentSettings)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
