package api

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"example.com/backstage/services/doctor/internal/metrics"
)

// HealthCheck probes one dependency
type HealthCheck func(c *gin.Context) error

// MetricsHandler serves /metrics and /health
type MetricsHandler struct {
	metrics *metrics.Metrics
	checks  map[string]HealthCheck
}

// NewMetricsHandler creates a new metrics handler. checks are probed on
// every /health request.
func NewMetricsHandler(m *metrics.Metrics, checks map[string]HealthCheck) *MetricsHandler {
	return &MetricsHandler{metrics: m, checks: checks}
}

// HandleGetMetrics returns all metrics
func (h *MetricsHandler) HandleGetMetrics(c *gin.Context) {
	h.metrics.SetGauge(metrics.GaugeGoroutines, int64(runtime.NumGoroutine()))
	c.JSON(http.StatusOK, h.metrics.GetAllMetrics())
}

// HandleGetHealthCheck probes dependencies and reports overall health
func (h *MetricsHandler) HandleGetHealthCheck(c *gin.Context) {
	for name, check := range h.checks {
		h.metrics.SetHealth(name, check(c) == nil)
	}

	details := h.metrics.GetHealthChecks()
	healthy := h.metrics.Healthy()

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":  healthy,
		"details": details,
	})
}

// RegisterRoutes registers the handler's routes
func (h *MetricsHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/metrics", h.HandleGetMetrics)
	router.GET("/health", h.HandleGetHealthCheck)
}
