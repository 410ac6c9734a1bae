// Package api provides HTTP handlers for the netload service.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/container-resource-predictor/netload/internal/loadtest"
	"github.com/container-resource-predictor/netload/internal/monitor"
	"github.com/container-resource-predictor/netload/internal/service"
)

// Handler provides HTTP handlers for the netload API.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new Handler backed by svc.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// MeasureRequest is the body of POST /api/v1/monitoring/measure.
type MeasureRequest struct {
	URL string `json:"url"`
}

// PacketLossRequest is the body of POST /api/v1/monitoring/packet-loss.
type PacketLossRequest struct {
	URL    string `json:"url"`
	Probes int    `json:"probes"`
}

// PacketLossResponse reports a standalone packet loss measurement.
type PacketLossResponse struct {
	URL        string  `json:"url"`
	Probes     int     `json:"probes"`
	PacketLoss float64 `json:"packet_loss"`
}

// RunListResponse lists recorded load-test runs.
type RunListResponse struct {
	Runs  []loadtest.Result `json:"runs"`
	Total int               `json:"total"`
}

// MetricsListResponse lists the monitor window.
type MetricsListResponse struct {
	Metrics []monitor.NetworkMetrics `json:"metrics"`
	Total   int                      `json:"total"`
}

// PostLoadTest handles POST /api/v1/load-test
func (h *Handler) PostLoadTest(c *gin.Context) {
	var cfg loadtest.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.RunLoadTest(c.Request.Context(), cfg)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetRuns handles GET /api/v1/load-test/runs
// Optional query: since=<RFC3339>
func (h *Handler) GetRuns(c *gin.Context) {
	var runs []loadtest.Result
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
			return
		}
		runs = h.svc.ListRunsSince(since)
	} else {
		runs = h.svc.ListRuns()
	}
	c.JSON(http.StatusOK, RunListResponse{Runs: runs, Total: len(runs)})
}

// GetRun handles GET /api/v1/load-test/runs/:id
// The id "latest" returns the most recent run.
func (h *Handler) GetRun(c *gin.Context) {
	var (
		run loadtest.Result
		ok  bool
	)
	if id := c.Param("id"); id == "latest" {
		run, ok = h.svc.LatestRun()
	} else {
		run, ok = h.svc.GetRun(id)
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// PostStartMonitoring handles POST /api/v1/monitoring/start
func (h *Handler) PostStartMonitoring(c *gin.Context) {
	cfg := monitor.DefaultConfig()
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.StartNetworkMonitoring(cfg); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "monitoring started",
		"config":    cfg,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// PostStopMonitoring handles POST /api/v1/monitoring/stop
func (h *Handler) PostStopMonitoring(c *gin.Context) {
	h.svc.StopNetworkMonitoring()
	c.JSON(http.StatusOK, gin.H{
		"message":   "monitoring stopped",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetMonitoringStatus handles GET /api/v1/monitoring/status
func (h *Handler) GetMonitoringStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.MonitoringStatus())
}

// GetMetrics handles GET /api/v1/monitoring/metrics
func (h *Handler) GetMetrics(c *gin.Context) {
	metrics := h.svc.GetNetworkMetrics()
	c.JSON(http.StatusOK, MetricsListResponse{Metrics: metrics, Total: len(metrics)})
}

// PostMetrics handles POST /api/v1/monitoring/metrics
func (h *Handler) PostMetrics(c *gin.Context) {
	var sample monitor.NetworkMetrics
	if err := c.ShouldBindJSON(&sample); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.UpdateMetrics(sample)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// PostMeasure handles POST /api/v1/monitoring/measure
func (h *Handler) PostMeasure(c *gin.Context) {
	var req MeasureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sample, err := h.svc.MeasureNetworkMetrics(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sample)
}

// PostPacketLoss handles POST /api/v1/monitoring/packet-loss
func (h *Handler) PostPacketLoss(c *gin.Context) {
	req := PacketLossRequest{Probes: monitor.DefaultProbeCount}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loss, err := h.svc.MeasurePacketLoss(c.Request.Context(), req.URL, req.Probes)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, PacketLossResponse{URL: req.URL, Probes: req.Probes, PacketLoss: loss})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, loadtest.ErrInvalidConfig),
		errors.Is(err, monitor.ErrInvalidConfig),
		errors.Is(err, monitor.ErrInvalidSample):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// RegisterRoutes registers all netload API routes.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/load-test", h.PostLoadTest)
		api.GET("/load-test/runs", h.GetRuns)
		api.GET("/load-test/runs/:id", h.GetRun)

		api.POST("/monitoring/start", h.PostStartMonitoring)
		api.POST("/monitoring/stop", h.PostStopMonitoring)
		api.GET("/monitoring/status", h.GetMonitoringStatus)
		api.GET("/monitoring/metrics", h.GetMetrics)
		api.POST("/monitoring/metrics", h.PostMetrics)
		api.POST("/monitoring/measure", h.PostMeasure)
		api.POST("/monitoring/packet-loss", h.PostPacketLoss)
	}
}
