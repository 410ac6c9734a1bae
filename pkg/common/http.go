// Package common provides the HTTP server, metrics and environment helpers
// shared by netload components.
package common

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps an HTTP server with common functionality.
type Server struct {
	router   *gin.Engine
	server   *http.Server
	registry *prometheus.Registry
	metrics  *Metrics
	name     string
}

// NewServer creates a new HTTP server with standard endpoints and its own
// Prometheus registry.
func NewServer(name string, port int) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   router,
		name:     name,
		registry: registry,
		metrics:  NewMetrics(name, registry),
		server: &http.Server{
			Addr:        fmt.Sprintf(":%d", port),
			Handler:     router,
			ReadTimeout: 10 * time.Second,
			// No WriteTimeout: load-test responses are written after the run.
		},
	}

	router.Use(s.instrument())
	s.registerStandardEndpoints()

	return s
}

// registerStandardEndpoints adds health, ready, and metrics endpoints.
func (s *Server) registerStandardEndpoints() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/ready", s.readyHandler)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

// instrument records request counts and latency per route.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		s.metrics.APIRequestLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"component": s.name,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) readyHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ready":     true,
		"component": s.name,
		"timestamp": time.Now().UTC(),
	})
}

// Router returns the underlying gin router for adding custom routes.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Registry returns the registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.metrics.SetReady()
	log.Printf("[%s] Starting server on %s", s.name, s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.metrics.SetNotReady()
	log.Printf("[%s] Shutting down server", s.name)
	return s.server.Shutdown(ctx)
}

// RunWithGracefulShutdown starts the server and blocks until SIGINT or
// SIGTERM, then drains outstanding requests.
func (s *Server) RunWithGracefulShutdown() {
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[%s] Server error: %v", s.name, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[%s] Received shutdown signal", s.name)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Fatalf("[%s] Forced shutdown: %v", s.name, err)
	}

	log.Printf("[%s] Server stopped", s.name)
}
