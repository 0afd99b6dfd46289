// Package api exposes the drive service over HTTP using gin.
//
// Handlers stay thin: they parse and bind requests, call the service, and
// translate sentinel errors into status codes. All business rules live in
// pkg/service.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/deskfs/deskfs/internal/ratelimiter"
	"github.com/deskfs/deskfs/pkg/gc"
	"github.com/deskfs/deskfs/pkg/metrics"
	"github.com/deskfs/deskfs/pkg/service"
)

// Options configures the HTTP server.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// RateLimitEnabled turns per-client request throttling on.
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// MetricsEnabled exposes Prometheus metrics at MetricsPath.
	MetricsEnabled bool
	MetricsPath    string
}

// Server is the HTTP front end.
type Server struct {
	svc       *service.Service
	collector *gc.Collector
	logger    *zap.Logger
	metrics   metrics.HTTPMetrics
	httpSrv   *http.Server
	opts      Options
}

// NewServer builds the router and wraps it in an HTTP server.
//
// collector may be nil; the manual collection endpoint then returns 404.
func NewServer(svc *service.Service, collector *gc.Collector, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		svc:       svc,
		collector: collector,
		logger:    logger,
		opts:      opts,
	}

	s.httpSrv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// buildRouter assembles middleware and routes.
func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	httpMetrics := metrics.NewHTTPMetrics()
	router.Use(requestLogger(s.logger, httpMetrics))
	s.metrics = httpMetrics

	if s.opts.RateLimitEnabled {
		router.Use(rateLimit(ratelimiter.New(s.opts.RateLimitRPS, s.opts.RateLimitBurst)))
	}

	router.GET("/healthz", s.handleHealth)

	if s.opts.MetricsEnabled && metrics.IsEnabled() {
		path := s.opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})))
	}

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/browse/*path", s.handleBrowsePath)

		itemsGroup := apiGroup.Group("/items")
		{
			itemsGroup.POST("/upload", s.handleUpload)
			itemsGroup.POST("/fake", s.handleCreateFake)
			itemsGroup.POST("/folder", s.handleCreateFolder)
			itemsGroup.PATCH("/:id", s.handleUpdate)
			itemsGroup.DELETE("/:id", s.handleDelete)
			itemsGroup.GET("/:id/download", s.handleDownload)
			itemsGroup.GET("/:id/view", s.handleView)
		}

		adminGroup := apiGroup.Group("/admin")
		{
			adminGroup.GET("/items", s.handleAdminItems)
			adminGroup.GET("/stats", s.handleStats)
			adminGroup.POST("/gc", s.handleRunGC)
		}
	}

	return router
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.opts.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully drains in-flight requests, bounded by the configured
// shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ShutdownTimeout)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}
