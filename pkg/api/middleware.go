package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/deskfs/deskfs/internal/ratelimiter"
	"github.com/deskfs/deskfs/pkg/metrics"
)

// requestLogger logs each request completion with zap and feeds the metrics
// collector.
func requestLogger(logger *zap.Logger, m metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		m.ObserveRequest(c.Request.Method, route, status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("client", c.ClientIP()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// rateLimit rejects requests over the per-client token bucket with 429.
func rateLimit(limiter *ratelimiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				errorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// userIDHeader carries the external caller identity. No authentication is
// performed here; an upstream gateway is expected to have validated it.
const userIDHeader = "X-User-ID"

// callerID returns the caller identity from the request, or nil when absent.
func callerID(c *gin.Context) *string {
	id := c.GetHeader(userIDHeader)
	if id == "" {
		return nil
	}
	return &id
}
