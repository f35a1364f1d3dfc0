package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/homereel/media-library/internal/service"
)

const (
	unmatchedRoute = "unmatched"
	// clientClosedStatus labels requests whose client disconnected before the
	// response finished, usually a player seeking away from a stream.
	clientClosedStatus = 499
)

// Probe and scrape routes are left out of request metrics.
var unobservedRoutes = map[string]struct{}{
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
}

// Metrics records request count and latency per route template. Streams are
// observed once the body has been sent.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, skip := unobservedRoutes[route]; skip {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		if errors.Is(c.Request.Context().Err(), context.Canceled) {
			status = clientClosedStatus
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, status, time.Since(start))
	}
}
