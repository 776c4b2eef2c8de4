package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/roovies/concert-reservation/internal/infrastructure/telemetry"
)

// Profiling runs the rest of the chain under pprof labels for the matched
// route and method, so Pyroscope can break CPU time down per endpoint.
// Paths in skip run unlabelled.
func Profiling(enabled bool, skip ...string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || matchesPath(c.Request.URL.Path, skip, []string{"/swagger"}) {
			c.Next()
			return
		}
		labels := telemetry.HTTPRequestLabels(route, c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
