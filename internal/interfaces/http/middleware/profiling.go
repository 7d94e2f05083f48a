package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
)

// health checks and docs are served without profiling labels
var profilingSkipSuffixes = []string{"/health"}

var profilingSkipPrefixes = []string{"/swagger"}

// Profiling attaches method, route and resource labels to the request so
// profiles can be sliced per endpoint. Labels use the route pattern, never the
// raw path, to keep invoice ids out of the label set.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || skipProfiling(route) {
			c.Next()
			return
		}

		labels := map[string]string{
			telemetry.ProfilingLabelMethod:   c.Request.Method,
			telemetry.ProfilingLabelRoute:    route,
			telemetry.ProfilingLabelResource: resourceFromRoute(route),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func skipProfiling(route string) bool {
	for _, suffix := range profilingSkipSuffixes {
		if strings.HasSuffix(route, suffix) {
			return true
		}
	}
	for _, prefix := range profilingSkipPrefixes {
		if strings.HasPrefix(route, prefix) {
			return true
		}
	}
	return false
}

// resourceFromRoute returns the first static segment after the api prefix,
// e.g. "/api/v1/invoices/:id/payments" -> "invoices".
func resourceFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) || strings.HasPrefix(part, ":") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
