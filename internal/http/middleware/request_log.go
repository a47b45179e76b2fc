package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/paperlens-backend/internal/platform/ctxutil"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

// quietRoutes are probed by load balancers and scrapers every few seconds.
var quietRoutes = map[string]bool{
	"/healthcheck": true,
	"/readyz":      true,
	"/metrics":     true,
}

// RequestLogger writes one access log line per request, at warn for 4xx and
// error for 5xx. Successful probes are not logged; event streams log their
// lifetime at debug.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if quietRoutes[route] && status < 400 {
			return
		}

		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, "resource_id", id)
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, "error", last.Error())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case isEventStream(route):
			log.Debug("SSE stream ended", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
