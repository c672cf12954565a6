package middleware

import (
	"time"

	"github.com/agamify/server/internal/shared/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics returns a middleware that records HTTP metrics. Requests that
// do not match a registered route share a single "unmatched" path label
// to keep the series cardinality bounded.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "/metrics" || path == "/health" {
			c.Next()
			return
		}
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		m.HTTPRequestsInFlight.Inc()
		start := time.Now()

		c.Next()

		m.HTTPRequestsInFlight.Dec()
		m.RecordHTTPRequest(method, path, c.Writer.Status(), time.Since(start))
	}
}
