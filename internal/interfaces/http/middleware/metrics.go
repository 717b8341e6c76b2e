package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request count and latency per route template. Unmatched
// routes share one label so path cardinality stays bounded.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

//Personal.AI order the ending
