package middleware

import (
	"strconv"
	"time"

	"anoa.com/notifiq/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request latency for each HTTP request.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.APILatency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
