package middleware

import (
	"strconv"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records answerkey_http_* for every request. Unmatched routes
// share one path label so scanners cannot blow up cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseBytes.WithLabelValues(path).Observe(float64(size))
		}
	}
}
