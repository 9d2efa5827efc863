package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tickgate/tickgate/internal/pkg/metrics"
)

// Metrics records per-endpoint request latency.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.LatencyBucket.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}
