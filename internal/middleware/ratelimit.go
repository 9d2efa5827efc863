package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tickgate/tickgate/internal/pkg/apperrors"
)

// RateLimit applies a global token bucket across all callers. The
// tick engine is quota-bound on the exchange side, so a coarse global
// limit is enough.
func RateLimit(qps, burst int) gin.HandlerFunc {
	if qps <= 0 {
		qps = 20
	}
	if burst <= 0 {
		burst = qps * 2
	}
	limiter := rate.NewLimiter(rate.Limit(qps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": apperrors.New(apperrors.ErrInvalidRequest, "rate limit exceeded", nil)})
			return
		}
		c.Next()
	}
}
