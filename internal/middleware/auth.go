package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/tickgate/tickgate/internal/pkg/apperrors"
)

const (
	HeaderAdminKey   = "X-Admin-Key"
	HeaderCronSecret = "X-Cron-Secret"
)

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Admin guards admin-only endpoints with a shared header key. An
// empty configured key disables the surface entirely.
func Admin(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" || !constantTimeEqual(c.GetHeader(HeaderAdminKey), adminKey) {
			c.AbortWithStatusJSON(401, apperrors.New(apperrors.ErrAuthFailed, "admin key required", nil))
			return
		}
		c.Next()
	}
}

// CronOrAdmin admits external schedulers by cron secret or operators
// by admin key.
func CronOrAdmin(cronSecret, adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cronSecret != "" && constantTimeEqual(c.GetHeader(HeaderCronSecret), cronSecret) {
			c.Next()
			return
		}
		if adminKey != "" && constantTimeEqual(c.GetHeader(HeaderAdminKey), adminKey) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(401, apperrors.New(apperrors.ErrAuthFailed, "cron secret or admin key required", nil))
	}
}
