package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tickgate/tickgate/internal/pkg/apperrors"
	"github.com/tickgate/tickgate/internal/pkg/logger"
)

// ErrorHandler converts errors attached to the gin context into the
// standard JSON error envelope. Handlers call c.Error(err) and return.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		appErr := apperrors.Wrap(err)

		if appErr.HTTPStatus >= 500 {
			logger.Error("request failed",
				"method", c.Request.Method, "path", c.FullPath(), "error", err)
		}
		if !c.Writer.Written() {
			c.JSON(appErr.HTTPStatus, gin.H{"error": appErr})
		}
	}
}
