package middleware

import (
	"errors"
	"net/http"

	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/service"
	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		// pricing rejections keep the upstream error list as-is
		var rejected *service.PricingRejected
		if errors.As(err, &rejected) {
			logger.Warn("pricing request rejected", "path", c.Request.URL.Path)
			c.JSON(http.StatusBadRequest, gin.H{"errors": rejected.Errors})
			return
		}

		appErr := apperrors.Wrap(err)

		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", appErr.Type,
			"client_ip", c.ClientIP(),
		}

		if appErr.HTTPStatus >= 500 {
			logger.LogError(c.Request.Context(), err, "Internal Server Error", logFields...)
		} else {
			logger.Warn(appErr.Message, logFields...)
		}

		c.JSON(appErr.HTTPStatus, appErr)
	}
}

// Recovery turns a panic into the generic 500 body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, apperrors.Internal(nil))
	})
}
