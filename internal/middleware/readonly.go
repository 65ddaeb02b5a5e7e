package middleware

import (
	"net/http"
	"strings"

	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

const MsgReadOnly = "Service is in read-only mode"

// ReadOnlyMiddleware rejects writes during maintenance. Signing in and
// refreshing tokens keep working so clients can still browse.
func ReadOnlyMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		if strings.HasSuffix(path, "/auth/signin/") || strings.HasSuffix(path, "/auth/refresh/") {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			c.Error(apperrors.New(apperrors.ErrUnavailable, MsgReadOnly, nil))
			c.Abort()
		}
	}
}
