package middleware

import (
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// StaffOnly admits Deaglo administrators. It must run after RequireUser.
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsStaff() {
			c.Error(apperrors.NewForbidden(""))
			c.Abort()
			return
		}
		c.Next()
	}
}
