package middleware

import (
	"context"
	"strings"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

const (
	HeaderAuthorization = "Authorization"
	QueryToken          = "token"
	ContextUserKey      = "user"

	MsgInvalidToken   = "Given token not valid for any token type"
	MsgUnverifiedUser = "Unverified User"
)

// Authenticator resolves an access token to its live user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*model.User, error)
}

// bearerToken reads "Authorization: Bearer <jwt>". Websocket clients cannot
// set headers, so the token query parameter is accepted as well.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader(HeaderAuthorization); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query(QueryToken)
}

// IdentifyUser attaches the caller when a token is present. It never rejects;
// RequireUser does.
func IdentifyUser(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.Next()
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			c.Set(contextTokenRejected, true)
			c.Next()
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

const contextTokenRejected = "token_rejected"

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}
		if c.GetBool(contextTokenRejected) {
			c.Error(apperrors.NewUnauthorized(MsgInvalidToken))
		} else {
			c.Error(apperrors.NewUnauthorized(""))
		}
		c.Abort()
	}
}

// RequireVerified lets through users who confirmed their e-mail address.
func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsVerified {
			c.Error(apperrors.NewForbidden(MsgUnverifiedUser))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated caller, or nil.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
