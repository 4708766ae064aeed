// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yadava5/taskflow/internal/authctx"
	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/services"
)

type AuthMiddleware struct {
	log  *logger.Logger
	auth services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, auth services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "auth"), auth: auth}
}

// RequireAuth verifies the bearer token and attaches the principal to the
// request context. Requests without a valid token never reach the handler.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		principal, err := am.auth.VerifyAccessToken(token)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		ctx := authctx.WithPrincipal(c.Request.Context(), principal)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"message": message, "code": "unauthorized"},
	})
}
