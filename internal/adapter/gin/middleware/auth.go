package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flyte-gateway/pkg/auth"
	"flyte-gateway/pkg/logger"
)

// TokenValidator checks session tokens.
type TokenValidator interface {
	Enabled() bool
	Validate(token string) (*auth.Claims, error)
}

// Auth reads an optional bearer token and puts its username on the request
// context. Requests without a token pass through; a bad token is rejected.
func Auth(tokens TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil || !tokens.Enabled() {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			raw, ok = strings.CutPrefix(header, "bearer ")
		}
		if !ok || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(raw))
		if err != nil {
			logger.WithContext(c.Request.Context(), log).Warn("rejected session token", zap.Error(err))
			abortUnauthorized(c)
			return
		}

		ctx := logger.WithUsername(c.Request.Context(), claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": "Invalid or expired token",
	})
}
