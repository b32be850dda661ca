package middleware

import (
	"strings"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/services"
	"dataplug/pkg/errors"
	"dataplug/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	identityKey    = "identity"
	sessionFailKey = "session_error"
)

// SessionMiddleware resolves an optional bearer session token. A missing,
// malformed or expired token leaves the request anonymous; RequireSession
// decides whether that is acceptable.
func SessionMiddleware(sessions services.SessionService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.Set(sessionFailKey, "invalid authorization header format")
			c.Next()
			return
		}

		identity, err := sessions.ResolveToken(parts[1])
		if err != nil {
			log.Infow("session token rejected, continuing anonymously",
				"path", c.Request.URL.Path,
				"error", err,
			)
			c.Set(sessionFailKey, err.Error())
			c.Next()
			return
		}

		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(logger.WithAccountID(c.Request.Context(), string(identity.AccountID)))
		c.Next()
	}
}

// RequireSession rejects anonymous requests, reporting why a presented
// token was not accepted.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFrom(c) == nil {
			message := "authentication required"
			if reason := c.GetString(sessionFailKey); reason != "" {
				message = reason
			}
			abortWithError(c, errors.NewUnauthorizedError(message))
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the caller resolved by SessionMiddleware, or nil.
func IdentityFrom(c *gin.Context) *domain.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*domain.Identity)
	return identity
}
