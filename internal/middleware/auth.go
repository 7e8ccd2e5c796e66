package middleware

import (
	"errors"
	"net/http"

	"chameleon-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware for downstream handlers.
const (
	CtxSubjectHash   = "subject_hash"
	CtxDisplayHandle = "display_handle"
)

// AuthMiddleware creates a Gin middleware that validates the Bearer session
// token. Authentication failures are 403 and abort the request before any
// handler side effect can occur.
func AuthMiddleware(sessions service.Sessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := sessions.Validate(c.GetHeader("Authorization"))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrMissingAuth):
				c.JSON(http.StatusForbidden, gin.H{"error": "Authorization header format must be Bearer <token>"})
			case errors.Is(err, service.ErrSessionExpired):
				c.JSON(http.StatusForbidden, gin.H{"error": "Session expired"})
			default:
				logger.Error("Invalid session token", zap.Error(err))
				c.JSON(http.StatusForbidden, gin.H{"error": "Invalid session token"})
			}
			c.Abort()
			return
		}

		c.Set(CtxSubjectHash, claims.SubjectHash)
		c.Set(CtxDisplayHandle, claims.DisplayHandle)

		c.Next()
	}
}
