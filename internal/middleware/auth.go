package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/accounts/internal/logging"
	"github.com/thereayou/accounts/internal/services"
	"github.com/thereayou/accounts/pkg/auth"
)

const AuthContextKey = "authContext"

// Authenticator resolves a bearer token to the calling user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (services.AuthContext, error)
}

// AuthMiddleware rejects requests without a valid bearer token. Every
// failure produces the same 401 response.
func AuthMiddleware(authn Authenticator, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			unauthorized(c)
			return
		}

		ac, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			if services.KindOf(err) != services.KindUnauthorized {
				log.Error(c.Request.Context(), "authentication failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"status":  "error",
					"code":    http.StatusInternalServerError,
					"message": "internal server error",
				})
				return
			}
			log.Debug(c.Request.Context(), "request not authorized", "reason", err.Error())
			unauthorized(c)
			return
		}

		c.Set(AuthContextKey, ac)
		c.Next()
	}
}

// AuthFrom returns the AuthContext stored by AuthMiddleware.
func AuthFrom(c *gin.Context) (services.AuthContext, bool) {
	v, ok := c.Get(AuthContextKey)
	if !ok {
		return services.AuthContext{}, false
	}
	ac, ok := v.(services.AuthContext)
	return ac, ok
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  "error",
		"code":    http.StatusUnauthorized,
		"message": services.ErrUnauthorized.Message,
	})
}
