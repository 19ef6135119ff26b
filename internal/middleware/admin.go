package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"json4ai/internal/config"
	"json4ai/internal/models"
)

type AdminAuthenticator interface {
	Authenticate(ctx context.Context, secret string) (models.AdminPrincipal, error)
}

// RequireAdmin gates admin routes on a live admin session. Each accepted
// request counts as activity for the session.
func RequireAdmin(admins AdminAuthenticator, cfg config.AdminConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := admins.Authenticate(c.Request.Context(), AdminSecret(c, cfg))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// AdminSecret reads the session secret from the cookie, falling back to the header.
func AdminSecret(c *gin.Context, cfg config.AdminConfig) string {
	if cfg.CookieName != "" {
		if secret, err := c.Cookie(cfg.CookieName); err == nil && secret != "" {
			return secret
		}
	}
	if cfg.HeaderName != "" {
		return strings.TrimSpace(c.GetHeader(cfg.HeaderName))
	}
	return ""
}
