package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"json4ai/internal/apperror"
	"json4ai/internal/models"
)

var errMissingToken = apperror.Auth("missing_token", "bearer token required")

type UserAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.UserPrincipal, error)
}

// Auth requires a valid access token and attaches the resulting UserPrincipal.
func Auth(auth UserAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, errMissingToken)
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
