package middleware

import (
	"github.com/gin-gonic/gin"

	"json4ai/internal/models"
)

const principalKey = "principal"

// PrincipalFrom returns whichever principal the auth middleware attached.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	val, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	principal, ok := val.(models.Principal)
	return principal, ok
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	principal, ok := PrincipalFrom(c)
	if !ok {
		return models.User{}, false
	}
	user, ok := principal.(models.UserPrincipal)
	if !ok {
		return models.User{}, false
	}
	return user.User, true
}

func CurrentAdmin(c *gin.Context) (models.AdminPrincipal, bool) {
	principal, ok := PrincipalFrom(c)
	if !ok {
		return models.AdminPrincipal{}, false
	}
	admin, ok := principal.(models.AdminPrincipal)
	return admin, ok
}

func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDHeader)
}
