package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"json4ai/internal/config"
	"json4ai/internal/security"
)

// CORS reflects allowed origins with credentials, since the admin session
// rides on a cookie. An empty allow-list admits any origin outside production.
func CORS(cfg *config.AppConfig) gin.HandlerFunc {
	allowAll := len(cfg.AllowCORSOrigins) == 0 && !cfg.IsProduction()
	originMap := make(map[string]struct{}, len(cfg.AllowCORSOrigins))
	for _, origin := range cfg.AllowCORSOrigins {
		originMap[strings.TrimSpace(origin)] = struct{}{}
	}

	headers := []string{"Authorization", "Content-Type", requestIDHeader, security.HeaderPaymentDate, security.HeaderPaymentSignature}
	if cfg.Admin.HeaderName != "" {
		headers = append(headers, cfg.Admin.HeaderName)
	}
	allowHeaders := strings.Join(headers, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok || allowAll {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Expose-Headers", requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
