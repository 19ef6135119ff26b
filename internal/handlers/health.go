package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"json4ai/internal/service"
)

type healthResponse struct {
	Status       string                     `json:"status"`
	Environment  string                     `json:"environment"`
	Dependencies []service.DependencyStatus `json:"dependencies"`
}

// Health reports liveness. A failing dependency degrades the status but the
// process is still up, so the response stays 200.
func (h HandlerSet) Health(c *gin.Context) {
	deps := h.dashboard.Dependencies(c.Request.Context())

	status := "ok"
	for _, dep := range deps {
		if !dep.Healthy {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:       status,
		Environment:  h.cfg.Environment,
		Dependencies: deps,
	})
}
