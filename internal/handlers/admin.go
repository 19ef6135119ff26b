package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"json4ai/internal/middleware"
	"json4ai/internal/models"
	"json4ai/internal/repository"
	"json4ai/internal/service"
)

type adminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type adminSessionResponse struct {
	SessionID    string       `json:"sessionId"`
	SessionToken string       `json:"sessionToken,omitempty"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	IdleTimeout  int64        `json:"idleTimeoutSeconds"`
	Admin        userResponse `json:"admin"`
}

func (h HandlerSet) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.adminService.Login(c.Request.Context(), service.AdminLoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.setAdminCookie(c, result.Secret, int(h.cfg.Admin.MaxLifetime.Seconds()))

	resp := adminSessionResponse{
		SessionID:   result.Session.ID,
		ExpiresAt:   result.Session.ExpiresAt,
		IdleTimeout: int64(h.cfg.Admin.IdleTTL.Seconds()),
		Admin:       newUserResponse(result.Admin),
	}
	// Header transport needs the secret in the body; cookie-only deployments keep it HttpOnly.
	if h.cfg.Admin.HeaderName != "" {
		resp.SessionToken = result.Secret
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) AdminSessionStatus(c *gin.Context) {
	status, err := h.adminService.Status(c.Request.Context(), middleware.AdminSecret(c, h.cfg.Admin))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"active":              status.Active,
		"remainingTtlSeconds": int64(status.RemainingTTL.Seconds()),
	}
	if status.Active {
		resp["expiresAt"] = status.ExpiresAt
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) AdminLogout(c *gin.Context) {
	if err := h.adminService.Logout(c.Request.Context(), middleware.AdminSecret(c, h.cfg.Admin)); err != nil {
		respondError(c, err)
		return
	}

	h.setAdminCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) setAdminCookie(c *gin.Context, value string, maxAge int) {
	if h.cfg.Admin.CookieName == "" {
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cfg.Admin.CookieName, value, maxAge, "/api/admin", "", h.cfg.IsProduction(), true)
}

func (h HandlerSet) AdminOverview(c *gin.Context) {
	overview, err := h.dashboard.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h HandlerSet) AdminAuthMetrics(c *gin.Context) {
	report, err := h.dashboard.AuthMetrics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h HandlerSet) AdminHealthMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.HealthMetrics(c.Request.Context()))
}

func (h HandlerSet) AdminActiveAlerts(c *gin.Context) {
	alerts, err := h.dashboard.ActiveAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": alerts})
}

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	limit, offset := pageParams(c)

	page, err := h.userService.List(c.Request.Context(), repository.UserFilter{
		Tier:   models.Tier(c.Query("tier")),
		Status: models.UserStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]userResponse, 0, len(page.Users))
	for _, user := range page.Users {
		items = append(items, newUserResponse(user))
	}

	c.JSON(http.StatusOK, gin.H{
		"items":   items,
		"total":   page.Total,
		"perPage": page.Limit,
		"offset":  page.Offset,
	})
}

type changeTierRequest struct {
	Tier string `json:"tier" binding:"required"`
}

func (h HandlerSet) AdminChangeTier(c *gin.Context) {
	admin, ok := middleware.CurrentAdmin(c)
	if !ok {
		respondError(c, errNoPrincipal)
		return
	}

	var req changeTierRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.ChangeTier(c.Request.Context(), admin.Admin.ID, c.Param("id"), req.Tier)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

func (h HandlerSet) AdminDeactivateUser(c *gin.Context) {
	admin, ok := middleware.CurrentAdmin(c)
	if !ok {
		respondError(c, errNoPrincipal)
		return
	}

	if err := h.userService.Deactivate(c.Request.Context(), admin.Admin.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
