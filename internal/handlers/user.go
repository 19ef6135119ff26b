package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"json4ai/internal/apperror"
	"json4ai/internal/middleware"
	"json4ai/internal/models"
	"json4ai/internal/service"
)

var errNoPrincipal = apperror.Auth("unauthorized", "authentication required")

func (h HandlerSet) Profile(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, errNoPrincipal)
		return
	}

	user, err := h.userService.Profile(c.Request.Context(), current.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

type updateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, errNoPrincipal)
		return
	}

	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), current.ID, service.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

type usageResponse struct {
	Tier      models.Tier `json:"tier"`
	Period    string      `json:"period"`
	Used      int         `json:"used"`
	Limit     int         `json:"limit"`
	Remaining int         `json:"remaining"`
	ResetsAt  time.Time   `json:"resetsAt"`
}

func (h HandlerSet) Usage(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, errNoPrincipal)
		return
	}

	usage, err := h.usageService.Peek(c.Request.Context(), current.ID, current.Tier)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, usageResponse{
		Tier:      usage.Tier,
		Period:    usage.Period,
		Used:      usage.Used,
		Limit:     usage.Limit,
		Remaining: usage.Remaining,
		ResetsAt:  usage.ResetsAt,
	})
}
