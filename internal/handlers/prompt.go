package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"json4ai/internal/middleware"
	"json4ai/internal/models"
	"json4ai/internal/service"
)

type submitPromptRequest struct {
	Comment string `json:"comment"`
	Prompt  string `json:"prompt"`
	Model   string `json:"model"`
}

type promptResponse struct {
	ID        string    `json:"id"`
	Comment   string    `json:"comment"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	Tier      string    `json:"tier"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newPromptResponse(p models.Prompt) promptResponse {
	return promptResponse{
		ID:        p.ID,
		Comment:   p.Comment,
		Prompt:    p.Body,
		Model:     p.Model,
		Tier:      string(p.Tier),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h HandlerSet) SubmitPrompt(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, errNoPrincipal)
		return
	}

	var req submitPromptRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.promptService.Submit(c.Request.Context(), user, service.SubmitPromptInput{
		Comment: req.Comment,
		Prompt:  req.Prompt,
		Model:   req.Model,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	r := result.Reservation
	c.JSON(http.StatusCreated, gin.H{
		"prompt": newPromptResponse(result.Prompt),
		"usage": usageResponse{
			Tier:      user.Tier,
			Period:    r.Period,
			Used:      r.Used,
			Limit:     r.Limit,
			Remaining: r.Remaining,
			ResetsAt:  r.ResetsAt,
		},
	})
}

func (h HandlerSet) PromptHistory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, errNoPrincipal)
		return
	}

	limit, offset := pageParams(c)
	prompts, err := h.promptService.History(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]promptResponse, 0, len(prompts))
	for _, p := range prompts {
		items = append(items, newPromptResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type updateCommentRequest struct {
	Comment string `json:"comment"`
}

func (h HandlerSet) UpdatePromptComment(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, errNoPrincipal)
		return
	}

	var req updateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	prompt, err := h.promptService.UpdateComment(c.Request.Context(), user.ID, c.Param("id"), req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"prompt": newPromptResponse(prompt)})
}
