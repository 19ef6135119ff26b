package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"json4ai/internal/middleware"
	"json4ai/internal/service"
)

type createOrderRequest struct {
	Tier string `json:"tier" binding:"required"`
}

func (h HandlerSet) CreateOrder(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, errNoPrincipal)
		return
	}

	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	intent, err := h.entitlements.CreateOrder(c.Request.Context(), user, req.Tier)
	if errors.Is(err, service.ErrGatewayUnconfigured) {
		c.JSON(http.StatusNotImplemented, gin.H{"error": gin.H{
			"kind":      "NOT_IMPLEMENTED",
			"code":      "gateway_unconfigured",
			"message":   "online payment is not available",
			"requestId": middleware.RequestIDFrom(c),
		}})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"reference":   intent.Reference,
		"tier":        intent.Tier,
		"redirectUrl": intent.RedirectURL,
	})
}

type paymentWebhookRequest struct {
	Reference string `json:"reference"`
	UserID    string `json:"userId"`
	Tier      string `json:"tier"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// PaymentWebhook runs behind PaymentSignature, so the body is authentic.
func (h HandlerSet) PaymentWebhook(c *gin.Context) {
	var req paymentWebhookRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.entitlements.RecordPayment(c.Request.Context(), service.PaymentEvent{
		Reference: req.Reference,
		UserID:    req.UserID,
		Tier:      req.Tier,
		Status:    req.Status,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference": req.Reference,
		"duplicate": result.Duplicate,
		"applied":   result.Applied,
		"tier":      result.Tier,
	})
}
