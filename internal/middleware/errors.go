package middleware

import (
	"github.com/gin-gonic/gin"

	"json4ai/internal/apperror"
)

type errorBody struct {
	Kind      apperror.Kind `json:"kind"`
	Code      string        `json:"code"`
	Message   string        `json:"message"`
	Details   any           `json:"details,omitempty"`
	RequestID string        `json:"requestId,omitempty"`
}

// AbortWithError renders err as the JSON error envelope and stops the chain.
// The error is also attached to the context so Logger can report the cause.
func AbortWithError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	_ = c.Error(err)

	body := errorBody{
		Kind:      appErr.Kind,
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: RequestIDFrom(c),
	}
	if appErr.Kind == apperror.KindInternal {
		body.Details = nil
	}

	c.AbortWithStatusJSON(apperror.HTTPStatus(appErr.Kind), gin.H{"error": body})
}
