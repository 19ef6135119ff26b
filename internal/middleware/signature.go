package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"json4ai/internal/apperror"
	"json4ai/internal/config"
	"json4ai/internal/security"
)

const maxWebhookBody = 64 << 10

var (
	errSignatureRequired = apperror.Auth("signature_required", "payment signature headers are required")
	errSignatureStale    = apperror.Auth("request_expired", "payment signature date is outside the accepted window")
	errSignatureInvalid  = apperror.Auth("invalid_signature", "payment signature mismatch")
	errSignatureReplay   = apperror.Auth("replay_detected", "payment callback already received")
	errInvalidBody       = apperror.Validation("invalid_body", "request body could not be read")
)

func NewReadCloser(b []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b))
}

// PaymentSignature authenticates gateway callbacks by HMAC over the raw body.
// A signature is accepted once within the tolerance window.
func PaymentSignature(cfg config.PaymentConfig, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawBody, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			AbortWithError(c, errInvalidBody)
			return
		}
		c.Request.Body = NewReadCloser(rawBody)

		err = security.VerifyPayloadSignature(cfg.WebhookSecret, c.Request.Header, rawBody, time.Now(), cfg.SignatureTolerance)
		switch {
		case errors.Is(err, security.ErrSignatureMissing):
			AbortWithError(c, errSignatureRequired)
			return
		case errors.Is(err, security.ErrSignatureStale):
			AbortWithError(c, errSignatureStale)
			return
		case err != nil:
			AbortWithError(c, errSignatureInvalid)
			return
		}

		nonceKey := "json4ai:payment:sig:" + c.GetHeader(security.HeaderPaymentSignature)
		fresh, err := redisClient.SetNX(c.Request.Context(), nonceKey, "1", 2*cfg.SignatureTolerance).Result()
		if err != nil {
			AbortWithError(c, apperror.Internal(err))
			return
		}
		if !fresh {
			AbortWithError(c, errSignatureReplay)
			return
		}

		c.Next()
	}
}
