package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	HeaderPaymentSignature = "X-Payment-Signature"
	HeaderPaymentDate      = "X-Payment-Date"
)

var (
	ErrSignatureMissing = errors.New("signature headers missing")
	ErrSignatureStale   = errors.New("signature date outside tolerance")
	ErrSignatureInvalid = errors.New("signature mismatch")
)

// ComputePayloadSignature signs "<date>\n<body>" with HMAC-SHA256, hex encoded.
func ComputePayloadSignature(secret string, date string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(date))
	mac.Write([]byte("\n"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPayloadSignature checks a gateway callback. date must be RFC3339 and
// within tolerance of now in either direction.
func VerifyPayloadSignature(secret string, header http.Header, body []byte, now time.Time, tolerance time.Duration) error {
	signature := strings.TrimSpace(header.Get(HeaderPaymentSignature))
	date := strings.TrimSpace(header.Get(HeaderPaymentDate))
	if signature == "" || date == "" || secret == "" {
		return ErrSignatureMissing
	}

	signedAt, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return ErrSignatureStale
	}
	if delta := now.Sub(signedAt); delta > tolerance || delta < -tolerance {
		return ErrSignatureStale
	}

	expected := ComputePayloadSignature(secret, date, body)
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return ErrSignatureInvalid
	}
	return nil
}
