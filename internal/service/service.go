// Package service holds the account, session and entitlement use cases. Every
// error leaving this package is an *apperror.Error.
package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"json4ai/internal/apperror"
	"json4ai/internal/models"
)

const maxNameLength = 100

// EventRecorder counts authentication lifecycle events.
type EventRecorder interface {
	Record(ctx context.Context, event models.AuthEvent) error
}

type ResetTokenStore interface {
	Save(ctx context.Context, hash []byte, userID string, ttl time.Duration) error
	Consume(ctx context.Context, hash []byte) (string, error)
}

type TaskQueue interface {
	Enqueue(ctx context.Context, taskType string, payload any) (string, error)
}

var (
	errInvalidCredentials = apperror.Auth("invalid_credentials", "invalid email or password")
	errAccountDeactivated = apperror.Forbidden("account_deactivated", "account is deactivated")
	errInvalidToken       = apperror.Auth("invalid_token", "token is invalid")
	errTokenExpired       = apperror.Auth("token_expired", "token has expired")
	errAdminSession       = apperror.Auth("invalid_admin_session", "admin session is missing, expired or revoked")
)

func normalizeName(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	n := utf8.RuneCountInString(value)
	if n == 0 || n > maxNameLength {
		return "", apperror.Validation("invalid_"+field, field+" must be between 1 and 100 characters")
	}
	return value, nil
}

func passwordError(violations []string) error {
	return apperror.Validation("weak_password", "password does not meet the password policy").
		WithDetails(map[string]any{"violations": violations})
}
