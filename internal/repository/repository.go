// Package repository is the account directory: users, prompt submissions,
// admin sessions, usage counters and entitlement events.
//
// Postgres implementations live in this package; repository/memory provides
// in-process equivalents with the same atomicity guarantees.
package repository

import (
	"context"
	"errors"
	"time"

	"json4ai/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrPromptNotFound  = errors.New("prompt not found")
	ErrSessionNotFound = errors.New("session not found")
)

type UserFilter struct {
	Tier   models.Tier
	Status models.UserStatus
	Limit  int
	Offset int
}

type UserCounts struct {
	Total    int
	ByTier   map[models.Tier]int
	ByStatus map[models.UserStatus]int
}

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfile(ctx context.Context, id, firstName, lastName string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateTier(ctx context.Context, id string, tier models.Tier) (models.User, error)
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	List(ctx context.Context, filter UserFilter) ([]models.User, int, error)
	Counts(ctx context.Context) (UserCounts, error)
}

type PromptStore interface {
	Create(ctx context.Context, prompt models.Prompt) error
	GetByID(ctx context.Context, id string) (models.Prompt, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Prompt, error)
	UpdateComment(ctx context.Context, id, userID, comment string) (models.Prompt, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type AdminSessionStore interface {
	// ReplaceActive revokes every unrevoked session of session.AdminID and
	// inserts session, atomically with respect to other calls for that admin.
	ReplaceActive(ctx context.Context, session models.AdminSession, now time.Time) (int, error)
	FindByTokenHash(ctx context.Context, hash []byte) (models.AdminSession, error)
	TouchActivity(ctx context.Context, id string, at time.Time) error
	// Revoke is idempotent; unknown or already revoked ids are not an error.
	Revoke(ctx context.Context, id string, at time.Time) error
	CountActive(ctx context.Context, now time.Time, idleTTL time.Duration) (int, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

type UsageStore interface {
	// Reserve increments the (userID, period) counter when it is below limit.
	// It returns the counter value after the call and whether a slot was taken.
	Reserve(ctx context.Context, userID, period string, limit int, periodEnd time.Time) (int, bool, error)
	Get(ctx context.Context, userID, period string) (int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type EntitlementStore interface {
	Exists(ctx context.Context, reference string) (bool, error)
	Record(ctx context.Context, event models.EntitlementEvent) (bool, error)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var (
	_ UserStore         = (*UserRepository)(nil)
	_ PromptStore       = (*PromptRepository)(nil)
	_ AdminSessionStore = (*AdminSessionRepository)(nil)
	_ UsageStore        = (*UsageRepository)(nil)
	_ EntitlementStore  = (*EntitlementRepository)(nil)
)
