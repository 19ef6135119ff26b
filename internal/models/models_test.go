package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTier(t *testing.T) {
	for _, tier := range Tiers {
		got, ok := ParseTier(string(tier))
		assert.True(t, ok)
		assert.Equal(t, tier, got)
	}

	_, ok := ParseTier("gold")
	assert.False(t, ok)
	_, ok = ParseTier("FREE")
	assert.False(t, ok)
}

func TestAdminSession_ActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idle := 30 * time.Minute

	session := AdminSession{
		CreatedAt:      now.Add(-time.Hour),
		LastActivityAt: now.Add(-10 * time.Minute),
		ExpiresAt:      now.Add(7 * time.Hour),
	}

	assert.True(t, session.ActiveAt(now, idle))
	assert.Equal(t, now.Add(20*time.Minute), session.Deadline(idle))
	assert.False(t, session.ActiveAt(now.Add(20*time.Minute), idle), "idle window elapsed")

	capped := session
	capped.ExpiresAt = now.Add(5 * time.Minute)
	assert.Equal(t, now.Add(5*time.Minute), capped.Deadline(idle))
	assert.False(t, capped.ActiveAt(now.Add(6*time.Minute), idle), "absolute cap reached")

	revokedAt := now.Add(-time.Minute)
	revoked := session
	revoked.RevokedAt = &revokedAt
	assert.False(t, revoked.ActiveAt(now, idle))
}

func TestPrincipals(t *testing.T) {
	var p Principal = UserPrincipal{User: User{ID: "u1"}}
	assert.Equal(t, "u1", p.PrincipalID())
	assert.Equal(t, PrincipalUser, p.PrincipalKind())

	p = AdminPrincipal{Admin: User{ID: "a1", Role: UserRoleAdmin}}
	assert.Equal(t, "a1", p.PrincipalID())
	assert.Equal(t, PrincipalAdmin, p.PrincipalKind())
	assert.True(t, UserRoleSuperAdmin.IsAdmin())
	assert.False(t, UserRoleUser.IsAdmin())
}
