package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"json4ai/internal/models"
	"json4ai/internal/repository"
)

type AdminSessionStore struct {
	admins *keyedMutex

	mu       sync.RWMutex
	sessions map[string]models.AdminSession
}

func NewAdminSessionStore() *AdminSessionStore {
	return &AdminSessionStore{
		admins:   newKeyedMutex(),
		sessions: make(map[string]models.AdminSession),
	}
}

func (s *AdminSessionStore) ReplaceActive(_ context.Context, session models.AdminSession, now time.Time) (int, error) {
	unlock := s.admins.Lock(session.AdminID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	revoked := 0
	for id, existing := range s.sessions {
		if existing.AdminID != session.AdminID || existing.RevokedAt != nil {
			continue
		}
		at := now
		existing.RevokedAt = &at
		s.sessions[id] = existing
		revoked++
	}
	s.sessions[session.ID] = cloneSession(session)
	return revoked, nil
}

func (s *AdminSessionStore) FindByTokenHash(_ context.Context, hash []byte) (models.AdminSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions {
		if bytes.Equal(session.TokenHash, hash) {
			return cloneSession(session), nil
		}
	}
	return models.AdminSession{}, repository.ErrSessionNotFound
}

func (s *AdminSessionStore) TouchActivity(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.RevokedAt != nil {
		return nil
	}
	if at.After(session.LastActivityAt) {
		session.LastActivityAt = at
		s.sessions[id] = session
	}
	return nil
}

func (s *AdminSessionStore) Revoke(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.RevokedAt != nil {
		return nil
	}
	session.RevokedAt = &at
	s.sessions[id] = session
	return nil
}

func (s *AdminSessionStore) CountActive(_ context.Context, now time.Time, idleTTL time.Duration) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, session := range s.sessions {
		if session.ActiveAt(now, idleTTL) {
			count++
		}
	}
	return count, nil
}

func (s *AdminSessionStore) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, session := range s.sessions {
		revokedEarlier := session.RevokedAt != nil && session.RevokedAt.Before(before)
		if revokedEarlier || session.ExpiresAt.Before(before) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

func cloneSession(session models.AdminSession) models.AdminSession {
	session.TokenHash = append([]byte(nil), session.TokenHash...)
	if session.RevokedAt != nil {
		at := *session.RevokedAt
		session.RevokedAt = &at
	}
	return session
}
