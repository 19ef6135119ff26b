package models

import "time"

// AdminSession is a server-tracked elevated session. Only the sha256 of the
// client secret is stored.
type AdminSession struct {
	ID             string
	AdminID        string
	TokenHash      []byte
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
}

// Deadline is the instant the session stops being active if left idle.
func (s AdminSession) Deadline(idleTTL time.Duration) time.Time {
	idle := s.LastActivityAt.Add(idleTTL)
	if idle.Before(s.ExpiresAt) {
		return idle
	}
	return s.ExpiresAt
}

func (s AdminSession) ActiveAt(now time.Time, idleTTL time.Duration) bool {
	if s.RevokedAt != nil {
		return false
	}
	return now.Before(s.Deadline(idleTTL))
}
