package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"json4ai/internal/apperror"
	"json4ai/internal/config"
	"json4ai/internal/credentials"
	"json4ai/internal/ids"
	"json4ai/internal/metrics"
	"json4ai/internal/models"
	"json4ai/internal/repository"
	"json4ai/internal/security"
)

const adminSecretBytes = 32

// AdminSessionService manages the elevated admin session, which is tracked
// server-side and is independent of user JWTs. A session is active while it is
// not revoked, has seen activity within IdleTTL and is younger than MaxLifetime.
type AdminSessionService struct {
	users    repository.UserStore
	sessions repository.AdminSessionStore
	events   EventRecorder
	cfg      config.AdminConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAdminSessionService(
	users repository.UserStore,
	sessions repository.AdminSessionStore,
	events EventRecorder,
	cfg config.AdminConfig,
	log zerolog.Logger,
) *AdminSessionService {
	return &AdminSessionService{
		users:    users,
		sessions: sessions,
		events:   events,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type AdminLoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

type AdminLoginResult struct {
	Secret  string
	Session models.AdminSession
	Admin   models.User
}

type AdminSessionStatus struct {
	Active       bool
	RemainingTTL time.Duration
	ExpiresAt    time.Time
}

// Login replaces any session the admin already holds.
func (s *AdminSessionService) Login(ctx context.Context, input AdminLoginInput) (AdminLoginResult, error) {
	admin, err := s.users.FindByEmail(ctx, credentials.NormalizeEmail(input.Email))
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return AdminLoginResult{}, apperror.Internal(err)
		}
		security.BurnPasswordCheck(input.Password)
		s.record(ctx, models.EventAdminLoginFailure)
		return AdminLoginResult{}, errInvalidCredentials
	}

	ok, err := security.VerifyPassword(input.Password, admin.PasswordHash)
	if err != nil || !ok || !admin.Role.IsAdmin() || !admin.Active() {
		s.record(ctx, models.EventAdminLoginFailure)
		s.log.Warn().Str("user_id", admin.ID).Str("ip", input.IPAddress).Msg("admin login rejected")
		return AdminLoginResult{}, errInvalidCredentials
	}

	secret, hash, err := security.NewOpaqueToken(adminSecretBytes)
	if err != nil {
		return AdminLoginResult{}, apperror.Internal(err)
	}

	now := s.now().UTC()
	session := models.AdminSession{
		ID:             ids.New(),
		AdminID:        admin.ID,
		TokenHash:      hash,
		IPAddress:      input.IPAddress,
		UserAgent:      input.UserAgent,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.cfg.MaxLifetime),
	}

	revoked, err := s.sessions.ReplaceActive(ctx, session, now)
	if err != nil {
		return AdminLoginResult{}, apperror.Internal(err)
	}
	metrics.AdminSessionsRevokedTotal.Add(float64(revoked))

	s.record(ctx, models.EventAdminLoginSuccess)
	s.log.Info().
		Str("user_id", admin.ID).
		Str("session_id", session.ID).
		Int("revoked", revoked).
		Msg("admin session started")

	return AdminLoginResult{Secret: secret, Session: session, Admin: admin}, nil
}

// Status is a pure read and never extends the session.
func (s *AdminSessionService) Status(ctx context.Context, secret string) (AdminSessionStatus, error) {
	session, err := s.lookup(ctx, secret)
	if err != nil {
		if apperror.Is(err, apperror.KindAuth) {
			return AdminSessionStatus{}, nil
		}
		return AdminSessionStatus{}, err
	}

	now := s.now()
	deadline := session.Deadline(s.cfg.IdleTTL)
	return AdminSessionStatus{
		Active:       true,
		RemainingTTL: deadline.Sub(now),
		ExpiresAt:    deadline,
	}, nil
}

// Authenticate gates admin routes. Unlike Status it records activity, which
// is what slides the idle window.
func (s *AdminSessionService) Authenticate(ctx context.Context, secret string) (models.AdminPrincipal, error) {
	session, err := s.lookup(ctx, secret)
	if err != nil {
		return models.AdminPrincipal{}, err
	}

	admin, err := s.users.GetByID(ctx, session.AdminID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.AdminPrincipal{}, errAdminSession
		}
		return models.AdminPrincipal{}, apperror.Internal(err)
	}
	if !admin.Role.IsAdmin() || !admin.Active() {
		_ = s.sessions.Revoke(ctx, session.ID, s.now().UTC())
		return models.AdminPrincipal{}, errAdminSession
	}

	now := s.now().UTC()
	if err := s.sessions.TouchActivity(ctx, session.ID, now); err != nil {
		return models.AdminPrincipal{}, apperror.Internal(err)
	}
	session.LastActivityAt = now

	return models.AdminPrincipal{Admin: admin, Session: session}, nil
}

// Logout is idempotent: unknown, expired and already revoked secrets succeed.
func (s *AdminSessionService) Logout(ctx context.Context, secret string) error {
	if secret == "" {
		return nil
	}
	session, err := s.sessions.FindByTokenHash(ctx, security.HashOpaqueToken(secret))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		return apperror.Internal(err)
	}
	if session.RevokedAt != nil {
		return nil
	}

	if err := s.sessions.Revoke(ctx, session.ID, s.now().UTC()); err != nil {
		return apperror.Internal(err)
	}
	metrics.AdminSessionsRevokedTotal.Inc()
	s.log.Info().Str("user_id", session.AdminID).Str("session_id", session.ID).Msg("admin session revoked")
	return nil
}

func (s *AdminSessionService) lookup(ctx context.Context, secret string) (models.AdminSession, error) {
	if secret == "" {
		return models.AdminSession{}, errAdminSession
	}
	session, err := s.sessions.FindByTokenHash(ctx, security.HashOpaqueToken(secret))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.AdminSession{}, errAdminSession
		}
		return models.AdminSession{}, apperror.Internal(err)
	}
	if !session.ActiveAt(s.now(), s.cfg.IdleTTL) {
		return models.AdminSession{}, errAdminSession
	}
	return session, nil
}

func (s *AdminSessionService) record(ctx context.Context, event models.AuthEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", string(event)).Msg("record auth event")
	}
}
