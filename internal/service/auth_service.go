package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"json4ai/internal/apperror"
	"json4ai/internal/cache"
	"json4ai/internal/config"
	"json4ai/internal/credentials"
	"json4ai/internal/ids"
	"json4ai/internal/models"
	"json4ai/internal/repository"
	"json4ai/internal/security"
	"json4ai/internal/tasks"
)

type AuthService struct {
	users  repository.UserStore
	tokens *security.TokenService
	resets ResetTokenStore
	queue  TaskQueue
	events EventRecorder
	cfg    *config.AppConfig
	log    zerolog.Logger
	now    func() time.Time
}

func NewAuthService(
	users repository.UserStore,
	tokens *security.TokenService,
	resets ResetTokenStore,
	queue TaskQueue,
	events EventRecorder,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		resets: resets,
		queue:  queue,
		events: events,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type AuthResult struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             models.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	firstName, err := normalizeName("first_name", input.FirstName)
	if err != nil {
		return AuthResult{}, err
	}
	lastName, err := normalizeName("last_name", input.LastName)
	if err != nil {
		return AuthResult{}, err
	}

	email := credentials.ValidateEmail(input.Email)
	if !email.OK {
		return AuthResult{}, apperror.Validation("invalid_email", "email address is not valid")
	}
	if result := credentials.ValidatePassword(input.Password); !result.OK {
		return AuthResult{}, passwordError(result.ViolationCodes())
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, apperror.Internal(err)
	}

	now := s.now().UTC()
	user := models.User{
		ID:           ids.New(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email.Normalized,
		PasswordHash: passwordHash,
		Tier:         models.TierFree,
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return AuthResult{}, apperror.Conflict("email_taken", "an account with this email already exists")
		}
		return AuthResult{}, apperror.Internal(err)
	}

	s.record(ctx, models.EventRegister)
	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return s.issueTokens(user)
}

type LoginInput struct {
	Email    string
	Password string
}

// Login answers the same invalid_credentials error for an unknown email and a
// wrong password, and spends the same hashing work on both.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, credentials.NormalizeEmail(input.Email))
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperror.Internal(err)
		}
		security.BurnPasswordCheck(input.Password)
		s.record(ctx, models.EventLoginFailure)
		return AuthResult{}, errInvalidCredentials
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		}
		s.record(ctx, models.EventLoginFailure)
		return AuthResult{}, errInvalidCredentials
	}

	if !user.Active() {
		s.record(ctx, models.EventLoginFailure)
		return AuthResult{}, errAccountDeactivated
	}

	s.record(ctx, models.EventLoginSuccess)
	return s.issueTokens(user)
}

type RefreshResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Refresh never issues a new refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	access, claims, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return RefreshResult{}, errTokenExpired
		}
		return RefreshResult{}, errInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return RefreshResult{}, errInvalidToken
		}
		return RefreshResult{}, apperror.Internal(err)
	}
	if !user.Active() {
		return RefreshResult{}, apperror.Auth("account_deactivated", "account is deactivated")
	}

	s.record(ctx, models.EventRefresh)
	return RefreshResult{AccessToken: access.Token, ExpiresAt: access.ExpiresAt}, nil
}

// Authenticate resolves a bearer access token to its user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (models.UserPrincipal, error) {
	claims, err := s.tokens.Verify(accessToken, security.TokenAccess)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return models.UserPrincipal{}, errTokenExpired
		}
		return models.UserPrincipal{}, errInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.UserPrincipal{}, errInvalidToken
		}
		return models.UserPrincipal{}, apperror.Internal(err)
	}
	if !user.Active() {
		return models.UserPrincipal{}, errAccountDeactivated
	}
	return models.UserPrincipal{User: user, TokenID: claims.ID}, nil
}

// ForgotPassword never reports whether the address exists. Failures are logged
// and swallowed for the same reason.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) {
	user, err := s.users.FindByEmail(ctx, credentials.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			s.log.Error().Err(err).Msg("forgot password lookup failed")
		}
		return
	}
	if !user.Active() {
		return
	}

	token, hash, err := security.NewOpaqueToken(32)
	if err != nil {
		s.log.Error().Err(err).Msg("generate reset token")
		return
	}
	ttl := s.cfg.Security.PasswordResetTTL
	if err := s.resets.Save(ctx, hash, user.ID, ttl); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("store reset token")
		return
	}

	mail := tasks.PasswordResetMail{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		ResetURL:  resetLink(s.cfg.Mail.ResetURL, token),
		ExpiresAt: s.now().Add(ttl).UTC(),
	}
	if _, err := s.queue.Enqueue(ctx, tasks.TypePasswordResetMail, mail); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("enqueue reset mail")
		return
	}
	s.log.Info().Str("user_id", user.ID).Msg("password reset requested")
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if result := credentials.ValidatePassword(newPassword); !result.OK {
		return passwordError(result.ViolationCodes())
	}
	if token == "" {
		return apperror.Auth("invalid_reset_token", "reset token is invalid or expired")
	}

	userID, err := s.resets.Consume(ctx, security.HashOpaqueToken(token))
	if err != nil {
		if errors.Is(err, cache.ErrResetTokenNotFound) {
			return apperror.Auth("invalid_reset_token", "reset token is invalid or expired")
		}
		return apperror.Internal(err)
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.Auth("invalid_reset_token", "reset token is invalid or expired")
		}
		return apperror.Internal(err)
	}

	s.record(ctx, models.EventPasswordReset)
	s.log.Info().Str("user_id", userID).Msg("password reset completed")
	return nil
}

func (s *AuthService) issueTokens(user models.User) (AuthResult, error) {
	access, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return AuthResult{}, apperror.Internal(err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return AuthResult{}, apperror.Internal(err)
	}
	return AuthResult{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
		User:             user,
	}, nil
}

func (s *AuthService) record(ctx context.Context, event models.AuthEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", string(event)).Msg("record auth event")
	}
}

func resetLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
