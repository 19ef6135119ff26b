package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"json4ai/internal/ids"
)

type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenKind      = errors.New("token kind mismatch")
	// ErrTokenInvalid wraps every non-expiry failure returned by Refresh.
	ErrTokenInvalid = errors.New("token invalid")
)

type Claims struct {
	UserID string    `json:"uid"`
	Kind   TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenService signs and verifies stateless user tokens. It holds no state
// beyond its configuration and is safe for concurrent use.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

type TokenOption func(*TokenService)

func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets are required")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, fmt.Errorf("access token ttl %s must be shorter than refresh token ttl %s", cfg.AccessTTL, cfg.RefreshTTL)
	}

	s := &TokenService{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *TokenService) AccessTTL() time.Duration {
	return s.cfg.AccessTTL
}

func (s *TokenService) IssueAccessToken(userID string) (IssuedToken, error) {
	return s.issue(userID, TokenAccess)
}

func (s *TokenService) IssueRefreshToken(userID string) (IssuedToken, error) {
	return s.issue(userID, TokenRefresh)
}

func (s *TokenService) issue(userID string, kind TokenKind) (IssuedToken, error) {
	if userID == "" {
		return IssuedToken{}, errors.New("issue token: empty user id")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl(kind))
	tokenID := ids.New()

	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        tokenID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(s.secret(kind))
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign jwt: %w", err)
	}

	return IssuedToken{
		Token:     signed,
		ID:        tokenID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks signature, expiry and kind. Errors are one of ErrTokenExpired,
// ErrTokenSignature, ErrTokenMalformed or ErrTokenKind.
func (s *TokenService) Verify(tokenStr string, kind TokenKind) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (interface{}, error) {
			return s.secret(kind), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}

	if claims.Kind != kind {
		return nil, ErrTokenKind
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// itself is never renewed; once it expires the user has to log in again.
func (s *TokenService) Refresh(refreshToken string) (IssuedToken, *Claims, error) {
	claims, err := s.Verify(refreshToken, TokenRefresh)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return IssuedToken{}, nil, err
		}
		return IssuedToken{}, nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	access, err := s.IssueAccessToken(claims.UserID)
	if err != nil {
		return IssuedToken{}, nil, err
	}
	return access, claims, nil
}

func (s *TokenService) secret(kind TokenKind) []byte {
	if kind == TokenRefresh {
		return []byte(s.cfg.RefreshSecret)
	}
	return []byte(s.cfg.AccessSecret)
}

func (s *TokenService) ttl(kind TokenKind) time.Duration {
	if kind == TokenRefresh {
		return s.cfg.RefreshTTL
	}
	return s.cfg.AccessTTL
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
