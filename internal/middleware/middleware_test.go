package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"json4ai/internal/apperror"
	"json4ai/internal/config"
	"json4ai/internal/models"
	"json4ai/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errorEnvelope struct {
	Error struct {
		Kind      string          `json:"kind"`
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		Details   json.RawMessage `json:"details"`
		RequestID string          `json:"requestId"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type stubUserAuth struct {
	principal models.UserPrincipal
	err       error
	gotToken  string
}

func (s *stubUserAuth) Authenticate(_ context.Context, token string) (models.UserPrincipal, error) {
	s.gotToken = token
	return s.principal, s.err
}

type stubAdminAuth struct {
	principal models.AdminPrincipal
	err       error
	gotSecret string
}

func (s *stubAdminAuth) Authenticate(_ context.Context, secret string) (models.AdminPrincipal, error) {
	s.gotSecret = secret
	if secret == "" {
		return models.AdminPrincipal{}, apperror.Auth("invalid_admin_session", "no session")
	}
	return s.principal, s.err
}

func TestAuth_MissingBearerToken(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Auth(&stubUserAuth{}))
	router.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(requestIDHeader, "req-123")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeError(t, w)
	assert.Equal(t, "AUTH_ERROR", env.Error.Kind)
	assert.Equal(t, "missing_token", env.Error.Code)
	assert.Equal(t, "req-123", env.Error.RequestID)
}

func TestAuth_AttachesUserPrincipal(t *testing.T) {
	auth := &stubUserAuth{principal: models.UserPrincipal{User: models.User{ID: "user-1", Tier: models.TierFree}, TokenID: "tok"}}

	router := gin.New()
	router.Use(Auth(auth))
	router.GET("/me", func(c *gin.Context) {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		_, isAdmin := CurrentAdmin(c)
		assert.False(t, isAdmin)
		c.String(http.StatusOK, user.ID)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
	assert.Equal(t, "abc.def.ghi", auth.gotToken)
}

func TestAuth_PropagatesServiceErrorKind(t *testing.T) {
	auth := &stubUserAuth{err: apperror.Forbidden("account_deactivated", "account is deactivated")}

	router := gin.New()
	router.Use(Auth(auth))
	router.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "account_deactivated", decodeError(t, w).Error.Code)
}

func TestRequireAdmin_CookieThenHeader(t *testing.T) {
	cfg := config.AdminConfig{CookieName: "admin_session", HeaderName: "X-Admin-Session"}
	admins := &stubAdminAuth{principal: models.AdminPrincipal{Admin: models.User{ID: "admin-1", Role: models.UserRoleAdmin}}}

	router := gin.New()
	router.Use(RequireAdmin(admins, cfg))
	router.GET("/admin", func(c *gin.Context) {
		admin, ok := CurrentAdmin(c)
		require.True(t, ok)
		c.String(http.StatusOK, admin.Admin.ID)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "admin_session", Value: "cookie-secret"})
	req.Header.Set("X-Admin-Session", "header-secret")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cookie-secret", admins.gotSecret)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Session", "header-secret")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "header-secret", admins.gotSecret)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_admin_session", decodeError(t, w).Error.Code)
}

func newSignatureRouter(t *testing.T) (*gin.Engine, config.PaymentConfig) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.PaymentConfig{WebhookSecret: "whsec", SignatureTolerance: 5 * time.Minute}
	router := gin.New()
	router.POST("/webhook", PaymentSignature(cfg, client), func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		c.String(http.StatusOK, string(body))
	})
	return router, cfg
}

func signedRequest(secret, date, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(security.HeaderPaymentDate, date)
	req.Header.Set(security.HeaderPaymentSignature, security.ComputePayloadSignature(secret, date, []byte(body)))
	return req
}

func TestPaymentSignature(t *testing.T) {
	router, cfg := newSignatureRouter(t)
	body := `{"reference":"ord-1","status":"paid"}`
	date := time.Now().UTC().Format(time.RFC3339)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(cfg.WebhookSecret, date, body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String(), "body must be restored for the handler")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(cfg.WebhookSecret, date, body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "replay_detected", decodeError(t, w).Error.Code)
}

func TestPaymentSignature_Rejections(t *testing.T) {
	body := `{"reference":"ord-2"}`
	now := time.Now().UTC()

	tests := []struct {
		name     string
		req      func(secret string) *http.Request
		wantCode string
	}{
		{
			name: "missing headers",
			req: func(string) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
			},
			wantCode: "signature_required",
		},
		{
			name: "stale date",
			req: func(secret string) *http.Request {
				return signedRequest(secret, now.Add(-time.Hour).Format(time.RFC3339), body)
			},
			wantCode: "request_expired",
		},
		{
			name: "wrong secret",
			req: func(string) *http.Request {
				return signedRequest("other", now.Format(time.RFC3339), body)
			},
			wantCode: "invalid_signature",
		},
		{
			name: "tampered body",
			req: func(secret string) *http.Request {
				req := signedRequest(secret, now.Format(time.RFC3339), body)
				req.Body = NewReadCloser([]byte(`{"reference":"ord-3"}`))
				return req
			},
			wantCode: "invalid_signature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, cfg := newSignatureRouter(t)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tt.req(cfg.WebhookSecret))

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Error.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 2)

	router := gin.New()
	router.Use(RateLimit(rl))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decodeError(t, w).Error.Code)
}

func TestRateLimiter_PruneIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("ip:1")
	now = now.Add(10 * time.Minute)
	rl.Allow("ip:2")

	assert.Equal(t, 1, rl.Prune(5*time.Minute))
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "ip:2")
}

func TestRecovery_RendersOpaqueInternalError(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Recovery(zerolog.Nop()))
	router.GET("/boom", func(c *gin.Context) {
		panic("database password is hunter2")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeError(t, w)
	assert.Equal(t, "INTERNAL", env.Error.Kind)
	assert.Equal(t, "internal_error", env.Error.Code)
	assert.NotEmpty(t, env.Error.RequestID)
	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestRequestID_ReplacesUnsafeValues(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "bad id\twith spaces")
	router.ServeHTTP(w, req)
	assert.NotEqual(t, "bad id\twith spaces", w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(requestIDHeader))
}

func TestCORS_Preflight(t *testing.T) {
	cfg := &config.AppConfig{
		Environment:      "production",
		AllowCORSOrigins: []string{"https://app.json4ai.test"},
		Admin:            config.AdminConfig{HeaderName: "X-Admin-Session"},
	}
	router := gin.New()
	router.Use(CORS(cfg))
	router.POST("/api/prompt", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/prompt", nil)
	req.Header.Set("Origin", "https://app.json4ai.test")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.json4ai.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Admin-Session")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/api/prompt", nil)
	req.Header.Set("Origin", "https://evil.test")
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
