package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"json4ai/internal/cache"
	"json4ai/internal/config"
	"json4ai/internal/ids"
	"json4ai/internal/models"
	"json4ai/internal/repository/memory"
	"json4ai/internal/security"
)

const testPassword = "Str0ng@Pass"

var fastParams = security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type enqueuedTask struct {
	Type    string
	Payload json.RawMessage
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []enqueuedTask
}

func (q *fakeQueue) Enqueue(_ context.Context, taskType string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, enqueuedTask{Type: taskType, Payload: body})
	return ids.New(), nil
}

type testEnv struct {
	cfg          *config.AppConfig
	clock        *testClock
	redis        *redis.Client
	users        *memory.UserStore
	prompts      *memory.PromptStore
	sessions     *memory.AdminSessionStore
	usageStore   *memory.UsageStore
	entitlements *memory.EntitlementStore
	queue        *fakeQueue
	authMetrics  *cache.AuthMetrics
	tokens       *security.TokenService

	auth      *AuthService
	admin     *AdminSessionService
	usage     *UsageService
	prompt    *PromptService
	user      *UserService
	payments  *EntitlementService
	dashboard *DashboardService
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTAccessSecret:  "access-secret",
			JWTRefreshSecret: "refresh-secret",
			JWTAccessTTL:     15 * time.Minute,
			JWTRefreshTTL:    720 * time.Hour,
			JWTIssuer:        "json4ai-test",
			PasswordResetTTL: 30 * time.Minute,
		},
		Admin: config.AdminConfig{
			IdleTTL:     30 * time.Minute,
			MaxLifetime: 8 * time.Hour,
			CookieName:  "admin_session",
			HeaderName:  "X-Admin-Session",
		},
		Usage: config.UsageConfig{
			Backend: "memory",
			Period:  PeriodMonthly,
			Limits:  config.TierLimits{Free: 3, Standard: 10, Premium: 100},
		},
		Payment: config.PaymentConfig{WebhookSecret: "whsec"},
		Mail:    config.MailConfig{ResetURL: "https://app.json4ai.test/reset-password"},
		Alerts:  config.AlertConfig{LoginFailuresPerHour: 3, AdminLoginFailuresPerHour: 2, QuotaExceededPerHour: 5},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	clock := &testClock{now: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}

	tokens, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  cfg.Security.JWTAccessSecret,
		RefreshSecret: cfg.Security.JWTRefreshSecret,
		AccessTTL:     cfg.Security.JWTAccessTTL,
		RefreshTTL:    cfg.Security.JWTRefreshTTL,
		Issuer:        cfg.Security.JWTIssuer,
	}, security.WithClock(clock.Now))
	require.NoError(t, err)

	env := &testEnv{
		cfg:          cfg,
		clock:        clock,
		redis:        client,
		users:        memory.NewUserStore(),
		prompts:      memory.NewPromptStore(),
		sessions:     memory.NewAdminSessionStore(),
		usageStore:   memory.NewUsageStore(),
		entitlements: memory.NewEntitlementStore(),
		queue:        &fakeQueue{},
		authMetrics:  cache.NewAuthMetrics(client, clock.Now),
		tokens:       tokens,
	}

	log := zerolog.Nop()
	env.auth = NewAuthService(env.users, tokens, cache.NewResetTokenStore(client), env.queue, env.authMetrics, cfg, log)
	env.auth.now = clock.Now
	env.admin = NewAdminSessionService(env.users, env.sessions, env.authMetrics, cfg.Admin, log)
	env.admin.now = clock.Now
	env.usage = NewUsageService(env.usageStore, cfg.Usage, env.authMetrics, log)
	env.usage.now = clock.Now
	env.prompt = NewPromptService(env.prompts, env.usage, log)
	env.prompt.now = clock.Now
	env.user = NewUserService(env.users, log)
	env.payments = NewEntitlementService(env.users, env.entitlements, cfg.Payment, log)
	env.payments.now = clock.Now
	env.dashboard = NewDashboardService(env.users, env.prompts, env.sessions, env.authMetrics, []DependencyCheck{
		{Name: "redis", Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() }},
	}, nil, cfg, log)
	env.dashboard.now = clock.Now

	return env
}

func (e *testEnv) seedUser(t *testing.T, email string, role models.UserRole, tier models.Tier) models.User {
	t.Helper()

	hash, err := security.HashPasswordWithParams(testPassword, fastParams)
	require.NoError(t, err)

	user := models.User{
		ID:           ids.New(),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		PasswordHash: hash,
		Tier:         tier,
		Role:         role,
		Status:       models.UserStatusActive,
		CreatedAt:    e.clock.Now(),
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}
