package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"json4ai/internal/apperror"
	"json4ai/internal/models"
)

func adminLogin(t *testing.T, env *testEnv, email string) AdminLoginResult {
	t.Helper()
	res, err := env.admin.Login(context.Background(), AdminLoginInput{Email: email, Password: testPassword, IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return res
}

func TestAdminSession_SecondLoginRevokesFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "root@example.com", models.UserRoleAdmin, models.TierPremium)

	first := adminLogin(t, env, "root@example.com")
	env.clock.Advance(time.Minute)
	second := adminLogin(t, env, "root@example.com")

	status, err := env.admin.Status(ctx, first.Secret)
	require.NoError(t, err)
	assert.False(t, status.Active)

	status, err = env.admin.Status(ctx, second.Secret)
	require.NoError(t, err)
	assert.True(t, status.Active)

	_, err = env.admin.Authenticate(ctx, first.Secret)
	assert.True(t, apperror.Is(err, apperror.KindAuth))
}

func TestAdminSession_ConcurrentLoginsLeaveOneActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "root@example.com", models.UserRoleAdmin, models.TierPremium)

	const n = 8
	results := make([]AdminLoginResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.admin.Login(ctx, AdminLoginInput{Email: "root@example.com", Password: testPassword})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	active := 0
	for _, res := range results {
		status, err := env.admin.Status(ctx, res.Secret)
		require.NoError(t, err)
		if status.Active {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestAdminSession_StatusDoesNotExtend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "root@example.com", models.UserRoleAdmin, models.TierPremium)
	res := adminLogin(t, env, "root@example.com")

	env.clock.Advance(20 * time.Minute)
	status, err := env.admin.Status(ctx, res.Secret)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Equal(t, 10*time.Minute, status.RemainingTTL)

	env.clock.Advance(10 * time.Minute)
	status, err = env.admin.Status(ctx, res.Secret)
	require.NoError(t, err)
	assert.False(t, status.Active, "status polling must not keep the session alive")
}

func TestAdminSession_ActivitySlidesIdleWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "root@example.com", models.UserRoleAdmin, models.TierPremium)
	res := adminLogin(t, env, "root@example.com")

	for i := 0; i < 3; i++ {
		env.clock.Advance(25 * time.Minute)
		_, err := env.admin.Authenticate(ctx, res.Secret)
		require.NoError(t, err)
	}

	status, err := env.admin.Status(ctx, res.Secret)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Equal(t, 30*time.Minute, status.RemainingTTL)
}

func TestAdminSession_AbsoluteLifetimeCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "root@example.com", models.UserRoleAdmin, models.TierPremium)
	res := adminLogin(t, env, "root@example.com")

	for elapsed := time.Duration(0); elapsed < 8*time.Hour-20*time.Minute; elapsed += 20 * time.Minute {
		env.clock.Advance(20 * time.Minute)
		_, err := env.admin.Authenticate(ctx, res.Secret)
		require.NoError(t, err)
	}

	env.clock.Advance(20 * time.Minute)
	_, err := env.admin.Authenticate(ctx, res.Secret)
	assert.True(t, apperror.Is(err, apperror.KindAuth))
}

func TestAdminSession_LoginRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "user@example.com", models.UserRoleUser, models.TierFree)
	admin := env.seedUser(t, "root@example.com", models.UserRoleAdmin, models.TierFree)

	tests := []struct {
		name  string
		input AdminLoginInput
	}{
		{"unknown email", AdminLoginInput{Email: "ghost@example.com", Password: testPassword}},
		{"wrong password", AdminLoginInput{Email: "root@example.com", Password: "Wr0ng@Pass"}},
		{"not an admin", AdminLoginInput{Email: "user@example.com", Password: testPassword}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.admin.Login(ctx, tt.input)
			require.Error(t, err)
			assert.Equal(t, "invalid_credentials", apperror.From(err).Code)
		})
	}

	require.NoError(t, env.users.UpdateStatus(ctx, admin.ID, models.UserStatusDeactivated))
	_, err := env.admin.Login(ctx, AdminLoginInput{Email: "root@example.com", Password: testPassword})
	assert.Equal(t, "invalid_credentials", apperror.From(err).Code)

	failures, err := env.authMetrics.CurrentHour(ctx, models.EventAdminLoginFailure)
	require.NoError(t, err)
	assert.EqualValues(t, 4, failures)
}

func TestAdminSession_UserTokenIsNotAnAdminSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "root@example.com", models.UserRoleAdmin, models.TierFree)

	login, err := env.auth.Login(ctx, LoginInput{Email: "root@example.com", Password: testPassword})
	require.NoError(t, err)

	_, err = env.admin.Authenticate(ctx, login.AccessToken)
	assert.True(t, apperror.Is(err, apperror.KindAuth))
}

func TestAdminSession_LogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "root@example.com", models.UserRoleAdmin, models.TierPremium)
	res := adminLogin(t, env, "root@example.com")

	require.NoError(t, env.admin.Logout(ctx, res.Secret))
	require.NoError(t, env.admin.Logout(ctx, res.Secret))
	require.NoError(t, env.admin.Logout(ctx, "never-issued"))
	require.NoError(t, env.admin.Logout(ctx, ""))

	status, err := env.admin.Status(ctx, res.Secret)
	require.NoError(t, err)
	assert.False(t, status.Active)
}

func TestAdminSession_DemotedAdminLosesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, "root@example.com", models.UserRoleAdmin, models.TierPremium)
	res := adminLogin(t, env, "root@example.com")

	require.NoError(t, env.users.UpdateStatus(ctx, admin.ID, models.UserStatusDeactivated))

	_, err := env.admin.Authenticate(ctx, res.Secret)
	assert.True(t, apperror.Is(err, apperror.KindAuth))

	status, err := env.admin.Status(ctx, res.Secret)
	require.NoError(t, err)
	assert.False(t, status.Active)
}
