package service

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"json4ai/internal/apperror"
	"json4ai/internal/cache"
	"json4ai/internal/config"
	"json4ai/internal/models"
	"json4ai/internal/repository"
)

const authMetricsWindow = 24

type AuthSeries interface {
	Series(ctx context.Context, event models.AuthEvent, hours int) ([]cache.HourBucket, error)
	CurrentHour(ctx context.Context, event models.AuthEvent) (int64, error)
}

// DependencyCheck pings one backing service.
type DependencyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type PoolStats struct {
	TotalConns    int32 `json:"totalConns"`
	IdleConns     int32 `json:"idleConns"`
	AcquiredConns int32 `json:"acquiredConns"`
	MaxConns      int32 `json:"maxConns"`
}

type DashboardService struct {
	users     repository.UserStore
	prompts   repository.PromptStore
	sessions  repository.AdminSessionStore
	series    AuthSeries
	checks    []DependencyCheck
	poolStats func() *PoolStats
	alerts    config.AlertConfig
	idleTTL   time.Duration
	log       zerolog.Logger
	started   time.Time
	now       func() time.Time
}

func NewDashboardService(
	users repository.UserStore,
	prompts repository.PromptStore,
	sessions repository.AdminSessionStore,
	series AuthSeries,
	checks []DependencyCheck,
	poolStats func() *PoolStats,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *DashboardService {
	return &DashboardService{
		users:     users,
		prompts:   prompts,
		sessions:  sessions,
		series:    series,
		checks:    checks,
		poolStats: poolStats,
		alerts:    cfg.Alerts,
		idleTTL:   cfg.Admin.IdleTTL,
		log:       log,
		started:   time.Now(),
		now:       time.Now,
	}
}

type Overview struct {
	TotalUsers          int                       `json:"totalUsers"`
	UsersByTier         map[models.Tier]int       `json:"usersByTier"`
	UsersByStatus       map[models.UserStatus]int `json:"usersByStatus"`
	PromptsToday        int                       `json:"promptsToday"`
	ActiveAdminSessions int                       `json:"activeAdminSessions"`
	GeneratedAt         time.Time                 `json:"generatedAt"`
}

func (s *DashboardService) Overview(ctx context.Context) (Overview, error) {
	now := s.now().UTC()

	counts, err := s.users.Counts(ctx)
	if err != nil {
		return Overview{}, apperror.Internal(err)
	}
	for _, tier := range models.Tiers {
		if _, ok := counts.ByTier[tier]; !ok {
			counts.ByTier[tier] = 0
		}
	}

	_, dayStart, _ := PeriodBounds(PeriodDaily, now)
	promptsToday, err := s.prompts.CountSince(ctx, dayStart)
	if err != nil {
		return Overview{}, apperror.Internal(err)
	}

	active, err := s.sessions.CountActive(ctx, now, s.idleTTL)
	if err != nil {
		return Overview{}, apperror.Internal(err)
	}

	return Overview{
		TotalUsers:          counts.Total,
		UsersByTier:         counts.ByTier,
		UsersByStatus:       counts.ByStatus,
		PromptsToday:        promptsToday,
		ActiveAdminSessions: active,
		GeneratedAt:         now,
	}, nil
}

type AuthMetricsReport struct {
	WindowHours int                                     `json:"windowHours"`
	Series      map[models.AuthEvent][]cache.HourBucket `json:"series"`
	Totals      map[models.AuthEvent]int64              `json:"totals"`
}

func (s *DashboardService) AuthMetrics(ctx context.Context) (AuthMetricsReport, error) {
	report := AuthMetricsReport{
		WindowHours: authMetricsWindow,
		Series:      make(map[models.AuthEvent][]cache.HourBucket, len(models.AuthEvents)),
		Totals:      make(map[models.AuthEvent]int64, len(models.AuthEvents)),
	}
	for _, event := range models.AuthEvents {
		buckets, err := s.series.Series(ctx, event, authMetricsWindow)
		if err != nil {
			return AuthMetricsReport{}, apperror.Internal(err)
		}
		var total int64
		for _, b := range buckets {
			total += b.Count
		}
		report.Series[event] = buckets
		report.Totals[event] = total
	}
	return report, nil
}

type DependencyStatus struct {
	Name      string  `json:"name"`
	Healthy   bool    `json:"healthy"`
	LatencyMS float64 `json:"latencyMs"`
	Error     string  `json:"error,omitempty"`
}

type HealthMetrics struct {
	Dependencies   []DependencyStatus `json:"dependencies"`
	Pool           *PoolStats         `json:"pool,omitempty"`
	Goroutines     int                `json:"goroutines"`
	HeapAllocBytes uint64             `json:"heapAllocBytes"`
	UptimeSeconds  float64            `json:"uptimeSeconds"`
}

// Dependencies pings every backing service with a short timeout.
func (s *DashboardService) Dependencies(ctx context.Context) []DependencyStatus {
	statuses := make([]DependencyStatus, 0, len(s.checks))
	for _, check := range s.checks {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		start := time.Now()
		err := check.Ping(pingCtx)
		cancel()

		status := DependencyStatus{
			Name:      check.Name,
			Healthy:   err == nil,
			LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
		}
		if err != nil {
			status.Error = err.Error()
			s.log.Warn().Err(err).Str("dependency", check.Name).Msg("dependency check failed")
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (s *DashboardService) HealthMetrics(ctx context.Context) HealthMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	metrics := HealthMetrics{
		Dependencies:   s.Dependencies(ctx),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		UptimeSeconds:  s.now().Sub(s.started).Seconds(),
	}
	if s.poolStats != nil {
		metrics.Pool = s.poolStats()
	}
	return metrics
}

type Alert struct {
	Code      string `json:"code"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Value     int64  `json:"value"`
	Threshold int64  `json:"threshold"`
}

// ActiveAlerts derives alerts from the running hour's counters and the
// dependency checks. Nothing is persisted.
func (s *DashboardService) ActiveAlerts(ctx context.Context) ([]Alert, error) {
	thresholds := []struct {
		event     models.AuthEvent
		threshold int
		code      string
		severity  string
		message   string
	}{
		{models.EventLoginFailure, s.alerts.LoginFailuresPerHour, "login_failure_spike", "warning", "failed user logins above threshold this hour"},
		{models.EventAdminLoginFailure, s.alerts.AdminLoginFailuresPerHour, "admin_login_failure_spike", "critical", "failed admin logins above threshold this hour"},
		{models.EventQuotaExceeded, s.alerts.QuotaExceededPerHour, "quota_exceeded_spike", "info", "quota rejections above threshold this hour"},
	}

	alerts := []Alert{}
	for _, t := range thresholds {
		if t.threshold <= 0 {
			continue
		}
		value, err := s.series.CurrentHour(ctx, t.event)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if value >= int64(t.threshold) {
			alerts = append(alerts, Alert{
				Code:      t.code,
				Severity:  t.severity,
				Message:   t.message,
				Value:     value,
				Threshold: int64(t.threshold),
			})
		}
	}

	for _, dep := range s.Dependencies(ctx) {
		if !dep.Healthy {
			alerts = append(alerts, Alert{
				Code:     "dependency_down",
				Severity: "critical",
				Message:  dep.Name + " is unreachable: " + dep.Error,
			})
		}
	}
	return alerts, nil
}
