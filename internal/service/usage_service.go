package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"json4ai/internal/apperror"
	"json4ai/internal/config"
	"json4ai/internal/metrics"
	"json4ai/internal/models"
	"json4ai/internal/repository"
)

const (
	PeriodMonthly = "monthly"
	PeriodDaily   = "daily"
)

type Reservation struct {
	Allowed   bool
	Used      int
	Limit     int
	Remaining int
	Period    string
	ResetsAt  time.Time
}

// UsageService enforces the per-tier prompt ceiling for the current period.
type UsageService struct {
	store  repository.UsageStore
	limits config.TierLimits
	period string
	events EventRecorder
	log    zerolog.Logger
	now    func() time.Time
}

func NewUsageService(store repository.UsageStore, cfg config.UsageConfig, events EventRecorder, log zerolog.Logger) *UsageService {
	return &UsageService{
		store:  store,
		limits: cfg.Limits,
		period: cfg.Period,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// Limit is the ceiling for tier. Unknown tiers get the free ceiling.
func (s *UsageService) Limit(tier models.Tier) int {
	switch tier {
	case models.TierPremium:
		return s.limits.Premium
	case models.TierStandard:
		return s.limits.Standard
	default:
		return s.limits.Free
	}
}

// CheckAndReserve consumes one slot if the user is under the ceiling. The
// check and the increment are a single store operation.
func (s *UsageService) CheckAndReserve(ctx context.Context, userID string, tier models.Tier) (Reservation, error) {
	key, _, end := PeriodBounds(s.period, s.now())
	limit := s.Limit(tier)

	used, allowed, err := s.store.Reserve(ctx, userID, key, limit, end)
	if err != nil {
		return Reservation{}, apperror.Internal(fmt.Errorf("reserve usage: %w", err))
	}

	metrics.RecordQuotaDecision(string(tier), allowed)
	if !allowed && s.events != nil {
		if err := s.events.Record(ctx, models.EventQuotaExceeded); err != nil {
			s.log.Warn().Err(err).Msg("record quota event")
		}
	}

	return Reservation{
		Allowed:   allowed,
		Used:      used,
		Limit:     limit,
		Remaining: remaining(limit, used),
		Period:    key,
		ResetsAt:  end,
	}, nil
}

func (s *UsageService) Peek(ctx context.Context, userID string, tier models.Tier) (models.Usage, error) {
	key, _, end := PeriodBounds(s.period, s.now())
	limit := s.Limit(tier)

	used, err := s.store.Get(ctx, userID, key)
	if err != nil {
		return models.Usage{}, apperror.Internal(fmt.Errorf("read usage: %w", err))
	}

	return models.Usage{
		UserID:    userID,
		Tier:      tier,
		Period:    key,
		Used:      used,
		Limit:     limit,
		Remaining: remaining(limit, used),
		ResetsAt:  end,
	}, nil
}

// PeriodBounds returns the period key and its [start, end) range in UTC.
func PeriodBounds(period string, now time.Time) (string, time.Time, time.Time) {
	now = now.UTC()
	if period == PeriodDaily {
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return start.Format("2006-01-02"), start, start.AddDate(0, 0, 1)
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start.Format("2006-01"), start, start.AddDate(0, 1, 0)
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
