package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"json4ai/internal/apperror"
	"json4ai/internal/config"
	"json4ai/internal/ids"
	"json4ai/internal/models"
	"json4ai/internal/repository"
)

var ErrGatewayUnconfigured = errors.New("payment gateway is not configured")

// EntitlementService records payment outcomes reported by the external gateway
// and applies paid tiers. Events are idempotent by gateway reference.
type EntitlementService struct {
	users        repository.UserStore
	entitlements repository.EntitlementStore
	cfg          config.PaymentConfig
	log          zerolog.Logger
	now          func() time.Time
}

func NewEntitlementService(users repository.UserStore, entitlements repository.EntitlementStore, cfg config.PaymentConfig, log zerolog.Logger) *EntitlementService {
	return &EntitlementService{
		users:        users,
		entitlements: entitlements,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
	}
}

type PaymentEvent struct {
	Reference string
	UserID    string
	Tier      string
	Status    string
	Amount    int64
	Currency  string
}

type EntitlementResult struct {
	Duplicate bool
	Applied   bool
	Tier      models.Tier
}

func (s *EntitlementService) RecordPayment(ctx context.Context, input PaymentEvent) (EntitlementResult, error) {
	event, err := s.validate(input)
	if err != nil {
		return EntitlementResult{}, err
	}

	exists, err := s.entitlements.Exists(ctx, event.Reference)
	if err != nil {
		return EntitlementResult{}, apperror.Internal(err)
	}
	if exists {
		return EntitlementResult{Duplicate: true, Tier: event.Tier}, nil
	}

	applied := false
	if event.Status == models.EntitlementPaid {
		if _, err := s.users.UpdateTier(ctx, event.UserID, event.Tier); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return EntitlementResult{}, errUserNotFound
			}
			return EntitlementResult{}, apperror.Internal(err)
		}
		applied = true
	}

	recorded, err := s.entitlements.Record(ctx, event)
	if err != nil {
		return EntitlementResult{}, apperror.Internal(err)
	}

	s.log.Info().
		Str("user_id", event.UserID).
		Str("reference", event.Reference).
		Str("status", string(event.Status)).
		Str("tier", string(event.Tier)).
		Bool("applied", applied).
		Msg("entitlement event recorded")

	return EntitlementResult{Duplicate: !recorded, Applied: applied, Tier: event.Tier}, nil
}

func (s *EntitlementService) validate(input PaymentEvent) (models.EntitlementEvent, error) {
	reference := strings.TrimSpace(input.Reference)
	if reference == "" || strings.TrimSpace(input.UserID) == "" {
		return models.EntitlementEvent{}, apperror.Validation("invalid_event", "reference and userId are required")
	}

	status := models.EntitlementStatus(strings.ToLower(input.Status))
	switch status {
	case models.EntitlementPaid, models.EntitlementFailed, models.EntitlementRefunded:
	default:
		return models.EntitlementEvent{}, apperror.Validation("invalid_status", "status must be paid, failed or refunded")
	}

	tier, ok := models.ParseTier(strings.ToLower(input.Tier))
	if !ok {
		return models.EntitlementEvent{}, apperror.Validation("invalid_tier", "tier must be free, standard or premium")
	}

	return models.EntitlementEvent{
		Reference:  reference,
		UserID:     strings.TrimSpace(input.UserID),
		Tier:       tier,
		Status:     status,
		Amount:     input.Amount,
		Currency:   strings.ToUpper(input.Currency),
		ReceivedAt: s.now().UTC(),
	}, nil
}

type OrderIntent struct {
	Reference   string
	Tier        models.Tier
	RedirectURL string
}

// CreateOrder hands the user off to the gateway. Order creation and payment
// verification happen there; the outcome comes back through RecordPayment.
func (s *EntitlementService) CreateOrder(_ context.Context, user models.User, tier string) (OrderIntent, error) {
	if s.cfg.GatewayURL == "" {
		return OrderIntent{}, ErrGatewayUnconfigured
	}
	parsed, ok := models.ParseTier(tier)
	if !ok || parsed == models.TierFree {
		return OrderIntent{}, apperror.Validation("invalid_tier", "tier must be standard or premium")
	}

	gateway, err := url.Parse(s.cfg.GatewayURL)
	if err != nil {
		return OrderIntent{}, apperror.Internal(err)
	}
	reference := ids.New()
	q := gateway.Query()
	q.Set("reference", reference)
	q.Set("userId", user.ID)
	q.Set("tier", string(parsed))
	gateway.RawQuery = q.Encode()

	return OrderIntent{Reference: reference, Tier: parsed, RedirectURL: gateway.String()}, nil
}
