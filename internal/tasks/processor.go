package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"json4ai/internal/metrics"
	"json4ai/internal/queue"
	"json4ai/internal/repository"
)

const (
	TypePasswordResetMail = "password_reset_mail"
	TypeAdminSessionSweep = "admin_session_sweep"
	TypeUsagePrune        = "usage_prune"
)

type PasswordResetMail struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	ResetURL  string    `json:"resetUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Retention is how long dead admin sessions and closed usage periods are kept.
type Retention struct {
	AdminSessions time.Duration
	Usage         time.Duration
}

type Processor struct {
	logger    zerolog.Logger
	mailer    Mailer
	sessions  repository.AdminSessionStore
	usage     repository.UsageStore
	retention Retention
	now       func() time.Time
}

func NewProcessor(logger zerolog.Logger, mailer Mailer, sessions repository.AdminSessionStore, usage repository.UsageStore, retention Retention) *Processor {
	return &Processor{
		logger:    logger,
		mailer:    mailer,
		sessions:  sessions,
		usage:     usage,
		retention: retention,
		now:       time.Now,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := queue.DecodeTask(msg)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	err = p.dispatch(ctx, task)
	metrics.RecordTask(task.Type, err)
	return err
}

func (p *Processor) dispatch(ctx context.Context, task queue.Task) error {
	switch task.Type {
	case TypePasswordResetMail:
		return p.handlePasswordResetMail(ctx, task)
	case TypeAdminSessionSweep:
		return p.handleAdminSessionSweep(ctx)
	case TypeUsagePrune:
		return p.handleUsagePrune(ctx)
	default:
		p.logger.Warn().Str("type", task.Type).Str("task_id", task.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handlePasswordResetMail(ctx context.Context, task queue.Task) error {
	var mail PasswordResetMail
	if err := json.Unmarshal(task.Payload, &mail); err != nil {
		// a malformed payload will never succeed, so it is dropped
		p.logger.Error().Err(err).Str("task_id", task.ID).Msg("invalid password reset payload")
		return nil
	}
	if err := p.mailer.SendPasswordReset(ctx, mail); err != nil {
		return fmt.Errorf("send password reset to %s: %w", mail.UserID, err)
	}
	p.logger.Info().Str("user_id", mail.UserID).Msg("password reset mail dispatched")
	return nil
}

func (p *Processor) handleAdminSessionSweep(ctx context.Context) error {
	cutoff := p.now().Add(-p.retention.AdminSessions)
	deleted, err := p.sessions.DeleteStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("sweep admin sessions: %w", err)
	}
	p.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("admin session sweep finished")
	return nil
}

func (p *Processor) handleUsagePrune(ctx context.Context) error {
	cutoff := p.now().Add(-p.retention.Usage)
	deleted, err := p.usage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune usage counters: %w", err)
	}
	p.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("usage prune finished")
	return nil
}
