package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"json4ai/internal/apperror"
	"json4ai/internal/ids"
	"json4ai/internal/models"
	"json4ai/internal/repository"
)

const (
	maxPromptBytes   = 32 << 10
	maxCommentLength = 500
)

type PromptService struct {
	prompts repository.PromptStore
	usage   *UsageService
	log     zerolog.Logger
	now     func() time.Time
}

func NewPromptService(prompts repository.PromptStore, usage *UsageService, log zerolog.Logger) *PromptService {
	return &PromptService{
		prompts: prompts,
		usage:   usage,
		log:     log,
		now:     time.Now,
	}
}

type SubmitPromptInput struct {
	Comment string
	Prompt  string
	Model   string
}

type SubmitPromptResult struct {
	Prompt      models.Prompt
	Reservation Reservation
}

// Submit reserves a quota slot and records the submission with the user's
// current tier. A slot is not returned if storing the record fails.
func (s *PromptService) Submit(ctx context.Context, user models.User, input SubmitPromptInput) (SubmitPromptResult, error) {
	body := strings.TrimSpace(input.Prompt)
	if body == "" {
		return SubmitPromptResult{}, apperror.Validation("empty_prompt", "prompt must not be empty")
	}
	if len(body) > maxPromptBytes {
		return SubmitPromptResult{}, apperror.Validation("prompt_too_large", "prompt exceeds 32 KiB")
	}
	comment := strings.TrimSpace(input.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return SubmitPromptResult{}, apperror.Validation("comment_too_long", "comment exceeds 500 characters")
	}
	model := strings.TrimSpace(input.Model)
	if model == "" {
		model = models.DefaultPromptModel
	}

	reservation, err := s.usage.CheckAndReserve(ctx, user.ID, user.Tier)
	if err != nil {
		return SubmitPromptResult{}, err
	}
	if !reservation.Allowed {
		return SubmitPromptResult{}, apperror.QuotaExceeded("quota_exceeded", "prompt quota for this period is used up").
			WithDetails(map[string]any{
				"tier":     user.Tier,
				"limit":    reservation.Limit,
				"used":     reservation.Used,
				"period":   reservation.Period,
				"resetsAt": reservation.ResetsAt,
			})
	}

	now := s.now().UTC()
	prompt := models.Prompt{
		ID:        ids.New(),
		UserID:    user.ID,
		Comment:   comment,
		Body:      body,
		Model:     model,
		Tier:      user.Tier,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.prompts.Create(ctx, prompt); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Str("period", reservation.Period).Msg("prompt stored after quota reservation failed")
		return SubmitPromptResult{}, apperror.Internal(err)
	}

	return SubmitPromptResult{Prompt: prompt, Reservation: reservation}, nil
}

func (s *PromptService) History(ctx context.Context, userID string, limit, offset int) ([]models.Prompt, error) {
	prompts, err := s.prompts.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if prompts == nil {
		prompts = []models.Prompt{}
	}
	return prompts, nil
}

func (s *PromptService) UpdateComment(ctx context.Context, userID, promptID, comment string) (models.Prompt, error) {
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return models.Prompt{}, apperror.Validation("comment_too_long", "comment exceeds 500 characters")
	}

	prompt, err := s.prompts.UpdateComment(ctx, promptID, userID, comment)
	if err != nil {
		if errors.Is(err, repository.ErrPromptNotFound) {
			return models.Prompt{}, apperror.NotFound("prompt_not_found", "prompt not found")
		}
		return models.Prompt{}, apperror.Internal(err)
	}
	return prompt, nil
}
