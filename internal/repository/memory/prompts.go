package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"json4ai/internal/models"
	"json4ai/internal/repository"
)

type PromptStore struct {
	mu      sync.RWMutex
	prompts map[string]models.Prompt
}

func NewPromptStore() *PromptStore {
	return &PromptStore{prompts: make(map[string]models.Prompt)}
}

func (s *PromptStore) Create(_ context.Context, prompt models.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = time.Now().UTC()
	}
	prompt.UpdatedAt = prompt.CreatedAt
	s.prompts[prompt.ID] = prompt
	return nil
}

func (s *PromptStore) GetByID(_ context.Context, id string) (models.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prompt, ok := s.prompts[id]
	if !ok {
		return models.Prompt{}, repository.ErrPromptNotFound
	}
	return prompt, nil
}

func (s *PromptStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Prompt, error) {
	s.mu.RLock()
	var owned []models.Prompt
	for _, prompt := range s.prompts {
		if prompt.UserID == userID {
			owned = append(owned, prompt)
		}
	}
	s.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	limit, offset = page(limit, offset)
	if offset >= len(owned) {
		return nil, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

func (s *PromptStore) UpdateComment(_ context.Context, id, userID, comment string) (models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompt, ok := s.prompts[id]
	if !ok || prompt.UserID != userID {
		return models.Prompt{}, repository.ErrPromptNotFound
	}
	prompt.Comment = comment
	prompt.UpdatedAt = time.Now().UTC()
	s.prompts[id] = prompt
	return prompt, nil
}

func (s *PromptStore) CountSince(_ context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, prompt := range s.prompts {
		if !prompt.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
