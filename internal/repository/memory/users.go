// Package memory implements the repository interfaces in process memory. It
// backs the memory storage driver and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"json4ai/internal/models"
	"json4ai/internal/repository"
)

var (
	_ repository.UserStore         = (*UserStore)(nil)
	_ repository.PromptStore       = (*PromptStore)(nil)
	_ repository.AdminSessionStore = (*AdminSessionStore)(nil)
	_ repository.UsageStore        = (*UsageStore)(nil)
	_ repository.EntitlementStore  = (*EntitlementStore)(nil)
)

type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]models.User
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]models.User),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) Create(_ context.Context, user models.User) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return repository.ErrEmailTaken
	}
	now := time.Now().UTC()
	user.Email = email
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt
	s.byID[user.ID] = user
	s.byEmail[email] = user.ID
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *UserStore) UpdateProfile(_ context.Context, id, firstName, lastName string) (models.User, error) {
	return s.update(id, func(u *models.User) {
		u.FirstName = firstName
		u.LastName = lastName
	})
}

func (s *UserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	_, err := s.update(id, func(u *models.User) {
		u.PasswordHash = passwordHash
	})
	return err
}

func (s *UserStore) UpdateTier(_ context.Context, id string, tier models.Tier) (models.User, error) {
	return s.update(id, func(u *models.User) {
		u.Tier = tier
	})
}

func (s *UserStore) UpdateStatus(_ context.Context, id string, status models.UserStatus) error {
	_, err := s.update(id, func(u *models.User) {
		u.Status = status
	})
	return err
}

func (s *UserStore) update(id string, mutate func(*models.User)) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	mutate(&user)
	user.UpdatedAt = time.Now().UTC()
	s.byID[id] = user
	return user, nil
}

func (s *UserStore) List(_ context.Context, filter repository.UserFilter) ([]models.User, int, error) {
	s.mu.RLock()
	matched := make([]models.User, 0, len(s.byID))
	for _, user := range s.byID {
		if filter.Tier != "" && user.Tier != filter.Tier {
			continue
		}
		if filter.Status != "" && user.Status != filter.Status {
			continue
		}
		matched = append(matched, user)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit, offset := page(filter.Limit, filter.Offset)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *UserStore) Counts(_ context.Context) (repository.UserCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := repository.UserCounts{
		ByTier:   make(map[models.Tier]int),
		ByStatus: make(map[models.UserStatus]int),
	}
	for _, user := range s.byID {
		counts.Total++
		counts.ByTier[user.Tier]++
		counts.ByStatus[user.Status]++
	}
	return counts, nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
