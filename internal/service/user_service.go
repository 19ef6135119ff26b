package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"json4ai/internal/apperror"
	"json4ai/internal/models"
	"json4ai/internal/repository"
)

type UserService struct {
	users repository.UserStore
	log   zerolog.Logger
}

func NewUserService(users repository.UserStore, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log}
}

var errUserNotFound = apperror.NotFound("user_not_found", "user not found")

func (s *UserService) Profile(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, userErr(err)
	}
	return user, nil
}

type UpdateProfileInput struct {
	FirstName string
	LastName  string
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (models.User, error) {
	firstName, err := normalizeName("first_name", input.FirstName)
	if err != nil {
		return models.User{}, err
	}
	lastName, err := normalizeName("last_name", input.LastName)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.UpdateProfile(ctx, userID, firstName, lastName)
	if err != nil {
		return models.User{}, userErr(err)
	}
	return user, nil
}

type UserPage struct {
	Users  []models.User
	Total  int
	Limit  int
	Offset int
}

func (s *UserService) List(ctx context.Context, filter repository.UserFilter) (UserPage, error) {
	if filter.Tier != "" && !filter.Tier.Valid() {
		return UserPage{}, apperror.Validation("invalid_tier", "tier must be free, standard or premium")
	}
	switch filter.Status {
	case "", models.UserStatusActive, models.UserStatusDeactivated:
	default:
		return UserPage{}, apperror.Validation("invalid_status", "status must be active or deactivated")
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return UserPage{}, apperror.Internal(err)
	}
	if users == nil {
		users = []models.User{}
	}
	return UserPage{Users: users, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// ChangeTier only affects future prompt submissions.
func (s *UserService) ChangeTier(ctx context.Context, actorID, userID, tier string) (models.User, error) {
	parsed, ok := models.ParseTier(tier)
	if !ok {
		return models.User{}, apperror.Validation("invalid_tier", "tier must be free, standard or premium")
	}

	user, err := s.users.UpdateTier(ctx, userID, parsed)
	if err != nil {
		return models.User{}, userErr(err)
	}
	s.log.Info().Str("actor_id", actorID).Str("user_id", userID).Str("tier", string(parsed)).Msg("user tier changed")
	return user, nil
}

func (s *UserService) Deactivate(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return apperror.Validation("cannot_deactivate_self", "admins cannot deactivate their own account")
	}
	if err := s.users.UpdateStatus(ctx, userID, models.UserStatusDeactivated); err != nil {
		return userErr(err)
	}
	s.log.Info().Str("actor_id", actorID).Str("user_id", userID).Msg("user deactivated")
	return nil
}

func userErr(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return errUserNotFound
	}
	return apperror.Internal(err)
}
