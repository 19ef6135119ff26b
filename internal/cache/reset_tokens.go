package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrResetTokenNotFound = errors.New("reset token not found or already used")

// ResetTokenStore keeps password reset tokens as sha256 hash -> user id.
type ResetTokenStore struct {
	client *redis.Client
}

func NewResetTokenStore(client *redis.Client) *ResetTokenStore {
	return &ResetTokenStore{client: client}
}

func resetKey(hash []byte) string {
	return keyPrefix + "pwreset:" + hex.EncodeToString(hash)
}

func (s *ResetTokenStore) Save(ctx context.Context, hash []byte, userID string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, resetKey(hash), userID, ttl).Result()
	if err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}
	if !ok {
		return errors.New("save reset token: hash collision")
	}
	return nil
}

// Consume returns the owning user id and deletes the token in one step.
func (s *ResetTokenStore) Consume(ctx context.Context, hash []byte) (string, error) {
	userID, err := s.client.GetDel(ctx, resetKey(hash)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrResetTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return userID, nil
}
