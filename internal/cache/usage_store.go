package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"json4ai/internal/repository"
)

// reserveScript increments the counter only while it is below the limit and
// pins the key's expiry to the end of the period.
var reserveScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if current >= limit then
	return {current, 0}
end
current = redis.call('INCR', KEYS[1])
redis.call('EXPIREAT', KEYS[1], ARGV[2])
return {current, 1}
`)

var _ repository.UsageStore = (*UsageStore)(nil)

// UsageStore keeps per-period prompt counters in redis.
type UsageStore struct {
	client *redis.Client
}

func NewUsageStore(client *redis.Client) *UsageStore {
	return &UsageStore{client: client}
}

func usageKey(userID, period string) string {
	return keyPrefix + "usage:" + userID + ":" + period
}

func (s *UsageStore) Reserve(ctx context.Context, userID, period string, limit int, periodEnd time.Time) (int, bool, error) {
	res, err := reserveScript.Run(ctx, s.client, []string{usageKey(userID, period)}, limit, periodEnd.Unix()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("reserve usage: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("reserve usage: unexpected reply %v", res)
	}
	return int(res[0]), res[1] == 1, nil
}

func (s *UsageStore) Get(ctx context.Context, userID, period string) (int, error) {
	n, err := s.client.Get(ctx, usageKey(userID, period)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// DeleteBefore is a no-op: counters expire at the end of their period.
func (s *UsageStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}
