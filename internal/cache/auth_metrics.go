package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"json4ai/internal/metrics"
	"json4ai/internal/models"
)

const (
	hourLayout           = "2006010215"
	authMetricsRetention = 48 * time.Hour
)

type HourBucket struct {
	Hour  time.Time `json:"hour"`
	Count int64     `json:"count"`
}

// AuthMetrics counts authentication events in hourly redis buckets and
// mirrors them to prometheus.
type AuthMetrics struct {
	client *redis.Client
	now    func() time.Time
}

func NewAuthMetrics(client *redis.Client, now func() time.Time) *AuthMetrics {
	if now == nil {
		now = time.Now
	}
	return &AuthMetrics{client: client, now: now}
}

func authMetricKey(event models.AuthEvent, hour time.Time) string {
	return keyPrefix + "authm:" + string(event) + ":" + hour.UTC().Format(hourLayout)
}

func (m *AuthMetrics) Record(ctx context.Context, event models.AuthEvent) error {
	metrics.RecordAuthEvent(string(event))

	key := authMetricKey(event, m.now())
	pipe := m.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, authMetricsRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record auth event %s: %w", event, err)
	}
	return nil
}

// Series returns the last `hours` buckets for event, oldest first, ending with
// the current hour.
func (m *AuthMetrics) Series(ctx context.Context, event models.AuthEvent, hours int) ([]HourBucket, error) {
	if hours <= 0 {
		return nil, nil
	}

	current := m.now().UTC().Truncate(time.Hour)
	buckets := make([]HourBucket, hours)
	keys := make([]string, hours)
	for i := 0; i < hours; i++ {
		hour := current.Add(-time.Duration(hours-1-i) * time.Hour)
		buckets[i].Hour = hour
		keys[i] = authMetricKey(event, hour)
	}

	values, err := m.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read auth series %s: %w", event, err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse auth counter %s: %w", keys[i], err)
		}
		buckets[i].Count = n
	}
	return buckets, nil
}

// CurrentHour is the count of event in the running hour.
func (m *AuthMetrics) CurrentHour(ctx context.Context, event models.AuthEvent) (int64, error) {
	n, err := m.client.Get(ctx, authMetricKey(event, m.now())).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
