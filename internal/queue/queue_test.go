package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu    sync.Mutex
	tasks []Task
	err   error
}

func (h *recordingHandler) Handle(_ context.Context, msg redis.XMessage) error {
	task, err := DecodeTask(msg)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks = append(h.tasks, task)
	return h.err
}

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestProducerConsumer_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	handler := &recordingHandler{}
	consumer := NewConsumer(client, "tasks", "workers", "w1", time.Minute, zerolog.Nop(), handler)
	consumer.block = 10 * time.Millisecond
	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, consumer.EnsureGroup(ctx), "second call tolerates BUSYGROUP")

	producer := NewProducer(client, "tasks", 100)
	id, err := producer.Enqueue(ctx, "usage_prune", map[string]string{"reason": "test"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.NoError(t, consumer.read(ctx))

	require.Len(t, handler.tasks, 1)
	assert.Equal(t, "usage_prune", handler.tasks[0].Type)
	assert.JSONEq(t, `{"reason":"test"}`, string(handler.tasks[0].Payload))

	pending, err := client.XPending(ctx, "tasks", "workers").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count, "handled message is acked")
}

func TestConsumer_FailedMessageStaysPending(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	handler := &recordingHandler{err: errors.New("mailer down")}
	consumer := NewConsumer(client, "tasks", "workers", "w1", time.Minute, zerolog.Nop(), handler)
	consumer.block = 10 * time.Millisecond
	require.NoError(t, consumer.EnsureGroup(ctx))

	_, err := NewProducer(client, "tasks", 0).Enqueue(ctx, "password_reset_mail", struct{}{})
	require.NoError(t, err)

	require.NoError(t, consumer.read(ctx))

	pending, err := client.XPending(ctx, "tasks", "workers").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count)
}

func TestDecodeTask_MissingType(t *testing.T) {
	_, err := DecodeTask(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"payload": "{}"}})
	assert.Error(t, err)
}
