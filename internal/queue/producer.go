package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	fieldType    = "type"
	fieldPayload = "payload"
)

// Task is one unit of background work carried on the stream.
type Task struct {
	ID      string
	Type    string
	Payload json.RawMessage
}

type Producer struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewProducer(client *redis.Client, stream string, maxLen int64) *Producer {
	return &Producer{client: client, stream: stream, maxLen: maxLen}
}

func (p *Producer) Enqueue(ctx context.Context, taskType string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s task: %w", taskType, err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: map[string]interface{}{
			fieldType:    taskType,
			fieldPayload: string(body),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue %s task: %w", taskType, err)
	}
	return id, nil
}

// DecodeTask reads a stream entry written by Enqueue.
func DecodeTask(msg redis.XMessage) (Task, error) {
	taskType, _ := msg.Values[fieldType].(string)
	if taskType == "" {
		return Task{}, fmt.Errorf("message %s: missing task type", msg.ID)
	}
	payload, _ := msg.Values[fieldPayload].(string)
	if payload == "" {
		payload = "{}"
	}
	return Task{ID: msg.ID, Type: taskType, Payload: json.RawMessage(payload)}, nil
}
