package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger event types
const (
	CustomerCreated    = "customer.created"
	AccountCreated     = "account.created"
	AccountDeposited   = "account.deposited"
	AccountWithdrawn   = "account.withdrawn"
	AccountTransferred = "account.transferred"
)

// Event is the envelope written to the stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Publisher announces committed ledger changes.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// RedisPublisher appends events to a Redis stream.
type RedisPublisher struct {
	client *redis.Client
	stream string
	now    func() time.Time
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		stream: stream,
		now:    time.Now,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, eventType string, data any) error {
	event := Event{
		Type:      eventType,
		Timestamp: p.now().UTC(),
		Data:      data,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event": eventJSON,
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher drops every event. It is used when no stream is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error {
	return nil
}
