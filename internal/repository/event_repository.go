package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"ctchen222/rally-tracker/internal/events"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EventPublisher publishes match events.
type EventPublisher interface {
	Publish(ctx context.Context, matchID string, event events.Event) error
}

// EventSubscriber streams the raw events published for a match. The returned
// function stops the subscription.
type EventSubscriber interface {
	Subscribe(ctx context.Context, matchID string) (<-chan string, func() error)
}

// EventBus publishes and subscribes to match events.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

type redisEventBus struct {
	rdb *redis.Client
}

// NewEventBus creates a new Redis Pub/Sub based EventBus.
func NewEventBus(rdb *redis.Client) EventBus {
	return &redisEventBus{rdb: rdb}
}

// Publish sends an event on the match channel.
func (b *redisEventBus) Publish(ctx context.Context, matchID string, event events.Event) error {
	ctx, span := tracer.Start(ctx, "EventBus.Publish", trace.WithAttributes(
		attribute.String("match.id", matchID),
		attribute.String("event.type", event.Type),
	))
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	return b.rdb.Publish(ctx, events.MatchChannel(matchID), data).Err()
}

// Subscribe relays payloads published on the match channel until ctx is done
// or the returned function is called.
func (b *redisEventBus) Subscribe(ctx context.Context, matchID string) (<-chan string, func() error) {
	pubsub := b.rdb.Subscribe(ctx, events.MatchChannel(matchID))
	out := make(chan string, 16)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, pubsub.Close
}
