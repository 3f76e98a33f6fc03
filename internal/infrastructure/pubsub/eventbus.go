package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/constants"
	"github.com/orris-inc/subsync/internal/shared/goroutine"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// EventEnvelope is a domain event as relayed between instances. Only the
// identity of the event travels; receivers reload what they need.
type EventEnvelope struct {
	Type        string    `json:"type"`
	AggregateID uint      `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	InstanceID  string    `json:"instance_id,omitempty"` // Source instance ID to avoid self-delivery
}

// EnvelopeHandler handles an event received from another instance.
type EnvelopeHandler func(ctx context.Context, envelope EventEnvelope)

// RedisEventBus relays domain events to other instances over Redis Pub/Sub.
type RedisEventBus struct {
	client     *redis.Client
	channel    string
	logger     logger.Interface
	instanceID string
}

func NewRedisEventBus(client *redis.Client, logger logger.Interface) *RedisEventBus {
	return &RedisEventBus{
		client:     client,
		channel:    constants.RedisChannelEvents,
		logger:     logger,
		instanceID: uuid.NewString(),
	}
}

// Publish relays one domain event.
func (b *RedisEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	envelope := EventEnvelope{
		Type:        event.GetEventType(),
		AggregateID: event.GetAggregateID(),
		OccurredAt:  event.GetOccurredAt().UTC(),
		InstanceID:  b.instanceID,
	}
	if envelope.OccurredAt.IsZero() {
		envelope.OccurredAt = biztime.NowUTC()
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Errorw("failed to relay domain event",
			"event_type", envelope.Type,
			"aggregate_id", envelope.AggregateID,
			"error", err,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debugw("domain event relayed",
		"event_type", envelope.Type,
		"aggregate_id", envelope.AggregateID,
	)
	return nil
}

// RegisterForwarding relays the given event types from the local dispatcher.
// Relay failures are logged; the local mutation has already succeeded.
func (b *RedisEventBus) RegisterForwarding(subscriber events.EventSubscriber, eventTypes ...string) error {
	for _, eventType := range eventTypes {
		handler := events.NewSimpleEventHandler(eventType, func(ctx context.Context, event events.DomainEvent) error {
			if err := b.Publish(ctx, event); err != nil {
				b.logger.Warnw("domain event not relayed", "event_type", event.GetEventType(), "error", err)
			}
			return nil
		})
		if err := subscriber.Subscribe(eventType, handler); err != nil {
			return fmt.Errorf("failed to register event forwarding for %s: %w", eventType, err)
		}
	}
	return nil
}

// Subscribe delivers events published by other instances until ctx is done,
// reconnecting with exponential backoff.
func (b *RedisEventBus) Subscribe(ctx context.Context, handler EnvelopeHandler) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		err := b.subscribe(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Warnw("event subscription disconnected, reconnecting",
			"channel", b.channel,
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

func (b *RedisEventBus) subscribe(ctx context.Context, handler EnvelopeHandler) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel %s: %w", b.channel, err)
	}

	b.logger.Infow("subscribed to event channel", "channel", b.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Infow("event subscriber stopped",
				"channel", b.channel,
				"reason", ctx.Err(),
			)
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warnw("event channel closed", "channel", b.channel)
				return nil
			}

			var envelope EventEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				b.logger.Warnw("failed to unmarshal event envelope",
					"payload", msg.Payload,
					"error", err,
				)
				continue
			}

			if envelope.InstanceID == b.instanceID {
				continue
			}

			goroutine.SafeGo(b.logger, "event-handler-"+envelope.Type, func() {
				handler(ctx, envelope)
			})
		}
	}
}
