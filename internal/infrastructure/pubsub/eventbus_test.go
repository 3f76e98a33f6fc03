package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/subsync/internal/domain/notification"
	nvo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	"github.com/orris-inc/subsync/internal/shared/constants"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client
}

type envelopeRecorder struct {
	mu       sync.Mutex
	received []EventEnvelope
}

func (r *envelopeRecorder) handle(ctx context.Context, envelope EventEnvelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, envelope)
}

func (r *envelopeRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.received))
	for _, e := range r.received {
		out = append(out, e.Type)
	}
	return out
}

func TestRedisEventBus_RelaysToOtherInstances(t *testing.T) {
	client := setupTestRedis(t)
	sender := NewRedisEventBus(client, logger.NewNopLogger())
	receiver := NewRedisEventBus(client, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := &envelopeRecorder{}
	done := make(chan error, 1)
	go func() { done <- receiver.Subscribe(ctx, recorder.handle) }()

	event := &notification.PolicyChangedEvent{OccurredAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}

	// Messages published before the subscription is live are dropped.
	require.Eventually(t, func() bool {
		_ = sender.Publish(ctx, event)
		return len(recorder.types()) > 0
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, notification.EventTypePolicyChanged, recorder.types()[0])

	// Own events are not delivered back.
	before := len(recorder.types())
	require.NoError(t, receiver.Publish(ctx, event))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, recorder.types(), before)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}

func TestRedisEventBus_RegisterForwarding(t *testing.T) {
	client := setupTestRedis(t)
	bus := NewRedisEventBus(client, logger.NewNopLogger())
	dispatcher := events.NewSyncEventDispatcher()

	require.NoError(t, bus.RegisterForwarding(dispatcher, subscription.EventTypeScheduleChanged))

	ctx := context.Background()
	sub := client.Subscribe(ctx, constants.RedisChannelEvents)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, dispatcher.Publish(ctx, subscription.NewScheduleChangedEvent(7, time.Now())))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, `"type":"subscription.schedule_changed"`)
	assert.Contains(t, msg.Payload, `"aggregate_id":7`)
}

func TestRedisEventBus_ForwardingFailureDoesNotFailPublish(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	bus := NewRedisEventBus(client, logger.NewNopLogger())
	dispatcher := events.NewSyncEventDispatcher()
	require.NoError(t, bus.RegisterForwarding(dispatcher, subscription.EventTypeScheduleChanged))

	err = dispatcher.Publish(context.Background(), subscription.NewScheduleChangedEvent(7, time.Now()))
	assert.NoError(t, err)
}

func TestRedisStreamNotifier_Notify(t *testing.T) {
	client := setupTestRedis(t)
	notifier := NewRedisStreamNotifier(client, logger.NewNopLogger())
	ctx := context.Background()

	err := notifier.Notify(ctx, notification.Notification{
		Type:           nvo.NotificationTypeRenewal,
		SubscriptionID: 12,
		ScheduledFor:   time.Date(2025, 3, 27, 12, 0, 0, 0, time.UTC),
		TaskID:         "task-1",
	})
	require.NoError(t, err)

	entries, err := client.XRange(ctx, constants.RedisStreamNotifications, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "renewal", entries[0].Values["type"])
	assert.Equal(t, "12", entries[0].Values["subscription_id"])
	assert.Equal(t, "2025-03-27 12:00:00", entries[0].Values["scheduled_for"])
	assert.Equal(t, "task-1", entries[0].Values["task_id"])
}
