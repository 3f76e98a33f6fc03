package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/subsync/internal/domain/notification"
	vo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/infrastructure/pubsub"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

type fakeInvalidator struct {
	calls int
	err   error
}

func (f *fakeInvalidator) Invalidate(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeTrigger struct {
	calls int
	err   error
}

func (f *fakeTrigger) TriggerReconciliation() error {
	f.calls++
	return f.err
}

func TestLogNotifier_Notify(t *testing.T) {
	n := NewLogNotifier(logger.NewNopLogger())
	err := n.Notify(context.Background(), notification.Notification{
		Type:           vo.NotificationTypeRenewal,
		SubscriptionID: 7,
		ScheduledFor:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		TaskID:         "task",
	})
	assert.NoError(t, err)
}

func TestPolicyChangeRelay_HandleEnvelope(t *testing.T) {
	cache := &fakeInvalidator{}
	trigger := &fakeTrigger{}
	relay := NewPolicyChangeRelay(cache, trigger, logger.NewNopLogger())

	relay.HandleEnvelope(context.Background(), pubsub.EventEnvelope{Type: "subscription.schedule_changed"})
	assert.Zero(t, trigger.calls)

	relay.HandleEnvelope(context.Background(), pubsub.EventEnvelope{
		Type:       notification.EventTypePolicyChanged,
		InstanceID: "other",
	})
	assert.Equal(t, 1, cache.calls)
	assert.Equal(t, 1, trigger.calls)
}

func TestPolicyChangeRelay_ToleratesFailures(t *testing.T) {
	cache := &fakeInvalidator{err: errors.New("redis down")}
	trigger := &fakeTrigger{err: errors.New("not started")}
	relay := NewPolicyChangeRelay(cache, trigger, logger.NewNopLogger())

	relay.HandleEnvelope(context.Background(), pubsub.EventEnvelope{Type: notification.EventTypePolicyChanged})
	assert.Equal(t, 1, cache.calls)
	assert.Equal(t, 1, trigger.calls)
}

func TestPolicyChangeRelay_RegisterLocal(t *testing.T) {
	trigger := &fakeTrigger{}
	relay := NewPolicyChangeRelay(nil, trigger, logger.NewNopLogger())

	dispatcher := events.NewSyncEventDispatcher()
	require.NoError(t, relay.RegisterLocal(dispatcher))

	require.NoError(t, dispatcher.Publish(context.Background(), &notification.PolicyChangedEvent{}))
	assert.Equal(t, 1, trigger.calls)
}
