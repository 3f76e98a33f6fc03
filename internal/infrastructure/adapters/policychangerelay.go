package adapters

import (
	"context"
	"fmt"

	"github.com/orris-inc/subsync/internal/domain/notification"
	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/infrastructure/pubsub"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// PolicyInvalidator drops a cached notification policy.
type PolicyInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ReconcileTrigger starts a reconciliation run ahead of schedule.
type ReconcileTrigger interface {
	TriggerReconciliation() error
}

// PolicyChangeRelay reacts to policy changes, whether made on this instance
// or received from another one, by refreshing the cached policy and starting
// a reconciliation run.
type PolicyChangeRelay struct {
	cache   PolicyInvalidator
	trigger ReconcileTrigger
	logger  logger.Interface
}

// NewPolicyChangeRelay creates a relay. cache may be nil when caching is off.
func NewPolicyChangeRelay(cache PolicyInvalidator, trigger ReconcileTrigger, logger logger.Interface) *PolicyChangeRelay {
	return &PolicyChangeRelay{
		cache:   cache,
		trigger: trigger,
		logger:  logger,
	}
}

// RegisterLocal subscribes the relay to policy changes published in-process.
func (r *PolicyChangeRelay) RegisterLocal(subscriber events.EventSubscriber) error {
	handler := events.NewSimpleEventHandler(notification.EventTypePolicyChanged, func(ctx context.Context, event events.DomainEvent) error {
		r.policyChanged(ctx, "local")
		return nil
	})
	if err := subscriber.Subscribe(notification.EventTypePolicyChanged, handler); err != nil {
		return fmt.Errorf("failed to register policy change relay: %w", err)
	}
	return nil
}

// HandleEnvelope is a pubsub.EnvelopeHandler for events from other instances.
func (r *PolicyChangeRelay) HandleEnvelope(ctx context.Context, envelope pubsub.EventEnvelope) {
	if envelope.Type != notification.EventTypePolicyChanged {
		return
	}
	r.policyChanged(ctx, envelope.InstanceID)
}

func (r *PolicyChangeRelay) policyChanged(ctx context.Context, source string) {
	if r.cache != nil {
		if err := r.cache.Invalidate(ctx); err != nil {
			r.logger.Warnw("failed to invalidate cached notification policy",
				"source", source,
				"error", err,
			)
		}
	}

	if err := r.trigger.TriggerReconciliation(); err != nil {
		r.logger.Warnw("failed to trigger reconciliation after policy change",
			"source", source,
			"error", err,
		)
		return
	}

	r.logger.Infow("reconciliation triggered by policy change", "source", source)
}
