package services

import (
	"context"
	"fmt"

	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// Synchronizer is the part of NotificationSynchronizer the handlers need.
type Synchronizer interface {
	Sync(ctx context.Context, sub *subscription.Subscription) (SyncResult, error)
}

// RegisterSyncHandler subscribes the synchronizer to schedule changes. The
// handler never fails the publishing mutation: sync errors are logged and
// left to the next reconciliation run.
func RegisterSyncHandler(
	subscriber events.EventSubscriber,
	repo subscription.SubscriptionRepository,
	synchronizer Synchronizer,
	log logger.Interface,
) error {
	handler := events.NewSimpleEventHandler(subscription.EventTypeScheduleChanged, func(ctx context.Context, event events.DomainEvent) error {
		subscriptionID := event.GetAggregateID()

		sub, err := repo.GetByID(ctx, subscriptionID)
		if err != nil {
			log.Warnw("failed to load subscription for notification sync",
				"subscription_id", subscriptionID,
				"error", err,
			)
			return nil
		}
		if sub == nil {
			return nil
		}

		if _, err := synchronizer.Sync(ctx, sub); err != nil {
			log.Warnw("notification sync failed",
				"subscription_id", subscriptionID,
				"error", err,
			)
		}
		return nil
	})

	if err := subscriber.Subscribe(subscription.EventTypeScheduleChanged, handler); err != nil {
		return fmt.Errorf("failed to register notification sync handler: %w", err)
	}
	return nil
}
