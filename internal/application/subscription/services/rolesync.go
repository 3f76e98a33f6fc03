package services

import (
	"context"

	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// RoleForStatus returns the customer role a subscription status grants, or
// "" when the status leaves the role unchanged.
func RoleForStatus(status vo.SubscriptionStatus) string {
	switch status {
	case vo.StatusActive:
		return subscription.RoleActiveSubscriber
	case vo.StatusOnHold, vo.StatusCancelled, vo.StatusExpired:
		return subscription.RoleInactiveSubscriber
	}
	return ""
}

// RegisterRoleSyncHandlers keeps the customer role in step with subscription
// status changes. Role failures are logged and never fail the mutation.
func RegisterRoleSyncHandlers(subscriber events.EventSubscriber, roles subscription.CustomerRoleUpdater, log logger.Interface) error {
	apply := func(ctx context.Context, subscriptionID, customerID uint, status vo.SubscriptionStatus) {
		role := RoleForStatus(status)
		if role == "" || customerID == 0 {
			return
		}
		if err := roles.SetRole(ctx, customerID, role); err != nil {
			log.Warnw("failed to update customer role",
				"subscription_id", subscriptionID,
				"customer_id", customerID,
				"role", role,
				"error", err,
			)
		}
	}

	if err := subscriber.Subscribe(subscription.EventTypeStatusChanged, events.NewSimpleEventHandler(
		subscription.EventTypeStatusChanged,
		func(ctx context.Context, event events.DomainEvent) error {
			if e, ok := event.(*subscription.StatusChangedEvent); ok {
				apply(ctx, e.SubscriptionID, e.CustomerID, e.To)
			}
			return nil
		},
	)); err != nil {
		return err
	}

	return subscriber.Subscribe(subscription.EventTypeSubscriptionCreated, events.NewSimpleEventHandler(
		subscription.EventTypeSubscriptionCreated,
		func(ctx context.Context, event events.DomainEvent) error {
			if e, ok := event.(*subscription.SubscriptionCreatedEvent); ok && e.Status == vo.StatusActive {
				apply(ctx, e.SubscriptionID, e.CustomerID, e.Status)
			}
			return nil
		},
	))
}
