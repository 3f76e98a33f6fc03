package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	apperrors "github.com/orris-inc/subsync/internal/shared/errors"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// TransactionRunner runs fn in one database transaction. Repositories called
// with the context passed to fn join it.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// toAppError maps domain errors to the application error taxonomy.
func toAppError(err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		return apperrors.NewNotFoundError("subscription not found")
	case errors.Is(err, subscription.ErrInvalidArgument),
		errors.Is(err, subscription.ErrOrderingViolation),
		errors.Is(err, subscription.ErrIllegalTransition),
		errors.Is(err, subscription.ErrImmutableFieldDeletion):
		return apperrors.WrapValidation(err)
	case errors.Is(err, subscription.ErrVersionConflict):
		return apperrors.NewConflictError("subscription was modified concurrently, retry")
	}
	return apperrors.NewInternalError("subscription operation failed", err.Error())
}

func loadSubscription(ctx context.Context, repo subscription.SubscriptionRepository, id uint, log logger.Interface) (*subscription.Subscription, error) {
	if id == 0 {
		return nil, apperrors.NewValidationError("subscription ID is required")
	}

	sub, err := repo.GetByID(ctx, id)
	if err != nil {
		log.Errorw("failed to get subscription", "error", err, "subscription_id", id)
		return nil, apperrors.NewInternalError("failed to get subscription")
	}
	if sub == nil {
		return nil, apperrors.NewNotFoundError("subscription not found")
	}
	return sub, nil
}

// publishChanges publishes the events recorded by the aggregate followed by a
// single schedule change, so notifications are recomputed once per mutation.
// Publishing failures never fail the mutation.
func publishChanges(ctx context.Context, publisher events.EventPublisher, sub *subscription.Subscription, now time.Time, log logger.Interface, extra ...events.DomainEvent) {
	pending := make([]events.DomainEvent, 0, len(extra)+2)
	pending = append(pending, extra...)
	pending = append(pending, sub.GetEvents()...)
	pending = append(pending, subscription.NewScheduleChangedEvent(sub.ID(), now))

	if err := publisher.PublishAll(ctx, pending); err != nil {
		log.Warnw("failed to publish subscription events",
			"subscription_id", sub.ID(),
			"error", err,
		)
	}
}
