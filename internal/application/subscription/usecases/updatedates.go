package usecases

import (
	"context"

	"github.com/orris-inc/subsync/internal/application/subscription/dto"
	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// UpdateDatesCommand carries slot values in MySQL format; "0" clears a slot.
type UpdateDatesCommand struct {
	SubscriptionID uint
	Dates          map[string]string
}

type UpdateDatesUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	publisher        events.EventPublisher
	clock            biztime.Clock
	logger           logger.Interface
}

func NewUpdateDatesUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	publisher events.EventPublisher,
	clock biztime.Clock,
	logger logger.Interface,
) *UpdateDatesUseCase {
	return &UpdateDatesUseCase{
		subscriptionRepo: subscriptionRepo,
		publisher:        publisher,
		clock:            clock,
		logger:           logger,
	}
}

func (uc *UpdateDatesUseCase) Execute(ctx context.Context, cmd UpdateDatesCommand) (*dto.SubscriptionDTO, error) {
	updates, err := subscription.ParseDateUpdates(cmd.Dates)
	if err != nil {
		return nil, toAppError(err)
	}

	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionID, uc.logger)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	if err := sub.UpdateDates(updates, now); err != nil {
		uc.logger.Warnw("subscription dates rejected",
			"subscription_id", cmd.SubscriptionID,
			"error", err,
		)
		return nil, toAppError(err)
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		uc.logger.Errorw("failed to update subscription", "error", err, "subscription_id", cmd.SubscriptionID)
		return nil, toAppError(err)
	}

	publishChanges(ctx, uc.publisher, sub, now, uc.logger)

	uc.logger.Infow("subscription dates updated successfully",
		"subscription_id", cmd.SubscriptionID,
		"dates", len(updates),
	)

	return dto.ToSubscriptionDTO(sub), nil
}

type DeleteDateCommand struct {
	SubscriptionID uint
	DateType       string
}

type DeleteDateUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	publisher        events.EventPublisher
	clock            biztime.Clock
	logger           logger.Interface
}

func NewDeleteDateUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	publisher events.EventPublisher,
	clock biztime.Clock,
	logger logger.Interface,
) *DeleteDateUseCase {
	return &DeleteDateUseCase{
		subscriptionRepo: subscriptionRepo,
		publisher:        publisher,
		clock:            clock,
		logger:           logger,
	}
}

func (uc *DeleteDateUseCase) Execute(ctx context.Context, cmd DeleteDateCommand) (*dto.SubscriptionDTO, error) {
	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionID, uc.logger)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	if err := sub.DeleteDate(cmd.DateType, now); err != nil {
		return nil, toAppError(err)
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		uc.logger.Errorw("failed to update subscription", "error", err, "subscription_id", cmd.SubscriptionID)
		return nil, toAppError(err)
	}

	publishChanges(ctx, uc.publisher, sub, now, uc.logger)

	uc.logger.Infow("subscription date deleted",
		"subscription_id", cmd.SubscriptionID,
		"date_type", cmd.DateType,
	)

	return dto.ToSubscriptionDTO(sub), nil
}
