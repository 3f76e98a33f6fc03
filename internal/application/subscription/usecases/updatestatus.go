package usecases

import (
	"context"

	"github.com/orris-inc/subsync/internal/application/subscription/dto"
	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/errors"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

type UpdateStatusCommand struct {
	SubscriptionID uint
	Status         string
	// CancelImmediately ends the subscription now instead of at the end of
	// the prepaid term.
	CancelImmediately bool
}

type UpdateStatusResult struct {
	Subscription *dto.SubscriptionDTO
	From         string
	To           string
}

type UpdateStatusUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	capabilities     subscription.CapabilityResolver
	publisher        events.EventPublisher
	clock            biztime.Clock
	logger           logger.Interface
}

func NewUpdateStatusUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	capabilities subscription.CapabilityResolver,
	publisher events.EventPublisher,
	clock biztime.Clock,
	logger logger.Interface,
) *UpdateStatusUseCase {
	return &UpdateStatusUseCase{
		subscriptionRepo: subscriptionRepo,
		capabilities:     capabilities,
		publisher:        publisher,
		clock:            clock,
		logger:           logger,
	}
}

func (uc *UpdateStatusUseCase) Execute(ctx context.Context, cmd UpdateStatusCommand) (*UpdateStatusResult, error) {
	if cmd.Status == "" {
		return nil, errors.NewValidationError("status is required")
	}

	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionID, uc.logger)
	if err != nil {
		return nil, err
	}

	from := sub.Status()
	now := uc.clock.Now()
	caps := sub.EffectiveCapabilities(uc.capabilities.Capabilities(ctx, sub.PaymentMethod()))

	if err := sub.UpdateStatus(cmd.Status, subscription.TransitionContext{
		Capabilities:      caps,
		Now:               now,
		CancelImmediately: cmd.CancelImmediately,
	}); err != nil {
		uc.logger.Warnw("subscription status change rejected",
			"subscription_id", cmd.SubscriptionID,
			"from", from,
			"to", cmd.Status,
			"error", err,
		)
		return nil, toAppError(err)
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		uc.logger.Errorw("failed to update subscription", "error", err, "subscription_id", cmd.SubscriptionID)
		return nil, toAppError(err)
	}

	publishChanges(ctx, uc.publisher, sub, now, uc.logger)

	uc.logger.Infow("subscription status updated successfully",
		"subscription_id", cmd.SubscriptionID,
		"from", from,
		"to", sub.Status(),
	)

	return &UpdateStatusResult{
		Subscription: dto.ToSubscriptionDTO(sub),
		From:         string(from),
		To:           string(sub.Status()),
	}, nil
}

type SwitchSubscriptionCommand struct {
	SubscriptionID uint
}

// SwitchSubscriptionUseCase marks a subscription as replaced by another one.
type SwitchSubscriptionUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	publisher        events.EventPublisher
	clock            biztime.Clock
	logger           logger.Interface
}

func NewSwitchSubscriptionUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	publisher events.EventPublisher,
	clock biztime.Clock,
	logger logger.Interface,
) *SwitchSubscriptionUseCase {
	return &SwitchSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		publisher:        publisher,
		clock:            clock,
		logger:           logger,
	}
}

func (uc *SwitchSubscriptionUseCase) Execute(ctx context.Context, cmd SwitchSubscriptionCommand) (*dto.SubscriptionDTO, error) {
	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionID, uc.logger)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	if err := sub.MarkSwitched(now); err != nil {
		return nil, toAppError(err)
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		uc.logger.Errorw("failed to update subscription", "error", err, "subscription_id", cmd.SubscriptionID)
		return nil, toAppError(err)
	}

	publishChanges(ctx, uc.publisher, sub, now, uc.logger)

	uc.logger.Infow("subscription switched", "subscription_id", cmd.SubscriptionID)

	return dto.ToSubscriptionDTO(sub), nil
}
