package usecases

import (
	"context"

	"github.com/orris-inc/subsync/internal/application/subscription/dto"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

type GetSubscriptionQuery struct {
	SubscriptionID uint
}

type GetSubscriptionUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	logger           logger.Interface
}

func NewGetSubscriptionUseCase(subscriptionRepo subscription.SubscriptionRepository, logger logger.Interface) *GetSubscriptionUseCase {
	return &GetSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

func (uc *GetSubscriptionUseCase) Execute(ctx context.Context, query GetSubscriptionQuery) (*dto.SubscriptionDTO, error) {
	sub, err := loadSubscription(ctx, uc.subscriptionRepo, query.SubscriptionID, uc.logger)
	if err != nil {
		return nil, err
	}

	uc.logger.Debugw("subscription retrieved successfully",
		"subscription_id", query.SubscriptionID,
		"status", sub.Status(),
	)

	return dto.ToSubscriptionDTO(sub), nil
}
