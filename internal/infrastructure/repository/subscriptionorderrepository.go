package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/subsync/internal/domain/subscription"
	"github.com/orris-inc/subsync/internal/infrastructure/persistence/models"
	"github.com/orris-inc/subsync/internal/shared/db"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// SubscriptionOrderRepository stores the orders linked to subscriptions and
// counts them for trial and payment decisions.
type SubscriptionOrderRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewSubscriptionOrderRepository(db *gorm.DB, logger logger.Interface) *SubscriptionOrderRepository {
	return &SubscriptionOrderRepository{db: db, logger: logger}
}

func (r *SubscriptionOrderRepository) RecordOrder(ctx context.Context, subscriptionID uint, orderType subscription.OrderType, outcome subscription.PaymentOutcome, createdAt time.Time) error {
	model := &models.SubscriptionOrderModel{
		SubscriptionID: subscriptionID,
		OrderType:      string(orderType),
		PaymentOutcome: string(outcome),
		CreatedAt:      createdAt.UTC(),
	}
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to record subscription order", "subscription_id", subscriptionID, "error", err)
		return fmt.Errorf("failed to record subscription order: %w", err)
	}
	return nil
}

// CountOrders counts orders of the given types and outcomes. Empty filters
// match everything.
func (r *SubscriptionOrderRepository) CountOrders(ctx context.Context, subscriptionID uint, orderTypes []subscription.OrderType, outcomes []subscription.PaymentOutcome) (int, error) {
	query := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionOrderModel{}).
		Where("subscription_id = ?", subscriptionID)

	if len(orderTypes) > 0 {
		types := make([]string, len(orderTypes))
		for i, t := range orderTypes {
			types[i] = string(t)
		}
		query = query.Where("order_type IN ?", types)
	}
	if len(outcomes) > 0 {
		values := make([]string, len(outcomes))
		for i, o := range outcomes {
			values[i] = string(o)
		}
		query = query.Where("payment_outcome IN ?", values)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		r.logger.Errorw("failed to count subscription orders", "subscription_id", subscriptionID, "error", err)
		return 0, fmt.Errorf("failed to count subscription orders: %w", err)
	}
	return int(count), nil
}
