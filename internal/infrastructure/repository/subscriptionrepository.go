package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/subsync/internal/domain/subscription"
	"github.com/orris-inc/subsync/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/subsync/internal/infrastructure/persistence/models"
	"github.com/orris-inc/subsync/internal/shared/db"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(
	db *gorm.DB,
	logger logger.Interface,
) *SubscriptionRepositoryImpl {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, subscriptionEntity *subscription.Subscription) error {
	model := r.mapper.ToModel(subscriptionEntity)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create subscription in database", "error", err)
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := subscriptionEntity.SetID(model.ID); err != nil {
		r.logger.Errorw("failed to set subscription ID", "error", err)
		return fmt.Errorf("failed to set subscription ID: %w", err)
	}
	subscriptionEntity.MarkPersisted()

	r.logger.Infow("subscription created successfully", "id", model.ID, "customer_id", model.CustomerID, "status", model.Status)
	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	entity, err := r.mapper.ToEntity(&model)
	if err != nil {
		r.logger.Errorw("failed to map subscription model to entity", "id", id, "error", err)
		return nil, fmt.Errorf("failed to map subscription: %w", err)
	}

	return entity, nil
}

// Update writes every column. The row must still carry the version the
// entity was loaded with; otherwise it is left untouched and
// ErrVersionConflict is returned.
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, subscriptionEntity *subscription.Subscription) error {
	model := r.mapper.ToModel(subscriptionEntity)
	expected := subscriptionEntity.PersistedVersion()
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Model(&models.SubscriptionModel{}).
		Where("id = ? AND version = ?", model.ID, expected).
		Updates(map[string]interface{}{
			"customer_id":             model.CustomerID,
			"status":                  model.Status,
			"billing_period":          model.BillingPeriod,
			"billing_interval":        model.BillingInterval,
			"trial_period":            model.TrialPeriod,
			"trial_length":            model.TrialLength,
			"requires_manual_renewal": model.RequiresManualRenewal,
			"payment_method":          model.PaymentMethod,
			"suspension_count":        model.SuspensionCount,
			"date_created":            model.DateCreated,
			"start_date":              model.StartDate,
			"trial_end":               model.TrialEnd,
			"next_payment":            model.NextPayment,
			"last_order_created":      model.LastOrderCreated,
			"end_date":                model.EndDate,
			"notifications_synced_at": model.NotificationsSyncedAt,
			"version":                 model.Version,
			"updated_at":              model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}

	// RowsAffected may be 0 when updated values are identical to existing
	// values, so the stored row decides between missing and stale.
	if result.RowsAffected == 0 {
		var stored models.SubscriptionModel
		err := tx.Select("id", "version").First(&stored, model.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return subscription.ErrSubscriptionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check subscription version: %w", err)
		}
		if stored.Version != expected {
			r.logger.Warnw("subscription update rejected, stored version changed",
				"id", model.ID,
				"stored_version", stored.Version,
				"expected_version", expected,
			)
			return subscription.ErrVersionConflict
		}
	}

	subscriptionEntity.MarkPersisted()
	r.logger.Debugw("subscription updated", "id", model.ID, "version", model.Version)
	return nil
}

// pendingReconciliation selects subscriptions never reconciled or reconciled
// before syncedBefore.
func pendingReconciliation(syncedBefore time.Time) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("notifications_synced_at IS NULL OR notifications_synced_at < ?", syncedBefore.UTC())
	}
}

func (r *SubscriptionRepositoryImpl) FindIDsPendingReconciliation(ctx context.Context, syncedBefore time.Time, limit int) ([]uint, error) {
	var ids []uint

	query := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Scopes(pendingReconciliation(syncedBefore)).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Pluck("id", &ids).Error; err != nil {
		r.logger.Errorw("failed to find subscriptions pending reconciliation", "error", err)
		return nil, fmt.Errorf("failed to find subscriptions pending reconciliation: %w", err)
	}
	return ids, nil
}

func (r *SubscriptionRepositoryImpl) CountPendingReconciliation(ctx context.Context, syncedBefore time.Time) (int64, error) {
	var count int64

	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Scopes(pendingReconciliation(syncedBefore)).
		Count(&count).Error; err != nil {
		r.logger.Errorw("failed to count subscriptions pending reconciliation", "error", err)
		return 0, fmt.Errorf("failed to count subscriptions pending reconciliation: %w", err)
	}
	return count, nil
}

// MarkNotificationsSynced stamps the marker only; the version is not bumped
// so concurrent status changes are never rejected because of a sync run.
func (r *SubscriptionRepositoryImpl) MarkNotificationsSynced(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("id IN ?", ids).
		UpdateColumn("notifications_synced_at", at.UTC().Truncate(time.Second)).Error; err != nil {
		r.logger.Errorw("failed to mark notifications synced", "count", len(ids), "error", err)
		return fmt.Errorf("failed to mark notifications synced: %w", err)
	}
	return nil
}
