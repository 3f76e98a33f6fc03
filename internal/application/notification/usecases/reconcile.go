package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/subsync/internal/domain/notification"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

const defaultReconcileBatchSize = 50

// ReconciliationBatchProcessor re-synchronizes, in bounded batches, the
// subscriptions whose notifications were computed under an older policy.
type ReconciliationBatchProcessor struct {
	subscriptionRepo subscription.SubscriptionRepository
	scheduler        notification.TaskScheduler
	policies         notification.PolicyProvider
	synchronizer     Synchronizer
	batchSize        int
	maxBatches       int
	logger           logger.Interface
}

// NewReconciliationBatchProcessor creates the processor. maxBatches bounds a
// single Execute run; zero means until nothing is pending.
func NewReconciliationBatchProcessor(
	subscriptionRepo subscription.SubscriptionRepository,
	scheduler notification.TaskScheduler,
	policies notification.PolicyProvider,
	synchronizer Synchronizer,
	batchSize int,
	maxBatches int,
	logger logger.Interface,
) *ReconciliationBatchProcessor {
	if batchSize <= 0 {
		batchSize = defaultReconcileBatchSize
	}
	return &ReconciliationBatchProcessor{
		subscriptionRepo: subscriptionRepo,
		scheduler:        scheduler,
		policies:         policies,
		synchronizer:     synchronizer,
		batchSize:        batchSize,
		maxBatches:       maxBatches,
		logger:           logger,
	}
}

// PendingCount returns how many subscriptions still need reconciliation.
// Nothing is pending while notifications are disabled.
func (p *ReconciliationBatchProcessor) PendingCount(ctx context.Context) (int, error) {
	policy, err := p.policies.GetPolicy(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load notification policy: %w", err)
	}
	if !policy.Enabled {
		return 0, nil
	}

	count, err := p.subscriptionRepo.CountPendingReconciliation(ctx, policy.LastChangedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending subscriptions: %w", err)
	}
	return int(count), nil
}

// NextBatch returns up to size subscription IDs pending reconciliation.
func (p *ReconciliationBatchProcessor) NextBatch(ctx context.Context, size int) ([]uint, error) {
	if size <= 0 {
		size = p.batchSize
	}

	policy, err := p.policies.GetPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification policy: %w", err)
	}
	if !policy.Enabled {
		return nil, nil
	}

	ids, err := p.subscriptionRepo.FindIDsPendingReconciliation(ctx, policy.LastChangedAt, size)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending subscriptions: %w", err)
	}
	return ids, nil
}

// ProcessBatch syncs each subscription and stamps its reconciliation marker
// with the policy version in force when the batch started.
// When notifications are disabled it cancels every pending notification
// instead. It returns the number of subscriptions marked as synced.
func (p *ReconciliationBatchProcessor) ProcessBatch(ctx context.Context, ids []uint) (int, error) {
	policy, err := p.policies.GetPolicy(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load notification policy: %w", err)
	}
	if !policy.Enabled {
		if _, err := p.CancelAllNotifications(ctx); err != nil {
			return 0, err
		}
		return 0, nil
	}

	synced := make([]uint, 0, len(ids))
	var added, updated, deleted, failed int

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			break
		}

		sub, err := p.subscriptionRepo.GetByID(ctx, id)
		if err != nil {
			p.logger.Warnw("failed to load subscription for reconciliation",
				"subscription_id", id,
				"error", err,
			)
			continue
		}
		if sub == nil {
			// Nothing to schedule; mark it so it stops showing up as pending.
			synced = append(synced, id)
			continue
		}

		result, err := p.synchronizer.Sync(ctx, sub)
		if err != nil {
			p.logger.Warnw("failed to reconcile subscription notifications",
				"subscription_id", id,
				"error", err,
			)
			continue
		}

		added += result.Added
		updated += result.Updated
		deleted += result.Deleted
		failed += result.Failed
		synced = append(synced, id)
	}

	if len(synced) > 0 {
		// Stamp the policy version read above. A change landing mid-batch
		// leaves these subscriptions pending for the next pass.
		if err := p.subscriptionRepo.MarkNotificationsSynced(ctx, synced, policy.SyncMarker()); err != nil {
			return 0, fmt.Errorf("failed to mark subscriptions as synced: %w", err)
		}
	}

	p.logger.Infow("reconciliation batch processed",
		"requested", len(ids),
		"synced", len(synced),
		"added", added,
		"updated", updated,
		"deleted", deleted,
		"failed", failed,
	)

	return len(synced), nil
}

// CancelAllNotifications cancels every pending notification task in one bulk
// operation, bypassing per-subscription diffing.
func (p *ReconciliationBatchProcessor) CancelAllNotifications(ctx context.Context) (int, error) {
	cancelled, err := p.scheduler.CancelAll(ctx, notification.TaskGroup)
	if err != nil {
		p.logger.Errorw("failed to cancel pending notifications", "error", err)
		return 0, fmt.Errorf("failed to cancel pending notifications: %w", err)
	}
	if cancelled > 0 {
		p.logger.Infow("pending notifications cancelled", "count", cancelled)
	}
	return cancelled, nil
}

// Execute runs batches until nothing is pending, the batch limit is reached
// or ctx is done. It returns the number of subscriptions reconciled.
func (p *ReconciliationBatchProcessor) Execute(ctx context.Context) (int, error) {
	policy, err := p.policies.GetPolicy(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load notification policy: %w", err)
	}
	if !policy.Enabled {
		_, err := p.CancelAllNotifications(ctx)
		return 0, err
	}

	total := 0
	for batch := 0; p.maxBatches == 0 || batch < p.maxBatches; batch++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		ids, err := p.NextBatch(ctx, p.batchSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			break
		}

		processed, err := p.ProcessBatch(ctx, ids)
		total += processed
		if err != nil {
			return total, err
		}
		// Every subscription in the batch failed; retry on the next run.
		if processed == 0 {
			break
		}
	}

	return total, nil
}
