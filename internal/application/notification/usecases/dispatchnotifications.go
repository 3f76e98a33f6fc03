package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/subsync/internal/domain/notification"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

const defaultDispatchBatchSize = 100

// DispatchDueNotificationsUseCase claims due notification tasks and hands
// them to the notifier.
type DispatchDueNotificationsUseCase struct {
	queue     notification.TaskQueue
	notifier  notification.Notifier
	clock     biztime.Clock
	batchSize int
	logger    logger.Interface
}

func NewDispatchDueNotificationsUseCase(
	queue notification.TaskQueue,
	notifier notification.Notifier,
	clock biztime.Clock,
	batchSize int,
	logger logger.Interface,
) *DispatchDueNotificationsUseCase {
	if batchSize <= 0 {
		batchSize = defaultDispatchBatchSize
	}
	return &DispatchDueNotificationsUseCase{
		queue:     queue,
		notifier:  notifier,
		clock:     clock,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Execute delivers one batch of due notifications and returns how many were
// delivered.
func (uc *DispatchDueNotificationsUseCase) Execute(ctx context.Context) (int, error) {
	due, err := uc.queue.ClaimDue(ctx, notification.TaskGroup, uc.clock.Now(), uc.batchSize)
	if err != nil {
		uc.logger.Errorw("failed to claim due notifications", "error", err)
		return 0, fmt.Errorf("failed to claim due notifications: %w", err)
	}

	delivered := 0
	for _, task := range due {
		notificationType, err := task.NotificationType()
		if err != nil {
			uc.markFailed(ctx, task, err)
			continue
		}

		n := notification.Notification{
			Type:           notificationType,
			SubscriptionID: task.Args.SubscriptionID,
			ScheduledFor:   task.FireAt,
			TaskID:         task.ID,
		}
		if err := uc.notifier.Notify(ctx, n); err != nil {
			uc.markFailed(ctx, task, err)
			continue
		}

		if err := uc.queue.MarkComplete(ctx, task.ID); err != nil {
			uc.logger.Warnw("failed to mark notification task complete",
				"task_id", task.ID,
				"error", err,
			)
		}
		delivered++
	}

	if len(due) > 0 {
		uc.logger.Infow("due notifications dispatched",
			"claimed", len(due),
			"delivered", delivered,
		)
	}

	return delivered, nil
}

func (uc *DispatchDueNotificationsUseCase) markFailed(ctx context.Context, task notification.TaskHandle, cause error) {
	uc.logger.Warnw("failed to deliver notification",
		"task_id", task.ID,
		"hook", task.Hook,
		"subscription_id", task.Args.SubscriptionID,
		"error", cause,
	)
	if err := uc.queue.MarkFailed(ctx, task.ID, cause.Error()); err != nil {
		uc.logger.Warnw("failed to mark notification task failed",
			"task_id", task.ID,
			"error", err,
		)
	}
}
