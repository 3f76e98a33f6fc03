// Package taskqueue stores deferred notification tasks in the database.
package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orris-inc/subsync/internal/domain/notification"
	"github.com/orris-inc/subsync/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/subsync/internal/infrastructure/persistence/models"
	"github.com/orris-inc/subsync/internal/shared/db"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

const maxErrorLength = 512

// GormTaskScheduler implements notification.TaskScheduler and
// notification.TaskQueue on the scheduled_tasks table. A task is keyed by
// (hook, subscription, group); at most one pending or running task exists
// per key.
type GormTaskScheduler struct {
	db     *gorm.DB
	txMgr  *db.TransactionManager
	logger logger.Interface
}

func NewGormTaskScheduler(gdb *gorm.DB, logger logger.Interface) *GormTaskScheduler {
	return &GormTaskScheduler{
		db:     gdb,
		txMgr:  db.NewTransactionManager(gdb),
		logger: logger,
	}
}

func keyScope(hook string, args notification.TaskArgs, group string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("hook = ? AND subscription_id = ? AND group_name = ?", hook, args.SubscriptionID, group)
	}
}

func statusScope(statuses ...notification.TaskStatus) func(*gorm.DB) *gorm.DB {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status IN ?", values)
	}
}

// forUpdate locks the selected rows on databases that support it.
func forUpdate(tx *gorm.DB, skipLocked bool) *gorm.DB {
	if tx.Dialector.Name() != "mysql" {
		return tx
	}
	locking := clause.Locking{Strength: "UPDATE"}
	if skipLocked {
		locking.Options = "SKIP LOCKED"
	}
	return tx.Clauses(locking)
}

func (s *GormTaskScheduler) Schedule(ctx context.Context, hook string, args notification.TaskArgs, fireAt time.Time, group string, opts ...notification.ScheduleOption) (notification.TaskHandle, error) {
	var handle notification.TaskHandle
	fireAt = fireAt.UTC()
	options := notification.ApplyScheduleOptions(opts...)

	err := s.txMgr.RunInTransaction(ctx, func(ctx context.Context) error {
		tx := db.GetTxFromContext(ctx, s.db)

		var existing models.ScheduledTaskModel
		err := forUpdate(tx, false).
			Scopes(keyScope(hook, args, group), statusScope(notification.ActiveTaskStatuses...)).
			Order("id ASC").
			First(&existing).Error
		switch {
		case err == nil:
			if existing.Status == string(notification.TaskStatusRunning) {
				return notification.ErrTaskInFlight
			}
			updates := map[string]interface{}{"fire_at": fireAt}
			if due := mappers.DueAtColumn(options.DueAt); due != nil {
				updates["due_at"] = due
				existing.DueAt = due
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to move scheduled task: %w", err)
			}
			existing.FireAt = fireAt
			handle, err = mappers.ToTaskHandle(&existing)
			return err
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to look up scheduled task: %w", err)
		}

		data, err := mappers.MarshalTaskArgs(args)
		if err != nil {
			return err
		}
		model := &models.ScheduledTaskModel{
			Hook:           hook,
			SubscriptionID: args.SubscriptionID,
			GroupName:      group,
			Status:         string(notification.TaskStatusPending),
			FireAt:         fireAt,
			DueAt:          mappers.DueAtColumn(options.DueAt),
			Args:           data,
		}
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("failed to create scheduled task: %w", err)
		}
		handle, err = mappers.ToTaskHandle(model)
		return err
	})
	if errors.Is(err, notification.ErrTaskInFlight) {
		s.logger.Debugw("task already running, not scheduled",
			"hook", hook,
			"subscription_id", args.SubscriptionID,
		)
		return notification.TaskHandle{}, err
	}
	if err != nil {
		s.logger.Errorw("failed to schedule task",
			"hook", hook,
			"subscription_id", args.SubscriptionID,
			"error", err,
		)
		return notification.TaskHandle{}, err
	}

	s.logger.Debugw("task scheduled",
		"task_id", handle.ID,
		"hook", hook,
		"subscription_id", args.SubscriptionID,
		"fire_at", handle.FireAt,
		"due_at", handle.DueAt,
	)
	return handle, nil
}

func (s *GormTaskScheduler) Cancel(ctx context.Context, hook string, args notification.TaskArgs, group string) error {
	result := db.GetTxFromContext(ctx, s.db).
		Model(&models.ScheduledTaskModel{}).
		Scopes(keyScope(hook, args, group), statusScope(notification.TaskStatusPending)).
		Update("status", string(notification.TaskStatusCancelled))
	if result.Error != nil {
		s.logger.Errorw("failed to cancel task", "hook", hook, "subscription_id", args.SubscriptionID, "error", result.Error)
		return fmt.Errorf("failed to cancel task: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Debugw("task cancelled", "hook", hook, "subscription_id", args.SubscriptionID)
	}
	return nil
}

func (s *GormTaskScheduler) NextPending(ctx context.Context, hook string, args notification.TaskArgs, group string) (*notification.TaskHandle, error) {
	var model models.ScheduledTaskModel
	err := db.GetTxFromContext(ctx, s.db).
		Scopes(keyScope(hook, args, group), statusScope(notification.TaskStatusPending)).
		Order("fire_at ASC, id ASC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending task: %w", err)
	}

	handle, err := mappers.ToTaskHandle(&model)
	if err != nil {
		return nil, err
	}
	return &handle, nil
}

func (s *GormTaskScheduler) Latest(ctx context.Context, hook string, args notification.TaskArgs, group string, statuses []notification.TaskStatus) (*notification.TaskHandle, error) {
	var model models.ScheduledTaskModel
	err := db.GetTxFromContext(ctx, s.db).
		Scopes(keyScope(hook, args, group), statusScope(statuses...)).
		Order("id DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up task: %w", err)
	}

	handle, err := mappers.ToTaskHandle(&model)
	if err != nil {
		return nil, err
	}
	return &handle, nil
}

// ListPending lists tasks of the group in the given statuses, pending when
// none are given.
func (s *GormTaskScheduler) ListPending(ctx context.Context, hook, group string, statuses []notification.TaskStatus) ([]notification.TaskHandle, error) {
	if len(statuses) == 0 {
		statuses = []notification.TaskStatus{notification.TaskStatusPending}
	}

	query := db.GetTxFromContext(ctx, s.db).
		Where("group_name = ?", group).
		Scopes(statusScope(statuses...))
	if hook != "" {
		query = query.Where("hook = ?", hook)
	}

	var list []*models.ScheduledTaskModel
	if err := query.Order("fire_at ASC, id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return mappers.ToTaskHandles(list)
}

func (s *GormTaskScheduler) Reschedule(ctx context.Context, handle notification.TaskHandle, fireAt time.Time, opts ...notification.ScheduleOption) error {
	updates := map[string]interface{}{"fire_at": fireAt.UTC()}
	if due := mappers.DueAtColumn(notification.ApplyScheduleOptions(opts...).DueAt); due != nil {
		updates["due_at"] = due
	}

	result := db.GetTxFromContext(ctx, s.db).
		Model(&models.ScheduledTaskModel{}).
		Where("uuid = ?", handle.ID).
		Scopes(statusScope(notification.TaskStatusPending)).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to reschedule task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notification.ErrTaskNotFound
	}
	return nil
}

func (s *GormTaskScheduler) CancelAll(ctx context.Context, group string) (int, error) {
	result := db.GetTxFromContext(ctx, s.db).
		Model(&models.ScheduledTaskModel{}).
		Where("group_name = ?", group).
		Scopes(statusScope(notification.TaskStatusPending)).
		Update("status", string(notification.TaskStatusCancelled))
	if result.Error != nil {
		s.logger.Errorw("failed to cancel tasks", "group", group, "error", result.Error)
		return 0, fmt.Errorf("failed to cancel tasks: %w", result.Error)
	}

	s.logger.Infow("pending tasks cancelled", "group", group, "count", result.RowsAffected)
	return int(result.RowsAffected), nil
}

// ClaimDue moves due pending tasks to running, oldest fire time first.
// Concurrent workers on mysql skip rows another worker has locked.
func (s *GormTaskScheduler) ClaimDue(ctx context.Context, group string, now time.Time, limit int) ([]notification.TaskHandle, error) {
	var claimed []*models.ScheduledTaskModel

	err := s.txMgr.RunInTransaction(ctx, func(ctx context.Context) error {
		tx := db.GetTxFromContext(ctx, s.db)

		query := forUpdate(tx, true).
			Model(&models.ScheduledTaskModel{}).
			Where("group_name = ? AND fire_at <= ?", group, now.UTC()).
			Scopes(statusScope(notification.TaskStatusPending)).
			Order("fire_at ASC, id ASC")
		if limit > 0 {
			query = query.Limit(limit)
		}

		var ids []uint
		if err := query.Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to find due tasks: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Model(&models.ScheduledTaskModel{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":   string(notification.TaskStatusRunning),
				"attempts": gorm.Expr("attempts + 1"),
			}).Error; err != nil {
			return fmt.Errorf("failed to claim due tasks: %w", err)
		}

		return tx.Where("id IN ?", ids).Order("fire_at ASC, id ASC").Find(&claimed).Error
	})
	if err != nil {
		s.logger.Errorw("failed to claim due tasks", "group", group, "error", err)
		return nil, err
	}

	return mappers.ToTaskHandles(claimed)
}

func (s *GormTaskScheduler) MarkComplete(ctx context.Context, taskID string) error {
	return s.finish(ctx, taskID, notification.TaskStatusComplete, "")
}

func (s *GormTaskScheduler) MarkFailed(ctx context.Context, taskID string, reason string) error {
	if len(reason) > maxErrorLength {
		reason = reason[:maxErrorLength]
	}
	return s.finish(ctx, taskID, notification.TaskStatusFailed, reason)
}

func (s *GormTaskScheduler) finish(ctx context.Context, taskID string, status notification.TaskStatus, reason string) error {
	result := db.GetTxFromContext(ctx, s.db).
		Model(&models.ScheduledTaskModel{}).
		Where("uuid = ?", taskID).
		Updates(map[string]interface{}{
			"status":     string(status),
			"last_error": reason,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark task %s: %w", status, result.Error)
	}
	if result.RowsAffected == 0 {
		return notification.ErrTaskNotFound
	}
	return nil
}
