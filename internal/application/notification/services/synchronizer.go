package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orris-inc/subsync/internal/domain/notification"
	nvo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	svo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// SyncResult counts the scheduler operations issued by one Sync call.
type SyncResult struct {
	Added   int
	Updated int
	Deleted int
	// Failed counts scheduler operations that returned an error.
	Failed int
	// Skipped is set when notifications are disabled.
	Skipped bool
}

// Changed reports whether any operation was applied.
func (r SyncResult) Changed() bool {
	return r.Added+r.Updated+r.Deleted > 0
}

// NotificationSynchronizer keeps the scheduled notification tasks of a
// subscription in line with its status and dates.
type NotificationSynchronizer struct {
	scheduler notification.TaskScheduler
	policies  notification.PolicyProvider
	clock     biztime.Clock
	logger    logger.Interface
}

func NewNotificationSynchronizer(
	scheduler notification.TaskScheduler,
	policies notification.PolicyProvider,
	clock biztime.Clock,
	logger logger.Interface,
) *NotificationSynchronizer {
	return &NotificationSynchronizer{
		scheduler: scheduler,
		policies:  policies,
		clock:     clock,
		logger:    logger,
	}
}

// requiredTask is a notification that should be pending for a subscription.
type requiredTask struct {
	fireAt time.Time
	dueAt  time.Time
	// clamped is set when the ideal fire time had already passed.
	clamped bool
}

// Sync diffs the required notification set against the pending or running
// tasks and applies the difference. A notice already delivered for the same
// subscription date is not scheduled again. Scheduler failures are logged
// and counted in the result; only a failure to read the policy is returned.
func (s *NotificationSynchronizer) Sync(ctx context.Context, sub *subscription.Subscription) (SyncResult, error) {
	var result SyncResult
	if sub == nil {
		return result, nil
	}

	policy, err := s.policies.GetPolicy(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load notification policy: %w", err)
	}
	if !policy.Enabled {
		result.Skipped = true
		return result, nil
	}

	now := s.clock.Now()
	required := s.requiredTasks(sub, policy, now)

	for _, notificationType := range nvo.AllNotificationTypes {
		want, isRequired := required[notificationType]
		if err := s.syncType(ctx, sub.ID(), notificationType, want, isRequired, now, &result); err != nil {
			result.Failed++
			s.logger.Warnw("failed to synchronize notification",
				"subscription_id", sub.ID(),
				"type", notificationType,
				"error", err,
			)
		}
	}

	if result.Changed() || result.Failed > 0 {
		s.logger.Debugw("notifications synchronized",
			"subscription_id", sub.ID(),
			"status", sub.Status(),
			"added", result.Added,
			"updated", result.Updated,
			"deleted", result.Deleted,
			"failed", result.Failed,
		)
	}

	return result, nil
}

// syncType applies the diff for one notification type. A running task is
// left alone; the next sync after it finishes picks up any change.
func (s *NotificationSynchronizer) syncType(
	ctx context.Context,
	subscriptionID uint,
	notificationType nvo.NotificationType,
	want requiredTask,
	isRequired bool,
	now time.Time,
	result *SyncResult,
) error {
	hook := notificationType.Hook()
	args := notification.TaskArgs{SubscriptionID: subscriptionID}

	current, err := s.scheduler.Latest(ctx, hook, args, notification.TaskGroup, notification.ActiveTaskStatuses)
	if err != nil {
		return fmt.Errorf("failed to look up scheduled notification: %w", err)
	}
	if current != nil && current.Status == notification.TaskStatusRunning {
		return nil
	}

	switch {
	case isRequired && current == nil:
		delivered, err := s.scheduler.Latest(ctx, hook, args, notification.TaskGroup,
			[]notification.TaskStatus{notification.TaskStatusComplete})
		if err != nil {
			return fmt.Errorf("failed to look up delivered notification: %w", err)
		}
		if delivered != nil && delivered.DueAt.Equal(want.dueAt) {
			return nil
		}

		_, err = s.scheduler.Schedule(ctx, hook, args, want.fireAt, notification.TaskGroup, notification.WithDueAt(want.dueAt))
		if errors.Is(err, notification.ErrTaskInFlight) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to schedule notification at %s: %w", biztime.FormatMySQL(want.fireAt), err)
		}
		result.Added++

	case isRequired && current != nil:
		if !needsReschedule(*current, want, now) {
			return nil
		}
		if err := s.scheduler.Reschedule(ctx, *current, want.fireAt, notification.WithDueAt(want.dueAt)); err != nil {
			return fmt.Errorf("failed to reschedule notification %s: %w", current.ID, err)
		}
		result.Updated++

	case !isRequired && current != nil:
		if err := s.scheduler.Cancel(ctx, hook, args, notification.TaskGroup); err != nil {
			return fmt.Errorf("failed to cancel notification: %w", err)
		}
		result.Deleted++
	}

	return nil
}

// RequiredTasks exposes the computed task set, keyed by type, with fire times.
func (s *NotificationSynchronizer) RequiredTasks(sub *subscription.Subscription, policy notification.Policy) map[nvo.NotificationType]time.Time {
	out := make(map[nvo.NotificationType]time.Time)
	for t, r := range s.requiredTasks(sub, policy, s.clock.Now()) {
		out[t] = r.fireAt
	}
	return out
}

func (s *NotificationSynchronizer) requiredTasks(sub *subscription.Subscription, policy notification.Policy, now time.Time) map[nvo.NotificationType]requiredTask {
	required := make(map[nvo.NotificationType]requiredTask)

	// A cadence no longer than the offset leaves no room for advance notice.
	if sub.BillingCycleDays() <= policy.Offset.Days() {
		return required
	}

	status := sub.Status()
	offset := policy.Offset.Duration()
	inFuture := func(t time.Time) bool { return !t.IsZero() && t.After(now) }

	if status.IsLive() {
		trialEnd := sub.Date(svo.DateTrialEnd)
		nextPayment := sub.Date(svo.DateNextPayment)

		if inFuture(trialEnd) {
			required[nvo.NotificationTypeTrialExpiration] = fireTime(trialEnd, offset, now)
		} else if inFuture(nextPayment) && (!sub.RequiresManualRenewal() || policy.NotifiesManualRenewals()) {
			required[nvo.NotificationTypeRenewal] = fireTime(nextPayment, offset, now)
		}
	}

	end := sub.Date(svo.DateEnd)
	if inFuture(end) && expirationNoticeAllowed(status) {
		required[nvo.NotificationTypeExpiration] = fireTime(end, offset, now)
	}

	return required
}

// expirationNoticeAllowed excludes statuses whose term is already over.
func expirationNoticeAllowed(status svo.SubscriptionStatus) bool {
	switch status {
	case svo.StatusExpired, svo.StatusSwitched, svo.StatusTrash:
		return false
	}
	return true
}

func fireTime(date time.Time, offset time.Duration, now time.Time) requiredTask {
	at := date.Add(-offset)
	if at.Before(now) {
		return requiredTask{fireAt: now, dueAt: date, clamped: true}
	}
	return requiredTask{fireAt: at, dueAt: date}
}

// needsReschedule treats a clamped fire time as matching any task already
// due, so repeated syncs do not chase the clock.
func needsReschedule(current notification.TaskHandle, want requiredTask, now time.Time) bool {
	if !current.DueAt.Equal(want.dueAt) {
		return true
	}
	if current.FireAt.Equal(want.fireAt) {
		return false
	}
	if want.clamped && !current.FireAt.After(now) {
		return false
	}
	return true
}
