package notification

import (
	"context"
	"time"
)

// TaskScheduler stores deferred tasks keyed by (hook, args, group).
type TaskScheduler interface {
	// Schedule creates a pending task, replacing the fire time of an existing
	// pending task with the same key. It returns ErrTaskInFlight when the key
	// has a running task.
	Schedule(ctx context.Context, hook string, args TaskArgs, fireAt time.Time, group string, opts ...ScheduleOption) (TaskHandle, error)
	// Cancel cancels the pending task of the key. Missing tasks are not an error.
	Cancel(ctx context.Context, hook string, args TaskArgs, group string) error
	// NextPending returns the pending task of the key, or nil.
	NextPending(ctx context.Context, hook string, args TaskArgs, group string) (*TaskHandle, error)
	// Latest returns the most recently created task of the key in one of the
	// given statuses, or nil.
	Latest(ctx context.Context, hook string, args TaskArgs, group string, statuses []TaskStatus) (*TaskHandle, error)
	// ListPending returns tasks of the group in the given statuses. An empty
	// hook matches every hook.
	ListPending(ctx context.Context, hook, group string, statuses []TaskStatus) ([]TaskHandle, error)
	// Reschedule moves a pending task. A DueAt option replaces the recorded
	// due date.
	Reschedule(ctx context.Context, handle TaskHandle, fireAt time.Time, opts ...ScheduleOption) error
	// CancelAll cancels every pending task of the group.
	CancelAll(ctx context.Context, group string) (int, error)
}

// TaskQueue is the worker side of the scheduler.
type TaskQueue interface {
	// ClaimDue moves up to limit due pending tasks to running and returns them.
	ClaimDue(ctx context.Context, group string, now time.Time, limit int) ([]TaskHandle, error)
	MarkComplete(ctx context.Context, taskID string) error
	MarkFailed(ctx context.Context, taskID string, reason string) error
}

// PolicyRepository persists the notification policy.
type PolicyRepository interface {
	// Get returns nil without error when no policy has been stored.
	Get(ctx context.Context) (*Policy, error)
	Save(ctx context.Context, policy Policy) error
}

// PolicyProvider supplies the policy currently in force.
type PolicyProvider interface {
	GetPolicy(ctx context.Context) (Policy, error)
}

// Notifier hands a due notification to the delivery channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
