package notification

import (
	"time"

	vo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
)

// TaskGroup is the scheduler group every notification task belongs to.
const TaskGroup = "subsync_notifications"

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusComplete  TaskStatus = "complete"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// ActiveTaskStatuses are the statuses for which at most one task may exist
// per key.
var ActiveTaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusRunning}

// TaskArgs identifies the subject of a task.
type TaskArgs struct {
	SubscriptionID uint `json:"subscription_id"`
}

// TaskHandle is a task as known by the scheduler.
type TaskHandle struct {
	ID     string
	Hook   string
	Args   TaskArgs
	Group  string
	FireAt time.Time
	// DueAt is the subscription date the notice is about.
	DueAt  time.Time
	Status TaskStatus
}

// ScheduleOptions carries optional task attributes.
type ScheduleOptions struct {
	DueAt time.Time
}

type ScheduleOption func(*ScheduleOptions)

// WithDueAt records the subscription date a task announces.
func WithDueAt(t time.Time) ScheduleOption {
	return func(o *ScheduleOptions) {
		o.DueAt = t
	}
}

// ApplyScheduleOptions folds opts into a ScheduleOptions value.
func ApplyScheduleOptions(opts ...ScheduleOption) ScheduleOptions {
	var o ScheduleOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NotificationType resolves the type from the hook name.
func (h TaskHandle) NotificationType() (vo.NotificationType, error) {
	return vo.TypeFromHook(h.Hook)
}

// Notification is what gets delivered when a task fires.
type Notification struct {
	Type           vo.NotificationType
	SubscriptionID uint
	ScheduledFor   time.Time
	TaskID         string
}
