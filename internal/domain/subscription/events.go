package subscription

import (
	"time"

	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
)

const (
	EventTypeSubscriptionCreated = "subscription.created"
	EventTypeDateChanged         = "subscription.date_changed"
	EventTypeStatusChanged       = "subscription.status_changed"

	// EventTypeScheduleChanged is published once per saved mutation so that
	// notification tasks are recomputed a single time.
	EventTypeScheduleChanged = "subscription.schedule_changed"
)

// SubscriptionCreatedEvent is published once the repository assigned an ID.
type SubscriptionCreatedEvent struct {
	SubscriptionID uint
	CustomerID     uint
	Status         vo.SubscriptionStatus
	OccurredAt     time.Time
}

func NewSubscriptionCreatedEvent(sub *Subscription, occurredAt time.Time) *SubscriptionCreatedEvent {
	return &SubscriptionCreatedEvent{
		SubscriptionID: sub.ID(),
		CustomerID:     sub.CustomerID(),
		Status:         sub.Status(),
		OccurredAt:     occurredAt,
	}
}

func (e *SubscriptionCreatedEvent) GetEventType() string {
	return EventTypeSubscriptionCreated
}

func (e *SubscriptionCreatedEvent) GetOccurredAt() time.Time {
	return e.OccurredAt
}

func (e *SubscriptionCreatedEvent) GetAggregateID() uint {
	return e.SubscriptionID
}

// DateChangedEvent is recorded for each slot whose value changed. A zero
// NewValue means the slot was cleared.
type DateChangedEvent struct {
	SubscriptionID uint
	DateType       vo.DateType
	NewValue       time.Time
	OccurredAt     time.Time
}

func (e *DateChangedEvent) GetEventType() string {
	return EventTypeDateChanged
}

func (e *DateChangedEvent) GetOccurredAt() time.Time {
	return e.OccurredAt
}

func (e *DateChangedEvent) GetAggregateID() uint {
	return e.SubscriptionID
}

type StatusChangedEvent struct {
	SubscriptionID uint
	CustomerID     uint
	From           vo.SubscriptionStatus
	To             vo.SubscriptionStatus
	OccurredAt     time.Time
}

func (e *StatusChangedEvent) GetEventType() string {
	return EventTypeStatusChanged
}

func (e *StatusChangedEvent) GetOccurredAt() time.Time {
	return e.OccurredAt
}

func (e *StatusChangedEvent) GetAggregateID() uint {
	return e.SubscriptionID
}

type ScheduleChangedEvent struct {
	SubscriptionID uint
	OccurredAt     time.Time
}

func NewScheduleChangedEvent(subscriptionID uint, occurredAt time.Time) *ScheduleChangedEvent {
	return &ScheduleChangedEvent{SubscriptionID: subscriptionID, OccurredAt: occurredAt}
}

func (e *ScheduleChangedEvent) GetEventType() string {
	return EventTypeScheduleChanged
}

func (e *ScheduleChangedEvent) GetOccurredAt() time.Time {
	return e.OccurredAt
}

func (e *ScheduleChangedEvent) GetAggregateID() uint {
	return e.SubscriptionID
}
