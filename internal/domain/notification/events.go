package notification

import "time"

const EventTypePolicyChanged = "notification.policy_changed"

type PolicyChangedEvent struct {
	Previous   Policy
	Current    Policy
	OccurredAt time.Time
}

func (e *PolicyChangedEvent) GetEventType() string {
	return EventTypePolicyChanged
}

func (e *PolicyChangedEvent) GetOccurredAt() time.Time {
	return e.OccurredAt
}

// GetAggregateID returns 0, the policy is a singleton.
func (e *PolicyChangedEvent) GetAggregateID() uint {
	return 0
}

// Disabled reports whether the change turned notifications off.
func (e *PolicyChangedEvent) Disabled() bool {
	return e.Previous.Enabled && !e.Current.Enabled
}
