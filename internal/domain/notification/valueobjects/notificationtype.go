package valueobjects

import "fmt"

// NotificationType is the kind of customer notification scheduled for a
// subscription date.
type NotificationType string

const (
	NotificationTypeRenewal         NotificationType = "renewal"
	NotificationTypeTrialExpiration NotificationType = "trial_expiration"
	NotificationTypeExpiration      NotificationType = "expiration"
)

const hookPrefix = "subsync_notification_"

// AllNotificationTypes lists every type in a stable order.
var AllNotificationTypes = []NotificationType{
	NotificationTypeRenewal,
	NotificationTypeTrialExpiration,
	NotificationTypeExpiration,
}

var validNotificationTypes = map[NotificationType]bool{
	NotificationTypeRenewal:         true,
	NotificationTypeTrialExpiration: true,
	NotificationTypeExpiration:      true,
}

func (t NotificationType) String() string {
	return string(t)
}

func (t NotificationType) IsValid() bool {
	return validNotificationTypes[t]
}

// Hook is the scheduler hook name tasks of this type are registered under.
func (t NotificationType) Hook() string {
	return hookPrefix + string(t)
}

func NewNotificationType(s string) (NotificationType, error) {
	t := NotificationType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid notification type: %s", s)
	}
	return t, nil
}

// TypeFromHook resolves the notification type of a scheduler hook.
func TypeFromHook(hook string) (NotificationType, error) {
	for _, t := range AllNotificationTypes {
		if t.Hook() == hook {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown notification hook: %s", hook)
}
