package valueobjects

import "strings"

type SubscriptionStatus string

const (
	StatusPending       SubscriptionStatus = "pending"
	StatusActive        SubscriptionStatus = "active"
	StatusOnHold        SubscriptionStatus = "on-hold"
	StatusPendingCancel SubscriptionStatus = "pending-cancel"
	StatusCancelled     SubscriptionStatus = "cancelled"
	StatusExpired       SubscriptionStatus = "expired"
	StatusSwitched      SubscriptionStatus = "switched"
	StatusTrash         SubscriptionStatus = "trash"

	// StatusDeleted is only ever a requested target; it is never stored.
	StatusDeleted SubscriptionStatus = "deleted"
)

// draftStatuses are pre-pending states that are collapsed to pending on load.
var draftStatuses = map[string]bool{
	"draft":      true,
	"auto-draft": true,
	"new":        true,
}

// ValidStatuses lists the statuses a stored subscription can have.
var ValidStatuses = map[SubscriptionStatus]bool{
	StatusPending:       true,
	StatusActive:        true,
	StatusOnHold:        true,
	StatusPendingCancel: true,
	StatusCancelled:     true,
	StatusExpired:       true,
	StatusSwitched:      true,
	StatusTrash:         true,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsLive reports whether future billing or expiration events are possible.
func (s SubscriptionStatus) IsLive() bool {
	return s == StatusActive || s == StatusOnHold || s == StatusPendingCancel
}

func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusExpired || s == StatusSwitched
}

// ParseStatus parses a requested or stored status. Draft variants map to
// pending, a "wc-" style prefix is tolerated. Unknown strings return false.
func ParseStatus(raw string) (SubscriptionStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.TrimPrefix(normalized, "wc-")

	if draftStatuses[normalized] {
		return StatusPending, true
	}

	status := SubscriptionStatus(normalized)
	if ValidStatuses[status] || status == StatusDeleted {
		return status, true
	}
	return "", false
}
