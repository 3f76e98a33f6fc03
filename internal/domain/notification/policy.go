package notification

import (
	"fmt"
	"time"

	vo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
)

// Policy is the store-wide configuration deciding whether and when customer
// notifications are scheduled.
type Policy struct {
	Enabled           bool
	Offset            vo.Offset
	ManualRenewalMode vo.ManualRenewalMode
	// LastChangedAt is compared against each subscription's sync marker to
	// find subscriptions that still need reconciliation.
	LastChangedAt time.Time
}

// unchangedMarker stands in for the change time of a policy that was never
// stored.
var unchangedMarker = time.Unix(0, 0).UTC()

func NewPolicy(enabled bool, offset vo.Offset, mode vo.ManualRenewalMode, changedAt time.Time) (Policy, error) {
	p := Policy{
		Enabled:           enabled,
		Offset:            offset,
		ManualRenewalMode: mode,
		LastChangedAt:     changedAt.UTC().Truncate(time.Second),
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) Validate() error {
	if p.Offset.Amount < 0 {
		return fmt.Errorf("%w: offset amount cannot be negative", ErrInvalidPolicy)
	}
	if !p.Offset.Unit.IsValid() {
		return fmt.Errorf("%w: invalid offset unit %q", ErrInvalidPolicy, p.Offset.Unit)
	}
	if !p.ManualRenewalMode.IsValid() {
		return fmt.Errorf("%w: invalid manual renewal mode %q", ErrInvalidPolicy, p.ManualRenewalMode)
	}
	return nil
}

// SameSettings reports whether two policies schedule identically, ignoring
// LastChangedAt.
func (p Policy) SameSettings(other Policy) bool {
	return p.Enabled == other.Enabled &&
		p.Offset == other.Offset &&
		p.ManualRenewalMode == other.ManualRenewalMode
}

// SyncMarker is the value a subscription is stamped with once it has been
// reconciled under p.
func (p Policy) SyncMarker() time.Time {
	if p.LastChangedAt.IsZero() {
		return unchangedMarker
	}
	return p.LastChangedAt
}

// NextChangeTime returns the change time for a policy replacing one changed
// at previous. Change times are whole seconds and strictly increasing.
func NextChangeTime(previous, now time.Time) time.Time {
	changedAt := now.UTC().Truncate(time.Second)
	if !previous.IsZero() && !changedAt.After(previous) {
		changedAt = previous.UTC().Truncate(time.Second).Add(time.Second)
	}
	return changedAt
}

func (p Policy) NotifiesManualRenewals() bool {
	return p.ManualRenewalMode != vo.ManualRenewalSkip
}
