package valueobjects

import (
	"fmt"
	"time"
)

type OffsetUnit string

const (
	OffsetUnitDay  OffsetUnit = "day"
	OffsetUnitWeek OffsetUnit = "week"
)

func (u OffsetUnit) IsValid() bool {
	return u == OffsetUnitDay || u == OffsetUnitWeek
}

// Offset is how long before a subscription date a notification fires.
type Offset struct {
	Amount int
	Unit   OffsetUnit
}

func NewOffset(amount int, unit string) (Offset, error) {
	if amount < 0 {
		return Offset{}, fmt.Errorf("offset amount cannot be negative: %d", amount)
	}
	u := OffsetUnit(unit)
	if !u.IsValid() {
		return Offset{}, fmt.Errorf("invalid offset unit: %s", unit)
	}
	return Offset{Amount: amount, Unit: u}, nil
}

// Days converts the offset to days, a week being 7 days.
func (o Offset) Days() int {
	if o.Unit == OffsetUnitWeek {
		return o.Amount * 7
	}
	return o.Amount
}

func (o Offset) Duration() time.Duration {
	return time.Duration(o.Days()) * 24 * time.Hour
}

func (o Offset) String() string {
	return fmt.Sprintf("%d %s", o.Amount, o.Unit)
}

// ManualRenewalMode controls renewal notices for manually renewed subscriptions.
type ManualRenewalMode string

const (
	ManualRenewalNotify ManualRenewalMode = "notify"
	ManualRenewalSkip   ManualRenewalMode = "skip"
)

func (m ManualRenewalMode) IsValid() bool {
	return m == ManualRenewalNotify || m == ManualRenewalSkip
}
