package subscription

import (
	"fmt"
	"strings"
	"time"

	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/subsync/internal/shared/biztime"
)

type ViolationCode string

const (
	ViolationTrialEndBeforeStart         ViolationCode = "trial_end_before_start"
	ViolationNextPaymentBeforeTrialEnd   ViolationCode = "next_payment_before_trial_end"
	ViolationEndNotAfterNextPayment      ViolationCode = "end_not_after_next_payment"
	ViolationEndNotAfterTrialEnd         ViolationCode = "end_not_after_trial_end"
	ViolationEndNotAfterLastOrderCreated ViolationCode = "end_not_after_last_order_date_created"
)

// Violation is one broken ordering rule of a DateSchedule.
type Violation struct {
	Code    ViolationCode
	Message string
}

func newViolation(code ViolationCode, later, earlier vo.DateType) Violation {
	return Violation{
		Code:    code,
		Message: fmt.Sprintf("The %s date must occur after the %s date.", later.Label(), earlier.Label()),
	}
}

// DateSchedule holds the named dates of a subscription. A zero time means the
// slot is not scheduled. The value is immutable; With returns a modified copy.
type DateSchedule struct {
	dates map[vo.DateType]time.Time
}

// NewDateSchedule builds a schedule from stored values, normalized to UTC
// second precision. Unknown slots are ignored.
func NewDateSchedule(values map[vo.DateType]time.Time) DateSchedule {
	dates := make(map[vo.DateType]time.Time, len(vo.AllDateTypes))
	for dateType, value := range values {
		if !dateType.IsValid() {
			continue
		}
		dates[dateType] = normalizeDate(value)
	}
	return DateSchedule{dates: dates}
}

func normalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Truncate(time.Second)
}

// Get returns the slot value or the zero time.
func (d DateSchedule) Get(dateType vo.DateType) time.Time {
	return d.dates[dateType]
}

func (d DateSchedule) Has(dateType vo.DateType) bool {
	return !d.dates[dateType].IsZero()
}

// With returns a copy of the schedule with the given slots replaced.
func (d DateSchedule) With(updates map[vo.DateType]time.Time) DateSchedule {
	merged := make(map[vo.DateType]time.Time, len(vo.AllDateTypes))
	for k, v := range d.dates {
		merged[k] = v
	}
	for k, v := range updates {
		if !k.IsValid() {
			continue
		}
		merged[k] = normalizeDate(v)
	}
	return DateSchedule{dates: merged}
}

// All returns a copy of every stored slot, including empty ones.
func (d DateSchedule) All() map[vo.DateType]time.Time {
	out := make(map[vo.DateType]time.Time, len(vo.AllDateTypes))
	for _, dateType := range vo.AllDateTypes {
		out[dateType] = d.dates[dateType]
	}
	return out
}

// Validate checks the ordering rules between slots. Empty slots are exempt
// from every comparison.
func (d DateSchedule) Validate() []Violation {
	var violations []Violation

	start := d.Get(vo.DateStart)
	trialEnd := d.Get(vo.DateTrialEnd)
	nextPayment := d.Get(vo.DateNextPayment)
	lastOrder := d.Get(vo.DateLastOrderCreated)
	end := d.Get(vo.DateEnd)

	if !start.IsZero() && !trialEnd.IsZero() && trialEnd.Before(start) {
		violations = append(violations, newViolation(ViolationTrialEndBeforeStart, vo.DateTrialEnd, vo.DateStart))
	}
	if !trialEnd.IsZero() && !nextPayment.IsZero() && nextPayment.Before(trialEnd) {
		violations = append(violations, newViolation(ViolationNextPaymentBeforeTrialEnd, vo.DateNextPayment, vo.DateTrialEnd))
	}

	if end.IsZero() {
		return violations
	}
	if !nextPayment.IsZero() && !end.After(nextPayment) {
		violations = append(violations, newViolation(ViolationEndNotAfterNextPayment, vo.DateEnd, vo.DateNextPayment))
	}
	if !trialEnd.IsZero() && !end.After(trialEnd) {
		violations = append(violations, newViolation(ViolationEndNotAfterTrialEnd, vo.DateEnd, vo.DateTrialEnd))
	}
	if !lastOrder.IsZero() && !end.After(lastOrder) {
		violations = append(violations, newViolation(ViolationEndNotAfterLastOrderCreated, vo.DateEnd, vo.DateLastOrderCreated))
	}

	return violations
}

// ParseDateUpdates converts externally supplied "2006-01-02 15:04:05" UTC
// strings into slot updates. "0" clears a slot.
func ParseDateUpdates(raw map[string]string) (map[vo.DateType]time.Time, error) {
	if len(raw) == 0 {
		return nil, invalidArgument("at least one date is required")
	}

	updates := make(map[vo.DateType]time.Time, len(raw))
	for key, value := range raw {
		dateType, ok := vo.ParseDateType(key)
		if !ok {
			return nil, invalidArgument("invalid date type: %s", key)
		}

		value = strings.TrimSpace(value)
		if value == "0" {
			if dateType.IsImmutable() {
				return nil, invalidArgument("the %s date can not be empty", dateType.Label())
			}
			updates[dateType] = time.Time{}
			continue
		}

		t, err := biztime.ParseMySQL(value)
		if err != nil {
			return nil, invalidArgument("the %s date must be in the format 2006-01-02 15:04:05: %v", dateType.Label(), err)
		}
		updates[dateType] = t
	}

	return updates, nil
}
