package valueobjects

import (
	"fmt"
	"strings"
	"time"
)

type BillingPeriod string

const (
	BillingPeriodDay   BillingPeriod = "day"
	BillingPeriodWeek  BillingPeriod = "week"
	BillingPeriodMonth BillingPeriod = "month"
	BillingPeriodYear  BillingPeriod = "year"
)

var ValidBillingPeriods = map[BillingPeriod]bool{
	BillingPeriodDay:   true,
	BillingPeriodWeek:  true,
	BillingPeriodMonth: true,
	BillingPeriodYear:  true,
}

// billingPeriodDays is the nominal length used to compare cadences against
// notification offsets.
var billingPeriodDays = map[BillingPeriod]int{
	BillingPeriodDay:   1,
	BillingPeriodWeek:  7,
	BillingPeriodMonth: 30,
	BillingPeriodYear:  365,
}

func ParseBillingPeriod(value string) (BillingPeriod, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "", fmt.Errorf("billing period cannot be empty")
	}

	period := BillingPeriod(normalized)
	if !ValidBillingPeriods[period] {
		return "", fmt.Errorf("invalid billing period: %s", value)
	}
	return period, nil
}

func (b BillingPeriod) String() string {
	return string(b)
}

func (b BillingPeriod) IsValid() bool {
	return ValidBillingPeriods[b]
}

// Days returns the nominal length of one period in days.
func (b BillingPeriod) Days() int {
	return billingPeriodDays[b]
}

// Add moves from forward by n periods. Month and year arithmetic clamps to
// the last day of the target month, and a date on the last day of its month
// stays on the last day (Jan 31 + 1 month = Feb 28, Feb 28 + 1 month = Mar 31).
func (b BillingPeriod) Add(from time.Time, n int) time.Time {
	switch b {
	case BillingPeriodDay:
		return from.AddDate(0, 0, n)
	case BillingPeriodWeek:
		return from.AddDate(0, 0, 7*n)
	case BillingPeriodMonth:
		return addMonths(from, n)
	case BillingPeriodYear:
		return addMonths(from, 12*n)
	default:
		return time.Time{}
	}
}

func addMonths(from time.Time, n int) time.Time {
	year, month, day := from.Date()
	hour, minute, sec := from.Clock()

	firstOfTarget := time.Date(year, month+time.Month(n), 1, hour, minute, sec, from.Nanosecond(), from.Location())
	lastDay := daysIn(firstOfTarget.Year(), firstOfTarget.Month(), from.Location())

	if day > lastDay || day == daysIn(year, month, from.Location()) {
		day = lastDay
	}
	return firstOfTarget.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
