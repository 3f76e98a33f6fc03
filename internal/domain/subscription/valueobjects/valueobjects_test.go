package valueobjects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  SubscriptionStatus
		ok    bool
	}{
		{"active", StatusActive, true},
		{"wc-on-hold", StatusOnHold, true},
		{"draft", StatusPending, true},
		{"auto-draft", StatusPending, true},
		{"trash", StatusTrash, true},
		{"deleted", StatusDeleted, true},
		{"paused", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseStatus(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusClassification(t *testing.T) {
	assert.True(t, StatusActive.IsLive())
	assert.True(t, StatusOnHold.IsLive())
	assert.True(t, StatusPendingCancel.IsLive())
	assert.False(t, StatusPending.IsLive())

	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.True(t, StatusSwitched.IsTerminal())
	assert.False(t, StatusPendingCancel.IsTerminal())
}

func TestBillingPeriod_Add(t *testing.T) {
	base := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		period BillingPeriod
		from   time.Time
		n      int
		want   time.Time
	}{
		{"day", BillingPeriodDay, base, 3, time.Date(2025, 1, 18, 9, 30, 0, 0, time.UTC)},
		{"week", BillingPeriodWeek, base, 2, time.Date(2025, 1, 29, 9, 30, 0, 0, time.UTC)},
		{"month", BillingPeriodMonth, base, 1, time.Date(2025, 2, 15, 9, 30, 0, 0, time.UTC)},
		{"year", BillingPeriodYear, base, 1, time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)},
		{"month end clamps", BillingPeriodMonth, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"last day stays last day", BillingPeriodMonth, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), 1, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"no drift over several months", BillingPeriodMonth, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), 2, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"leap year", BillingPeriodYear, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 1, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.period.Add(tt.from, tt.n))
		})
	}
}

func TestParseBillingPeriod(t *testing.T) {
	p, err := ParseBillingPeriod(" Month ")
	require.NoError(t, err)
	assert.Equal(t, BillingPeriodMonth, p)
	assert.Equal(t, 30, p.Days())

	_, err = ParseBillingPeriod("fortnight")
	assert.Error(t, err)

	_, err = ParseBillingPeriod("")
	assert.Error(t, err)
}

func TestDateType(t *testing.T) {
	d, ok := ParseDateType("next_payment")
	assert.True(t, ok)
	assert.Equal(t, "next payment", d.Label())

	_, ok = ParseDateType("end_of_prepaid_term")
	assert.False(t, ok, "calculated-only slot is not stored")

	assert.True(t, DateStart.IsImmutable())
	assert.True(t, DateLastOrderCreated.IsImmutable())
	assert.False(t, DateEnd.IsImmutable())
}
