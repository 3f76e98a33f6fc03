package notification

import (
	"testing"
	"time"

	vo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	changedAt := time.Date(2025, 3, 1, 8, 0, 0, 250, time.UTC)

	p, err := NewPolicy(true, vo.Offset{Amount: 3, Unit: vo.OffsetUnitDay}, vo.ManualRenewalNotify, changedAt)

	require.NoError(t, err)
	assert.True(t, p.Enabled)
	assert.Equal(t, changedAt.Truncate(time.Second), p.LastChangedAt)
	assert.True(t, p.NotifiesManualRenewals())
}

func TestNewPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		offset vo.Offset
		mode   vo.ManualRenewalMode
	}{
		{"negative amount", vo.Offset{Amount: -1, Unit: vo.OffsetUnitDay}, vo.ManualRenewalNotify},
		{"bad unit", vo.Offset{Amount: 1, Unit: "month"}, vo.ManualRenewalNotify},
		{"bad mode", vo.Offset{Amount: 1, Unit: vo.OffsetUnitWeek}, "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(true, tt.offset, tt.mode, time.Now())
			assert.ErrorIs(t, err, ErrInvalidPolicy)
		})
	}
}

func TestPolicy_SameSettings(t *testing.T) {
	a := Policy{Enabled: true, Offset: vo.Offset{Amount: 1, Unit: vo.OffsetUnitWeek}, ManualRenewalMode: vo.ManualRenewalNotify}
	b := a
	b.LastChangedAt = time.Now()
	assert.True(t, a.SameSettings(b))

	b.Offset = vo.Offset{Amount: 7, Unit: vo.OffsetUnitDay}
	assert.False(t, a.SameSettings(b), "equal duration with a different unit is a change")

	skip := a
	skip.ManualRenewalMode = vo.ManualRenewalSkip
	assert.False(t, skip.NotifiesManualRenewals())
}

func TestPolicyChangedEvent_Disabled(t *testing.T) {
	on := Policy{Enabled: true}
	off := Policy{Enabled: false}

	assert.True(t, (&PolicyChangedEvent{Previous: on, Current: off}).Disabled())
	assert.False(t, (&PolicyChangedEvent{Previous: off, Current: on}).Disabled())
	assert.Equal(t, EventTypePolicyChanged, (&PolicyChangedEvent{}).GetEventType())
}

func TestNextChangeTime(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		previous time.Time
		now      time.Time
		want     time.Time
	}{
		{"first change", time.Time{}, base.Add(300 * time.Millisecond), base},
		{"later second", base, base.Add(2 * time.Second), base.Add(2 * time.Second)},
		{"same second", base, base.Add(800 * time.Millisecond), base.Add(time.Second)},
		{"clock behind", base, base.Add(-time.Minute), base.Add(time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextChangeTime(tt.previous, tt.now))
		})
	}
}

func TestSyncMarker(t *testing.T) {
	var p Policy
	assert.Equal(t, time.Unix(0, 0).UTC(), p.SyncMarker())

	p.LastChangedAt = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, p.LastChangedAt, p.SyncMarker())
}
