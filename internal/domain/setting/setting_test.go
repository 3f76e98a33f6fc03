package setting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settingTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestNewSystemSetting(t *testing.T) {
	s, err := NewSystemSetting("notification", "enabled", ValueTypeBool, "send notifications", settingTime)

	require.NoError(t, err)
	assert.Contains(t, s.SID(), "setting_")
	assert.Equal(t, 1, s.Version())
	assert.False(t, s.HasValue())

	_, err = NewSystemSetting("", "enabled", ValueTypeBool, "", settingTime)
	assert.Error(t, err)

	_, err = NewSystemSetting("notification", "", ValueTypeBool, "", settingTime)
	assert.ErrorIs(t, err, ErrInvalidSettingKey)

	_, err = NewSystemSetting("notification", "enabled", "json", "", settingTime)
	assert.ErrorIs(t, err, ErrInvalidValueType)
}

func TestSystemSetting_TypedValues(t *testing.T) {
	later := settingTime.Add(time.Hour)

	b, err := NewSystemSetting("notification", "enabled", ValueTypeBool, "", settingTime)
	require.NoError(t, err)
	require.NoError(t, b.SetBoolValue(true, "cli", later))
	got, err := b.GetBoolValue()
	require.NoError(t, err)
	assert.True(t, got)
	assert.Equal(t, "cli", b.UpdatedBy())
	assert.Equal(t, later, b.UpdatedAt())
	assert.Equal(t, 2, b.Version())

	i, err := NewSystemSetting("notification", "offset_amount", ValueTypeInt, "", settingTime)
	require.NoError(t, err)
	require.NoError(t, i.SetIntValue(3, "cli", later))
	n, err := i.GetIntValue()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ts, err := NewSystemSetting("notification", "last_changed_at", ValueTypeTime, "", settingTime)
	require.NoError(t, err)
	zero, err := ts.GetTimeValue()
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
	require.NoError(t, ts.SetTimeValue(later, "cli", later))
	parsed, err := ts.GetTimeValue()
	require.NoError(t, err)
	assert.Equal(t, later, parsed)
}

func TestSystemSetting_TypeMismatch(t *testing.T) {
	s, err := NewSystemSetting("notification", "offset_unit", ValueTypeString, "", settingTime)
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetBoolValue(true, "cli", settingTime), ErrInvalidValueType)
	assert.False(t, s.HasValue())
}

func TestSystemSetting_UnchangedValueKeepsVersion(t *testing.T) {
	s, err := NewSystemSetting("notification", "offset_unit", ValueTypeString, "", settingTime)
	require.NoError(t, err)

	require.NoError(t, s.SetStringValue("day", "cli", settingTime))
	require.NoError(t, s.SetStringValue("day", "cli", settingTime.Add(time.Hour)))

	assert.Equal(t, 2, s.Version())
	assert.Equal(t, settingTime, s.UpdatedAt())
}
