package setting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/id"
)

// ValueType defines the type of a setting value
type ValueType string

const (
	ValueTypeString ValueType = "string"
	ValueTypeInt    ValueType = "int"
	ValueTypeBool   ValueType = "bool"
	ValueTypeTime   ValueType = "time"
)

const settingIDPrefix = "setting"

// SystemSetting is one stored configuration value, addressed by category
// and key.
type SystemSetting struct {
	id          uint
	sid         string
	category    string
	key         string
	value       string // parsed according to valueType
	valueType   ValueType
	description string
	updatedBy   string // actor of the last change, e.g. "cli"
	version     int
	createdAt   time.Time
	updatedAt   time.Time
}

// NewSystemSetting creates a new system setting
func NewSystemSetting(category, key string, valueType ValueType, description string, now time.Time) (*SystemSetting, error) {
	if category == "" {
		return nil, fmt.Errorf("category is required")
	}
	if key == "" {
		return nil, ErrInvalidSettingKey
	}
	if !isValidValueType(valueType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidValueType, valueType)
	}

	sid, err := id.GenerateWithPrefix(settingIDPrefix, id.DefaultLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate SID: %w", err)
	}

	return &SystemSetting{
		sid:         sid,
		category:    category,
		key:         key,
		valueType:   valueType,
		description: description,
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructSystemSetting reconstructs a SystemSetting from persistence layer
func ReconstructSystemSetting(
	id uint,
	sid string,
	category string,
	key string,
	value string,
	valueType ValueType,
	description string,
	updatedBy string,
	version int,
	createdAt, updatedAt time.Time,
) *SystemSetting {
	return &SystemSetting{
		id:          id,
		sid:         sid,
		category:    category,
		key:         key,
		value:       value,
		valueType:   valueType,
		description: description,
		updatedBy:   updatedBy,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// Getters
func (s *SystemSetting) ID() uint             { return s.id }
func (s *SystemSetting) SID() string          { return s.sid }
func (s *SystemSetting) Category() string     { return s.category }
func (s *SystemSetting) Key() string          { return s.key }
func (s *SystemSetting) Value() string        { return s.value }
func (s *SystemSetting) ValueType() ValueType { return s.valueType }
func (s *SystemSetting) Description() string  { return s.description }
func (s *SystemSetting) UpdatedBy() string    { return s.updatedBy }
func (s *SystemSetting) Version() int         { return s.version }
func (s *SystemSetting) CreatedAt() time.Time { return s.createdAt }
func (s *SystemSetting) UpdatedAt() time.Time { return s.updatedAt }

// SetID sets the setting ID (only for persistence layer use)
func (s *SystemSetting) SetID(id uint) {
	s.id = id
}

// HasValue checks if the setting has a non-empty value
func (s *SystemSetting) HasValue() bool {
	return s.value != ""
}

func (s *SystemSetting) GetStringValue() string {
	return s.value
}

func (s *SystemSetting) GetIntValue() (int, error) {
	if s.value == "" {
		return 0, nil
	}
	return strconv.Atoi(s.value)
}

func (s *SystemSetting) GetBoolValue() (bool, error) {
	if s.value == "" {
		return false, nil
	}
	return strconv.ParseBool(s.value)
}

// GetTimeValue parses a UTC "2006-01-02 15:04:05" value. "0" and the empty
// string yield the zero time.
func (s *SystemSetting) GetTimeValue() (time.Time, error) {
	if s.value == "" || s.value == "0" {
		return time.Time{}, nil
	}
	return biztime.ParseMySQL(s.value)
}

func (s *SystemSetting) SetStringValue(value, updatedBy string, now time.Time) error {
	return s.set(ValueTypeString, value, updatedBy, now)
}

func (s *SystemSetting) SetIntValue(value int, updatedBy string, now time.Time) error {
	return s.set(ValueTypeInt, strconv.Itoa(value), updatedBy, now)
}

func (s *SystemSetting) SetBoolValue(value bool, updatedBy string, now time.Time) error {
	return s.set(ValueTypeBool, strconv.FormatBool(value), updatedBy, now)
}

func (s *SystemSetting) SetTimeValue(value time.Time, updatedBy string, now time.Time) error {
	return s.set(ValueTypeTime, biztime.FormatMySQL(value), updatedBy, now)
}

func (s *SystemSetting) set(expected ValueType, value, updatedBy string, now time.Time) error {
	if s.valueType != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrInvalidValueType, s.valueType, expected)
	}
	if s.value == value {
		return nil
	}
	s.value = value
	s.updatedBy = updatedBy
	s.version++
	s.updatedAt = now
	return nil
}

// isValidValueType checks if the value type is valid
func isValidValueType(vt ValueType) bool {
	switch vt {
	case ValueTypeString, ValueTypeInt, ValueTypeBool, ValueTypeTime:
		return true
	default:
		return false
	}
}
