package setting

import (
	"context"
	"errors"
)

var (
	ErrSettingNotFound   = errors.New("setting not found")
	ErrInvalidSettingKey = errors.New("invalid setting key")
	// ErrInvalidValueType covers unknown types and reads or writes through
	// the wrong typed accessor.
	ErrInvalidValueType = errors.New("invalid value type")
)

// Repository stores settings keyed by (category, key).
type Repository interface {
	// GetByKey returns ErrSettingNotFound when the key is absent.
	GetByKey(ctx context.Context, category, key string) (*SystemSetting, error)
	// GetByCategory returns an empty slice for an unknown category.
	GetByCategory(ctx context.Context, category string) ([]*SystemSetting, error)
	// Upsert inserts the setting or overwrites the stored value of its key.
	Upsert(ctx context.Context, setting *SystemSetting) error
	Delete(ctx context.Context, category, key string) error
}
