package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/orris-inc/subsync/internal/shared/constants"
)

// ScheduledTaskModel is a one-shot task fired at FireAt. SubscriptionID is
// copied out of Args so pending lookups can use an index.
type ScheduledTaskModel struct {
	ID             uint           `gorm:"primarykey"`
	UUID           string         `gorm:"uniqueIndex;not null;size:36"`
	Hook           string         `gorm:"not null;size:191;index:idx_task_key,priority:1;index:idx_task_key_due,priority:1"`
	SubscriptionID uint           `gorm:"not null;index:idx_task_key,priority:2;index:idx_task_key_due,priority:2"`
	GroupName      string         `gorm:"not null;size:64;index:idx_task_due,priority:1"`
	Status         string         `gorm:"not null;size:16;index:idx_task_due,priority:2;index:idx_task_key,priority:3"`
	FireAt         time.Time      `gorm:"not null;index:idx_task_due,priority:3"`
	DueAt          *time.Time     `gorm:"index:idx_task_key_due,priority:3"`
	Args           datatypes.JSON `gorm:"not null"`
	Attempts       int            `gorm:"not null;default:0"`
	LastError      string         `gorm:"size:512"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ScheduledTaskModel) TableName() string {
	return constants.TableScheduledTasks
}

func (t *ScheduledTaskModel) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == "" {
		t.UUID = uuid.NewString()
	}
	return nil
}
