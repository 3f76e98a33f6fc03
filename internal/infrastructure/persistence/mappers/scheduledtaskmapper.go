package mappers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/orris-inc/subsync/internal/domain/notification"
	"github.com/orris-inc/subsync/internal/infrastructure/persistence/models"
)

// ToTaskHandle converts a stored task. The handle is identified by the row
// UUID.
func ToTaskHandle(model *models.ScheduledTaskModel) (notification.TaskHandle, error) {
	var args notification.TaskArgs
	if len(model.Args) > 0 {
		if err := json.Unmarshal(model.Args, &args); err != nil {
			return notification.TaskHandle{}, fmt.Errorf("failed to unmarshal task args: %w", err)
		}
	}

	handle := notification.TaskHandle{
		ID:     model.UUID,
		Hook:   model.Hook,
		Args:   args,
		Group:  model.GroupName,
		FireAt: model.FireAt.UTC(),
		Status: notification.TaskStatus(model.Status),
	}
	if model.DueAt != nil {
		handle.DueAt = model.DueAt.UTC()
	}
	return handle, nil
}

func ToTaskHandles(list []*models.ScheduledTaskModel) ([]notification.TaskHandle, error) {
	handles := make([]notification.TaskHandle, 0, len(list))
	for _, model := range list {
		handle, err := ToTaskHandle(model)
		if err != nil {
			return nil, err
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// DueAtColumn returns the column value for a due date, nil when unset.
func DueAtColumn(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// MarshalTaskArgs encodes args for the JSON column.
func MarshalTaskArgs(args notification.TaskArgs) ([]byte, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task args: %w", err)
	}
	return data, nil
}
