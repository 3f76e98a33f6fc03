package notification

import "errors"

var (
	ErrInvalidPolicy = errors.New("invalid notification policy")
	ErrTaskNotFound  = errors.New("scheduled task not found")
	// ErrTaskInFlight is returned when the key already has a running task.
	ErrTaskInFlight = errors.New("scheduled task is running")
)
