package subscription

import (
	"errors"
	"fmt"
	"strings"

	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
)

var (
	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrOrderingViolation      = errors.New("date ordering violation")
	ErrIllegalTransition      = errors.New("illegal status transition")
	ErrImmutableFieldDeletion = errors.New("date can not be deleted")
	// ErrVersionConflict means the stored subscription is newer than the one
	// being saved.
	ErrVersionConflict = errors.New("subscription was modified concurrently")
)

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// DateError carries every ordering violation found in a prospective schedule.
type DateError struct {
	Violations []Violation
}

func (e *DateError) Error() string {
	messages := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		messages = append(messages, v.Message)
	}
	return strings.Join(messages, " ")
}

func (e *DateError) Unwrap() error {
	return ErrOrderingViolation
}

// Codes returns the violation codes in the order they were found.
func (e *DateError) Codes() []ViolationCode {
	codes := make([]ViolationCode, 0, len(e.Violations))
	for _, v := range e.Violations {
		codes = append(codes, v.Code)
	}
	return codes
}

// TransitionError is returned when the state machine rejects a status change.
type TransitionError struct {
	From vo.SubscriptionStatus
	To   vo.SubscriptionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("unable to change subscription status from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

type ImmutableDateError struct {
	DateType vo.DateType
}

func (e *ImmutableDateError) Error() string {
	if e.DateType == vo.DateLastOrderCreated {
		return "the last payment date of a subscription can not be deleted, it is derived from its orders"
	}
	return fmt.Sprintf("the %s date of a subscription can not be deleted, only updated", e.DateType.Label())
}

func (e *ImmutableDateError) Unwrap() error {
	return ErrImmutableFieldDeletion
}
