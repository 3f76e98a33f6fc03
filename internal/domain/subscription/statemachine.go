package subscription

import (
	"time"

	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
)

// PaymentCapabilities describes what the payment method of a subscription
// supports when changing its status.
type PaymentCapabilities struct {
	Suspension   bool
	Reactivation bool
	Cancellation bool
}

func AllCapabilities() PaymentCapabilities {
	return PaymentCapabilities{Suspension: true, Reactivation: true, Cancellation: true}
}

// TransitionContext is the information a status change is judged against.
type TransitionContext struct {
	Capabilities PaymentCapabilities
	Now          time.Time
	// End is the current end date of the subscription, zero when none.
	End time.Time
	// CancelImmediately skips the pending-cancel redirect of a cancellation.
	CancelImmediately bool
}

func (c TransitionContext) endInPast() bool {
	return !c.End.IsZero() && !c.End.After(c.Now)
}

// CanTransition reports whether current may move to target.
func CanTransition(current, target vo.SubscriptionStatus, ctx TransitionContext) bool {
	caps := ctx.Capabilities

	switch target {
	case vo.StatusActive:
		switch current {
		case vo.StatusPending:
			return true
		case vo.StatusOnHold:
			return caps.Reactivation && !ctx.endInPast()
		case vo.StatusActive, vo.StatusPendingCancel, vo.StatusCancelled:
			return !ctx.endInPast()
		}
		return false

	case vo.StatusOnHold:
		switch current {
		case vo.StatusPending:
			return true
		case vo.StatusActive:
			return caps.Suspension
		}
		return false

	case vo.StatusPendingCancel:
		return current == vo.StatusActive && caps.Cancellation

	case vo.StatusCancelled, vo.StatusExpired:
		switch current {
		case vo.StatusPending, vo.StatusActive, vo.StatusOnHold, vo.StatusPendingCancel:
			return true
		}
		return false

	case vo.StatusTrash:
		if (current == vo.StatusActive || current == vo.StatusPending) && !caps.Cancellation {
			return false
		}
		return true
	}

	// switched is reached through MarkSwitched only; deleted and pending are
	// never valid targets.
	return false
}
