package subscription

import (
	"testing"
	"time"

	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []vo.SubscriptionStatus{
	vo.StatusPending,
	vo.StatusActive,
	vo.StatusOnHold,
	vo.StatusPendingCancel,
	vo.StatusCancelled,
	vo.StatusExpired,
	vo.StatusSwitched,
	vo.StatusTrash,
}

var allTargets = append(append([]vo.SubscriptionStatus{}, allStatuses...), vo.StatusDeleted)

type statusPair struct {
	from vo.SubscriptionStatus
	to   vo.SubscriptionStatus
}

func TestCanTransition_Matrix(t *testing.T) {
	withAll := map[statusPair]bool{
		{vo.StatusPending, vo.StatusActive}:          true,
		{vo.StatusPending, vo.StatusOnHold}:          true,
		{vo.StatusPending, vo.StatusCancelled}:       true,
		{vo.StatusPending, vo.StatusExpired}:         true,
		{vo.StatusPending, vo.StatusTrash}:           true,
		{vo.StatusActive, vo.StatusActive}:           true,
		{vo.StatusActive, vo.StatusOnHold}:           true,
		{vo.StatusActive, vo.StatusPendingCancel}:    true,
		{vo.StatusActive, vo.StatusCancelled}:        true,
		{vo.StatusActive, vo.StatusExpired}:          true,
		{vo.StatusActive, vo.StatusTrash}:            true,
		{vo.StatusOnHold, vo.StatusActive}:           true,
		{vo.StatusOnHold, vo.StatusCancelled}:        true,
		{vo.StatusOnHold, vo.StatusExpired}:          true,
		{vo.StatusOnHold, vo.StatusTrash}:            true,
		{vo.StatusPendingCancel, vo.StatusActive}:    true,
		{vo.StatusPendingCancel, vo.StatusCancelled}: true,
		{vo.StatusPendingCancel, vo.StatusExpired}:   true,
		{vo.StatusPendingCancel, vo.StatusTrash}:     true,
		{vo.StatusCancelled, vo.StatusActive}:        true,
		{vo.StatusCancelled, vo.StatusTrash}:         true,
		{vo.StatusExpired, vo.StatusTrash}:           true,
		{vo.StatusSwitched, vo.StatusTrash}:          true,
		{vo.StatusTrash, vo.StatusTrash}:             true,
	}

	withNone := map[statusPair]bool{
		{vo.StatusPending, vo.StatusActive}:          true,
		{vo.StatusPending, vo.StatusOnHold}:          true,
		{vo.StatusPending, vo.StatusCancelled}:       true,
		{vo.StatusPending, vo.StatusExpired}:         true,
		{vo.StatusActive, vo.StatusActive}:           true,
		{vo.StatusActive, vo.StatusCancelled}:        true,
		{vo.StatusActive, vo.StatusExpired}:          true,
		{vo.StatusOnHold, vo.StatusCancelled}:        true,
		{vo.StatusOnHold, vo.StatusExpired}:          true,
		{vo.StatusOnHold, vo.StatusTrash}:            true,
		{vo.StatusPendingCancel, vo.StatusActive}:    true,
		{vo.StatusPendingCancel, vo.StatusCancelled}: true,
		{vo.StatusPendingCancel, vo.StatusExpired}:   true,
		{vo.StatusPendingCancel, vo.StatusTrash}:     true,
		{vo.StatusCancelled, vo.StatusActive}:        true,
		{vo.StatusCancelled, vo.StatusTrash}:         true,
		{vo.StatusExpired, vo.StatusTrash}:           true,
		{vo.StatusSwitched, vo.StatusTrash}:          true,
		{vo.StatusTrash, vo.StatusTrash}:             true,
	}

	tests := []struct {
		name    string
		caps    PaymentCapabilities
		allowed map[statusPair]bool
	}{
		{"all capabilities", AllCapabilities(), withAll},
		{"no capabilities", PaymentCapabilities{}, withNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := TransitionContext{Capabilities: tt.caps, Now: baseTime}
			for _, from := range allStatuses {
				for _, to := range allTargets {
					got := CanTransition(from, to, ctx)
					assert.Equal(t, tt.allowed[statusPair{from, to}], got, "%s -> %s", from, to)
				}
			}
		})
	}
}

func TestCanTransition_EndInPastBlocksReactivation(t *testing.T) {
	ctx := TransitionContext{Capabilities: AllCapabilities(), Now: baseTime, End: baseTime.Add(-days(1))}

	for _, from := range []vo.SubscriptionStatus{vo.StatusActive, vo.StatusOnHold, vo.StatusPendingCancel, vo.StatusCancelled} {
		assert.False(t, CanTransition(from, vo.StatusActive, ctx), "%s -> active", from)
	}
	assert.True(t, CanTransition(vo.StatusPending, vo.StatusActive, ctx), "pending can always activate")

	ctx.End = baseTime.Add(days(1))
	assert.True(t, CanTransition(vo.StatusOnHold, vo.StatusActive, ctx))
}

func TestUpdateStatus_ReactivationWithPastEnd(t *testing.T) {
	sub := reconstructSubscription(t, vo.StatusOnHold, map[vo.DateType]time.Time{
		vo.DateStart: baseTime.Add(-days(60)),
		vo.DateEnd:   baseTime.Add(-days(1)),
	})

	err := sub.UpdateStatus("active", TransitionContext{Capabilities: AllCapabilities(), Now: baseTime})

	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, vo.StatusOnHold, transitionErr.From)
	assert.Equal(t, vo.StatusActive, transitionErr.To)
	assert.Equal(t, vo.StatusOnHold, sub.Status())
	assert.Empty(t, sub.PeekEvents())
}

func TestUpdateStatus_UnknownTarget(t *testing.T) {
	sub := activeSubscription(t)

	err := sub.UpdateStatus("paused", TransitionContext{Capabilities: AllCapabilities(), Now: baseTime})

	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, vo.StatusActive, sub.Status())
}

func TestUpdateStatus_SuspensionCount(t *testing.T) {
	sub := activeSubscription(t)
	ctx := TransitionContext{Capabilities: AllCapabilities(), Now: baseTime}

	require.NoError(t, sub.UpdateStatus("on-hold", ctx))
	assert.Equal(t, 1, sub.SuspensionCount())

	require.NoError(t, sub.UpdateStatus("active", ctx))
	assert.Equal(t, 0, sub.SuspensionCount())

	recorded := sub.GetEvents()
	require.Len(t, recorded, 2)
	event := recorded[1].(*StatusChangedEvent)
	assert.Equal(t, vo.StatusOnHold, event.From)
	assert.Equal(t, vo.StatusActive, event.To)
	assert.Equal(t, uint(10), event.CustomerID)
}

func TestUpdateStatus_PendingCancelRunsOutPrepaidTerm(t *testing.T) {
	sub := activeSubscription(t)
	nextPayment := sub.Date(vo.DateNextPayment)

	err := sub.UpdateStatus("pending-cancel", TransitionContext{Capabilities: AllCapabilities(), Now: baseTime})

	require.NoError(t, err)
	assert.Equal(t, vo.StatusPendingCancel, sub.Status())
	assert.Equal(t, nextPayment, sub.Date(vo.DateEnd))
	assert.False(t, sub.Dates().Has(vo.DateNextPayment))
	assert.Empty(t, sub.Dates().Validate())
	assert.Equal(t, []string{EventTypeDateChanged, EventTypeDateChanged, EventTypeStatusChanged}, eventTypes(sub))
}

func TestUpdateStatus_PendingCancelWithoutPrepaidTerm(t *testing.T) {
	sub := reconstructSubscription(t, vo.StatusActive, map[vo.DateType]time.Time{
		vo.DateStart: baseTime.Add(-days(10)),
	})

	require.NoError(t, sub.UpdateStatus("pending-cancel", TransitionContext{Capabilities: AllCapabilities(), Now: baseTime}))
	assert.Equal(t, baseTime, sub.Date(vo.DateEnd))
}

func TestUpdateStatus_CancelRedirectsToPendingCancel(t *testing.T) {
	sub := activeSubscription(t)

	require.NoError(t, sub.UpdateStatus("cancelled", TransitionContext{Capabilities: AllCapabilities(), Now: baseTime}))

	assert.Equal(t, vo.StatusPendingCancel, sub.Status())
	assert.Equal(t, baseTime.Add(days(20)), sub.Date(vo.DateEnd))
}

func TestUpdateStatus_CancelImmediately(t *testing.T) {
	sub := activeSubscription(t)

	err := sub.UpdateStatus("cancelled", TransitionContext{Capabilities: AllCapabilities(), Now: baseTime, CancelImmediately: true})

	require.NoError(t, err)
	assert.Equal(t, vo.StatusCancelled, sub.Status())
	assert.Equal(t, baseTime, sub.Date(vo.DateEnd))
	assert.False(t, sub.Dates().Has(vo.DateNextPayment))
	assert.False(t, sub.Dates().Has(vo.DateTrialEnd))
}

func TestUpdateStatus_CancelWithoutCancellationCapability(t *testing.T) {
	sub := activeSubscription(t)

	require.NoError(t, sub.UpdateStatus("cancelled", TransitionContext{Now: baseTime}))

	assert.Equal(t, vo.StatusCancelled, sub.Status(), "no redirect when pending-cancel is not reachable")
	assert.Equal(t, baseTime, sub.Date(vo.DateEnd))
}

func TestUpdateStatus_CancelKeepsPastEnd(t *testing.T) {
	pastEnd := baseTime.Add(-days(2))
	sub := reconstructSubscription(t, vo.StatusOnHold, map[vo.DateType]time.Time{
		vo.DateStart: baseTime.Add(-days(30)),
		vo.DateEnd:   pastEnd,
	})

	require.NoError(t, sub.UpdateStatus("cancelled", TransitionContext{Now: baseTime}))
	assert.Equal(t, pastEnd, sub.Date(vo.DateEnd))
}

func TestUpdateStatus_CancelPendingBeforeStart(t *testing.T) {
	sub := reconstructSubscription(t, vo.StatusPending, map[vo.DateType]time.Time{
		vo.DateStart:       baseTime.Add(days(5)),
		vo.DateNextPayment: baseTime.Add(days(35)),
	})

	require.NoError(t, sub.UpdateStatus("cancelled", TransitionContext{Now: baseTime}))

	assert.Equal(t, vo.StatusCancelled, sub.Status(), "pending is never redirected")
	assert.False(t, sub.Dates().Has(vo.DateEnd), "end is only set once the subscription started")
	assert.False(t, sub.Dates().Has(vo.DateNextPayment))
}

func TestUpdateStatus_PendingCancelToCancelled(t *testing.T) {
	sub := activeSubscription(t)
	ctx := TransitionContext{Capabilities: AllCapabilities(), Now: baseTime}
	require.NoError(t, sub.UpdateStatus("pending-cancel", ctx))

	ctx.Now = baseTime.Add(days(20))
	require.NoError(t, sub.UpdateStatus("cancelled", ctx))

	assert.Equal(t, vo.StatusCancelled, sub.Status())
	assert.Equal(t, baseTime.Add(days(20)), sub.Date(vo.DateEnd))
}

func TestUpdateStatus_Expired(t *testing.T) {
	sub := activeSubscription(t)

	require.NoError(t, sub.UpdateStatus("expired", TransitionContext{Now: baseTime}))

	assert.Equal(t, vo.StatusExpired, sub.Status())
	assert.Equal(t, baseTime, sub.Date(vo.DateEnd))
	assert.False(t, sub.Dates().Has(vo.DateNextPayment))

	err := sub.UpdateStatus("expired", TransitionContext{Now: baseTime})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestUpdateStatus_TrashKeepsDates(t *testing.T) {
	sub := reconstructSubscription(t, vo.StatusCancelled, map[vo.DateType]time.Time{
		vo.DateStart: baseTime.Add(-days(30)),
		vo.DateEnd:   baseTime.Add(-days(1)),
	})
	before := sub.Dates().All()

	require.NoError(t, sub.UpdateStatus("trash", TransitionContext{Now: baseTime}))

	assert.Equal(t, vo.StatusTrash, sub.Status())
	assert.Equal(t, before, sub.Dates().All())
}

func TestUpdateStatus_DraftTargetMeansPending(t *testing.T) {
	sub := activeSubscription(t)

	err := sub.UpdateStatus("draft", TransitionContext{Capabilities: AllCapabilities(), Now: baseTime})

	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestMarkSwitched(t *testing.T) {
	sub := activeSubscription(t)

	require.NoError(t, sub.MarkSwitched(baseTime))

	assert.Equal(t, vo.StatusSwitched, sub.Status())
	assert.Equal(t, baseTime, sub.Date(vo.DateEnd))
	assert.False(t, sub.Dates().Has(vo.DateNextPayment))
	assert.ErrorIs(t, sub.MarkSwitched(baseTime), ErrIllegalTransition)

	err := sub.UpdateStatus("active", TransitionContext{Capabilities: AllCapabilities(), Now: baseTime})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}
