package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/subsync/internal/application/notification/services"
	"github.com/orris-inc/subsync/internal/application/notification/testutil"
	"github.com/orris-inc/subsync/internal/domain/notification"
	nvo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/orris-inc/subsync/internal/domain/shared/events"
	apperrors "github.com/orris-inc/subsync/internal/shared/errors"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

func ptr[T any](v T) *T {
	return &v
}

func collectPolicyEvents(t *testing.T, d *events.SyncEventDispatcher) *[]*notification.PolicyChangedEvent {
	t.Helper()
	var received []*notification.PolicyChangedEvent
	require.NoError(t, d.Subscribe(notification.EventTypePolicyChanged, events.NewSimpleEventHandler(
		notification.EventTypePolicyChanged,
		func(ctx context.Context, event events.DomainEvent) error {
			received = append(received, event.(*notification.PolicyChangedEvent))
			return nil
		},
	)))
	return &received
}

func TestUpdatePolicy_ChangesOffsetAndStampsChange(t *testing.T) {
	f := newReconcileFixture(policyWithOffset(3), 10)
	received := collectPolicyEvents(t, f.dispatcher)
	f.clock.Set(baseTime.Add(1500 * time.Millisecond))

	result, err := f.update.Execute(context.Background(), UpdatePolicyCommand{
		OffsetAmount: ptr(1),
		OffsetUnit:   ptr("week"),
	})

	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, nvo.Offset{Amount: 1, Unit: nvo.OffsetUnitWeek}, result.Policy.Offset)
	assert.True(t, result.Policy.Enabled)
	assert.Equal(t, baseTime.Add(time.Second), result.Policy.LastChangedAt)
	assert.Zero(t, result.CancelledTasks)
	assert.Equal(t, 1, f.policyRepo.Saves())

	stored, err := f.policies.GetPolicy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.Policy, stored)

	require.Len(t, *received, 1)
	assert.Equal(t, 3, (*received)[0].Previous.Offset.Amount)
	assert.False(t, (*received)[0].Disabled())
}

func TestUpdatePolicy_NoopKeepsMarker(t *testing.T) {
	initial := policyWithOffset(3)
	initial.LastChangedAt = baseTime.Add(-time.Hour)
	f := newReconcileFixture(initial, 10)
	received := collectPolicyEvents(t, f.dispatcher)

	result, err := f.update.Execute(context.Background(), UpdatePolicyCommand{
		Enabled:      ptr(true),
		OffsetAmount: ptr(3),
	})

	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, initial.LastChangedAt, result.Policy.LastChangedAt)
	assert.Zero(t, f.policyRepo.Saves())
	assert.Empty(t, *received)
}

func TestUpdatePolicy_ReenableMakesEverythingPending(t *testing.T) {
	initial := policyWithOffset(3)
	initial.Enabled = false
	f := newReconcileFixture(initial, 10)
	sub := f.addSub(t, 1, nil)
	sub.MarkNotificationsSynced(baseTime)
	f.clock.Advance(time.Minute)

	result, err := f.update.Execute(context.Background(), UpdatePolicyCommand{Enabled: ptr(true)})
	require.NoError(t, err)
	require.True(t, result.Changed)
	assert.Zero(t, f.scheduler.CancelAllCalls)

	pending, err := f.processor.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestUpdatePolicy_Validation(t *testing.T) {
	tests := []struct {
		name string
		cmd  UpdatePolicyCommand
	}{
		{name: "negative offset", cmd: UpdatePolicyCommand{OffsetAmount: ptr(-1)}},
		{name: "offset too large", cmd: UpdatePolicyCommand{OffsetAmount: ptr(400)}},
		{name: "unknown unit", cmd: UpdatePolicyCommand{OffsetUnit: ptr("month")}},
		{name: "unknown mode", cmd: UpdatePolicyCommand{ManualRenewalMode: ptr("always")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReconcileFixture(policyWithOffset(3), 10)

			_, err := f.update.Execute(context.Background(), tt.cmd)

			require.Error(t, err)
			assert.True(t, apperrors.IsValidationError(err))
			assert.Zero(t, f.policyRepo.Saves())
		})
	}
}

func TestUpdatePolicy_SaveFailure(t *testing.T) {
	f := newReconcileFixture(policyWithOffset(3), 10)
	f.policyRepo.SetSaveError(errors.New("db down"))

	_, err := f.update.Execute(context.Background(), UpdatePolicyCommand{OffsetAmount: ptr(5)})

	require.Error(t, err)
	assert.False(t, apperrors.IsValidationError(err))
	assert.Zero(t, f.scheduler.CancelAllCalls)
}

func TestUpdatePolicy_DisableToleratesCancelFailure(t *testing.T) {
	f := newReconcileFixture(policyWithOffset(3), 10)
	failing := &failingCancelScheduler{MockTaskScheduler: f.scheduler}
	uc := NewUpdatePolicyUseCase(f.policyRepo, f.policies, failing, f.dispatcher, f.clock, logger.NewNopLogger())

	result, err := uc.Execute(context.Background(), UpdatePolicyCommand{Enabled: ptr(false)})

	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.False(t, result.Policy.Enabled)
	assert.Zero(t, result.CancelledTasks)
}

func TestGetPolicy_FallsBackToDefaults(t *testing.T) {
	defaults := policyWithOffset(7)
	service := newPolicyServiceWithoutStore(defaults)

	policy, err := NewGetPolicyUseCase(service, logger.NewNopLogger()).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, defaults, policy)
}

func TestGetPolicy_PropagatesStoreError(t *testing.T) {
	f := newReconcileFixture(policyWithOffset(3), 10)
	f.policyRepo.SetGetError(errors.New("db down"))

	_, err := NewGetPolicyUseCase(f.policies, logger.NewNopLogger()).Execute(context.Background())

	assert.Error(t, err)
}

type failingCancelScheduler struct {
	*testutil.MockTaskScheduler
}

func (s *failingCancelScheduler) CancelAll(ctx context.Context, group string) (int, error) {
	return 0, errors.New("scheduler unavailable")
}

func newPolicyServiceWithoutStore(defaults notification.Policy) *services.PolicyService {
	return services.NewPolicyService(testutil.NewMockPolicyRepository(nil), defaults, logger.NewNopLogger())
}
