package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/subsync/internal/application/notification/testutil"
	"github.com/orris-inc/subsync/internal/domain/notification"
	nvo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

func scheduleAt(t *testing.T, s *testutil.MockTaskScheduler, hook string, subID uint, at time.Time) notification.TaskHandle {
	t.Helper()
	handle, err := s.Schedule(context.Background(), hook, notification.TaskArgs{SubscriptionID: subID}, at, notification.TaskGroup)
	require.NoError(t, err)
	return handle
}

func TestDispatchDue_DeliversOnlyDueTasks(t *testing.T) {
	scheduler := testutil.NewMockTaskScheduler()
	notifier := &testutil.MockNotifier{}
	clock := biztime.NewFixedClock(baseTime)
	uc := NewDispatchDueNotificationsUseCase(scheduler, notifier, clock, 10, logger.NewNopLogger())

	due := scheduleAt(t, scheduler, nvo.NotificationTypeRenewal.Hook(), 1, baseTime.Add(-time.Minute))
	scheduleAt(t, scheduler, nvo.NotificationTypeExpiration.Hook(), 2, baseTime.Add(time.Hour))

	delivered, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	require.Len(t, notifier.Sent, 1)
	assert.Equal(t, notification.Notification{
		Type:           nvo.NotificationTypeRenewal,
		SubscriptionID: 1,
		ScheduledFor:   due.FireAt,
		TaskID:         due.ID,
	}, notifier.Sent[0])
	assert.Equal(t, 1, scheduler.PendingCount())

	// Delivered tasks are not claimed again.
	delivered, err = uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)

	clock.Advance(2 * time.Hour)
	delivered, err = uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Zero(t, scheduler.PendingCount())
}

func TestDispatchDue_RespectsBatchSize(t *testing.T) {
	scheduler := testutil.NewMockTaskScheduler()
	notifier := &testutil.MockNotifier{}
	uc := NewDispatchDueNotificationsUseCase(scheduler, notifier, biztime.NewFixedClock(baseTime), 2, logger.NewNopLogger())
	for id := uint(1); id <= 3; id++ {
		scheduleAt(t, scheduler, nvo.NotificationTypeRenewal.Hook(), id, baseTime.Add(-time.Duration(id)*time.Minute))
	}

	delivered, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	// Oldest first.
	assert.Equal(t, uint(3), notifier.Sent[0].SubscriptionID)
	assert.Equal(t, 1, scheduler.PendingCount())
}

func TestDispatchDue_NotifierFailureMarksTaskFailed(t *testing.T) {
	scheduler := testutil.NewMockTaskScheduler()
	notifier := &testutil.MockNotifier{}
	notifier.SetError(errors.New("mailer down"))
	uc := NewDispatchDueNotificationsUseCase(scheduler, notifier, biztime.NewFixedClock(baseTime), 10, logger.NewNopLogger())
	scheduleAt(t, scheduler, nvo.NotificationTypeTrialExpiration.Hook(), 1, baseTime)

	delivered, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Zero(t, scheduler.PendingCount())

	notifier.SetError(nil)
	delivered, err = uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered, "failed tasks are not retried")
}

func TestDispatchDue_UnknownHookIsFailed(t *testing.T) {
	scheduler := testutil.NewMockTaskScheduler()
	notifier := &testutil.MockNotifier{}
	uc := NewDispatchDueNotificationsUseCase(scheduler, notifier, biztime.NewFixedClock(baseTime), 10, logger.NewNopLogger())
	scheduleAt(t, scheduler, "some_other_hook", 1, baseTime)

	delivered, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Empty(t, notifier.Sent)
}

func TestDispatchDue_ClaimFailure(t *testing.T) {
	scheduler := testutil.NewMockTaskScheduler()
	scheduler.SetLookupError(errors.New("db down"))
	uc := NewDispatchDueNotificationsUseCase(scheduler, &testutil.MockNotifier{}, biztime.NewFixedClock(baseTime), 10, logger.NewNopLogger())

	_, err := uc.Execute(context.Background())

	assert.Error(t, err)
}
