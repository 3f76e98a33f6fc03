package usecases

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/orris-inc/subsync/internal/application/notification/services"
	"github.com/orris-inc/subsync/internal/application/notification/testutil"
	subtestutil "github.com/orris-inc/subsync/internal/application/subscription/testutil"
	"github.com/orris-inc/subsync/internal/domain/notification"
	nvo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	svo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func policyWithOffset(offsetDays int) notification.Policy {
	return notification.Policy{
		Enabled:           true,
		Offset:            nvo.Offset{Amount: offsetDays, Unit: nvo.OffsetUnitDay},
		ManualRenewalMode: nvo.ManualRenewalNotify,
	}
}

type reconcileFixture struct {
	repo       *subtestutil.MockSubscriptionRepository
	scheduler  *testutil.MockTaskScheduler
	policyRepo *testutil.MockPolicyRepository
	policies   *services.PolicyService
	clock      *biztime.FixedClock
	sync       *services.NotificationSynchronizer
	dispatcher *events.SyncEventDispatcher
	processor  *ReconciliationBatchProcessor
	update     *UpdatePolicyUseCase
}

func newReconcileFixture(initial notification.Policy, batchSize int) *reconcileFixture {
	log := logger.NewNopLogger()
	f := &reconcileFixture{
		repo:       subtestutil.NewMockSubscriptionRepository(),
		scheduler:  testutil.NewMockTaskScheduler(),
		policyRepo: testutil.NewMockPolicyRepository(&initial),
		clock:      biztime.NewFixedClock(baseTime),
		dispatcher: events.NewSyncEventDispatcher(),
	}
	f.policies = services.NewPolicyService(f.policyRepo, initial, log)
	f.sync = services.NewNotificationSynchronizer(f.scheduler, f.policies, f.clock, log)
	f.processor = NewReconciliationBatchProcessor(f.repo, f.scheduler, f.policies, f.sync, batchSize, 0, log)
	f.update = NewUpdatePolicyUseCase(f.policyRepo, f.policies, f.scheduler, f.dispatcher, f.clock, log)
	return f
}

func (f *reconcileFixture) addSub(t *testing.T, id uint, dates map[svo.DateType]time.Time) *subscription.Subscription {
	t.Helper()
	sub, err := subscription.ReconstructSubscription(subscription.SubscriptionReconstructParams{
		ID:              id,
		CustomerID:      100 + id,
		Status:          "active",
		Dates:           dates,
		BillingPeriod:   "month",
		BillingInterval: 1,
		Version:         1,
	})
	require.NoError(t, err)
	f.repo.AddSubscription(sub)
	return sub
}

// runToCompletion drives the processor the way the batch facility does.
func (f *reconcileFixture) runToCompletion(t *testing.T, size int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		pending, err := f.processor.PendingCount(ctx)
		require.NoError(t, err)
		if pending == 0 {
			return
		}
		ids, err := f.processor.NextBatch(ctx, size)
		require.NoError(t, err)
		require.NotEmpty(t, ids)
		require.LessOrEqual(t, len(ids), size)
		_, err = f.processor.ProcessBatch(ctx, ids)
		require.NoError(t, err)
	}
	t.Fatal("reconciliation did not converge")
}

func hooksOf(required map[nvo.NotificationType]time.Time) map[string]time.Time {
	out := make(map[string]time.Time, len(required))
	for nt, at := range required {
		out[nt.Hook()] = at
	}
	return out
}

func TestReconcile_OffsetChangeShiftsEveryTask(t *testing.T) {
	f := newReconcileFixture(policyWithOffset(3), 2)
	ctx := context.Background()

	renewing := f.addSub(t, 1, map[svo.DateType]time.Time{svo.DateNextPayment: baseTime.Add(days(20))})
	trialing := f.addSub(t, 2, map[svo.DateType]time.Time{
		svo.DateStart:       baseTime,
		svo.DateTrialEnd:    baseTime.Add(days(10)),
		svo.DateNextPayment: baseTime.Add(days(10)),
	})
	ending := f.addSub(t, 3, map[svo.DateType]time.Time{
		svo.DateNextPayment: baseTime.Add(days(15)),
		svo.DateEnd:         baseTime.Add(days(40)),
	})
	for _, sub := range []*subscription.Subscription{renewing, trialing, ending} {
		_, err := f.sync.Sync(ctx, sub)
		require.NoError(t, err)
	}
	f.runToCompletion(t, 2)
	before := map[uint]map[string]time.Time{1: f.scheduler.PendingFor(1), 2: f.scheduler.PendingFor(2), 3: f.scheduler.PendingFor(3)}
	f.scheduler.ResetCalls()

	f.clock.Advance(time.Minute)
	amount := 4
	result, err := f.update.Execute(ctx, UpdatePolicyCommand{OffsetAmount: &amount})
	require.NoError(t, err)
	require.True(t, result.Changed)

	pending, err := f.processor.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, pending)

	f.runToCompletion(t, 2)

	assert.Zero(t, f.scheduler.ScheduleCalls, "no task added")
	assert.Zero(t, f.scheduler.CancelCalls, "no task removed")
	assert.Equal(t, 4, f.scheduler.RescheduleCalls, "one update per existing task")
	for id, tasks := range before {
		after := f.scheduler.PendingFor(id)
		require.Len(t, after, len(tasks))
		for hook, at := range tasks {
			assert.Equal(t, at.Add(-days(1)), after[hook], "subscription %d hook %s", id, hook)
		}
	}
}

func TestReconcile_ChangeWithinTheSameSecondIsDetected(t *testing.T) {
	initial := policyWithOffset(3)
	initial.LastChangedAt = baseTime.Add(-time.Hour)
	f := newReconcileFixture(initial, 10)
	ctx := context.Background()
	f.addSub(t, 1, map[svo.DateType]time.Time{svo.DateNextPayment: baseTime.Add(days(20))})

	f.clock.Set(baseTime.Add(200 * time.Millisecond))
	n, err := f.processor.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, initial.LastChangedAt, *mustGet(t, f.repo, 1).NotificationsSyncedAt(),
		"the marker is the policy version the batch ran under")

	f.clock.Set(baseTime.Add(800 * time.Millisecond))
	amount := 5
	_, err = f.update.Execute(ctx, UpdatePolicyCommand{OffsetAmount: &amount})
	require.NoError(t, err)

	pending, err := f.processor.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	f.clock.Set(baseTime.Add(900 * time.Millisecond))
	amount = 6
	result, err := f.update.Execute(ctx, UpdatePolicyCommand{OffsetAmount: &amount})
	require.NoError(t, err)
	assert.Equal(t, baseTime.Add(time.Second), result.Policy.LastChangedAt, "change times strictly increase")

	f.runToCompletion(t, 10)
	assert.Equal(t, baseTime.Add(days(14)), f.scheduler.PendingFor(1)[nvo.NotificationTypeRenewal.Hook()])
}

func TestReconcile_ConvergesForAnyBatchSize(t *testing.T) {
	for _, size := range []int{1, 2, 3, 50} {
		t.Run(fmt.Sprintf("batch_%d", size), func(t *testing.T) {
			f := newReconcileFixture(policyWithOffset(2), size)
			for id := uint(1); id <= 7; id++ {
				dates := map[svo.DateType]time.Time{svo.DateNextPayment: baseTime.Add(days(int(id) * 3))}
				if id%2 == 0 {
					dates[svo.DateEnd] = baseTime.Add(days(60))
				}
				f.addSub(t, id, dates)
			}

			f.runToCompletion(t, size)

			policy, err := f.policies.GetPolicy(context.Background())
			require.NoError(t, err)
			for id := uint(1); id <= 7; id++ {
				sub, err := f.repo.GetByID(context.Background(), id)
				require.NoError(t, err)
				assert.Equal(t, hooksOf(f.sync.RequiredTasks(sub, policy)), f.scheduler.PendingFor(id))
				require.NotNil(t, sub.NotificationsSyncedAt())
			}
		})
	}
}

func TestReconcile_RepeatedRunIsNoop(t *testing.T) {
	f := newReconcileFixture(policyWithOffset(3), 10)
	f.addSub(t, 1, map[svo.DateType]time.Time{svo.DateNextPayment: baseTime.Add(days(20))})

	n, err := f.processor.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	f.scheduler.ResetCalls()

	// Overlapping invocation over an already synced subscription.
	_, err = f.processor.ProcessBatch(context.Background(), []uint{1})
	require.NoError(t, err)

	assert.Zero(t, f.scheduler.ScheduleCalls+f.scheduler.RescheduleCalls+f.scheduler.CancelCalls)
	assert.Len(t, f.scheduler.PendingFor(1), 1)
}

func TestReconcile_DisableCancelsEverythingInBulk(t *testing.T) {
	f := newReconcileFixture(policyWithOffset(3), 10)
	ctx := context.Background()
	for id := uint(1); id <= 3; id++ {
		f.addSub(t, id, map[svo.DateType]time.Time{
			svo.DateNextPayment: baseTime.Add(days(20)),
			svo.DateEnd:         baseTime.Add(days(90)),
		})
	}
	_, err := f.processor.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, 6, f.scheduler.PendingCount())
	f.scheduler.ResetCalls()

	disabled := false
	result, err := f.update.Execute(ctx, UpdatePolicyCommand{Enabled: &disabled})

	require.NoError(t, err)
	assert.Equal(t, 6, result.CancelledTasks)
	assert.Equal(t, 0, f.scheduler.PendingCount())
	assert.Equal(t, 1, f.scheduler.CancelAllCalls)
	assert.Zero(t, f.scheduler.CancelCalls, "no per-subscription diffing")

	pending, err := f.processor.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestReconcile_ProcessBatchShortCircuitsWhenDisabled(t *testing.T) {
	policy := policyWithOffset(3)
	f := newReconcileFixture(policy, 10)
	ctx := context.Background()
	f.addSub(t, 1, map[svo.DateType]time.Time{svo.DateNextPayment: baseTime.Add(days(20))})
	_, err := f.sync.Sync(ctx, mustGet(t, f.repo, 1))
	require.NoError(t, err)

	// Disabled between NextBatch and ProcessBatch.
	ids, err := f.processor.NextBatch(ctx, 10)
	require.NoError(t, err)
	policy.Enabled = false
	require.NoError(t, f.policyRepo.Save(ctx, policy))

	n, err := f.processor.ProcessBatch(ctx, ids)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, f.scheduler.CancelAllCalls)
	assert.Zero(t, f.scheduler.PendingCount())
	assert.Nil(t, mustGet(t, f.repo, 1).NotificationsSyncedAt(), "no marker is needed")
}

func TestReconcile_MissingSubscriptionIsMarked(t *testing.T) {
	f := newReconcileFixture(policyWithOffset(3), 10)

	n, err := f.processor.ProcessBatch(context.Background(), []uint{42})

	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconcile_LoadErrorsLeaveSubscriptionPending(t *testing.T) {
	f := newReconcileFixture(policyWithOffset(3), 10)
	f.addSub(t, 1, map[svo.DateType]time.Time{svo.DateNextPayment: baseTime.Add(days(20))})
	ids, err := f.processor.NextBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, []uint{1}, ids)

	f.repo.SetGetError(errors.New("db down"))
	n, err := f.processor.ProcessBatch(context.Background(), ids)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.repo.SetGetError(nil)
	pending, err := f.processor.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestReconcile_ExecuteStopsWhenNothingSyncs(t *testing.T) {
	f := newReconcileFixture(policyWithOffset(3), 1)
	f.addSub(t, 1, nil)
	f.repo.SetMarkError(errors.New("db down"))

	_, err := f.processor.Execute(context.Background())

	assert.Error(t, err)
}

func TestReconcile_ExecuteHonorsContext(t *testing.T) {
	f := newReconcileFixture(policyWithOffset(3), 1)
	f.addSub(t, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := f.processor.Execute(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func mustGet(t *testing.T, repo *subtestutil.MockSubscriptionRepository, id uint) *subscription.Subscription {
	t.Helper()
	sub, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, sub)
	return sub
}
