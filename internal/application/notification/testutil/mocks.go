// Package testutil provides mock implementations for testing the notification application layer.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/orris-inc/subsync/internal/domain/notification"
)

// MockTaskScheduler is an in-memory notification.TaskScheduler and
// notification.TaskQueue.
type MockTaskScheduler struct {
	mu     sync.Mutex
	tasks  []*notification.TaskHandle
	nextID int

	ScheduleCalls   int
	RescheduleCalls int
	CancelCalls     int
	CancelAllCalls  int

	// Error injection for testing
	scheduleError error
	lookupError   error
}

// NewMockTaskScheduler creates an empty scheduler.
func NewMockTaskScheduler() *MockTaskScheduler {
	return &MockTaskScheduler{}
}

func (m *MockTaskScheduler) Schedule(ctx context.Context, hook string, args notification.TaskArgs, fireAt time.Time, group string, opts ...notification.ScheduleOption) (notification.TaskHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ScheduleCalls++
	if m.scheduleError != nil {
		return notification.TaskHandle{}, m.scheduleError
	}

	options := notification.ApplyScheduleOptions(opts...)
	if existing := m.latest(hook, args, group, notification.ActiveTaskStatuses); existing != nil {
		if existing.Status == notification.TaskStatusRunning {
			return notification.TaskHandle{}, notification.ErrTaskInFlight
		}
		existing.FireAt = fireAt
		if !options.DueAt.IsZero() {
			existing.DueAt = options.DueAt
		}
		return *existing, nil
	}

	m.nextID++
	task := &notification.TaskHandle{
		ID:     fmt.Sprintf("task-%d", m.nextID),
		Hook:   hook,
		Args:   args,
		Group:  group,
		FireAt: fireAt,
		DueAt:  options.DueAt,
		Status: notification.TaskStatusPending,
	}
	m.tasks = append(m.tasks, task)
	return *task, nil
}

func (m *MockTaskScheduler) Cancel(ctx context.Context, hook string, args notification.TaskArgs, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CancelCalls++
	if existing := m.findPending(hook, args, group); existing != nil {
		existing.Status = notification.TaskStatusCancelled
	}
	return nil
}

func (m *MockTaskScheduler) NextPending(ctx context.Context, hook string, args notification.TaskArgs, group string) (*notification.TaskHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupError != nil {
		return nil, m.lookupError
	}
	existing := m.findPending(hook, args, group)
	if existing == nil {
		return nil, nil
	}
	handle := *existing
	return &handle, nil
}

func (m *MockTaskScheduler) Latest(ctx context.Context, hook string, args notification.TaskArgs, group string, statuses []notification.TaskStatus) (*notification.TaskHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupError != nil {
		return nil, m.lookupError
	}
	existing := m.latest(hook, args, group, statuses)
	if existing == nil {
		return nil, nil
	}
	handle := *existing
	return &handle, nil
}

func (m *MockTaskScheduler) ListPending(ctx context.Context, hook, group string, statuses []notification.TaskStatus) ([]notification.TaskHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupError != nil {
		return nil, m.lookupError
	}
	if len(statuses) == 0 {
		statuses = []notification.TaskStatus{notification.TaskStatusPending}
	}

	var out []notification.TaskHandle
	for _, task := range m.tasks {
		if task.Group != group || (hook != "" && task.Hook != hook) {
			continue
		}
		for _, status := range statuses {
			if task.Status == status {
				out = append(out, *task)
				break
			}
		}
	}
	return out, nil
}

func (m *MockTaskScheduler) Reschedule(ctx context.Context, handle notification.TaskHandle, fireAt time.Time, opts ...notification.ScheduleOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RescheduleCalls++
	options := notification.ApplyScheduleOptions(opts...)
	for _, task := range m.tasks {
		if task.ID == handle.ID && task.Status == notification.TaskStatusPending {
			task.FireAt = fireAt
			if !options.DueAt.IsZero() {
				task.DueAt = options.DueAt
			}
			return nil
		}
	}
	return notification.ErrTaskNotFound
}

func (m *MockTaskScheduler) CancelAll(ctx context.Context, group string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CancelAllCalls++
	cancelled := 0
	for _, task := range m.tasks {
		if task.Group == group && task.Status == notification.TaskStatusPending {
			task.Status = notification.TaskStatusCancelled
			cancelled++
		}
	}
	return cancelled, nil
}

func (m *MockTaskScheduler) ClaimDue(ctx context.Context, group string, now time.Time, limit int) ([]notification.TaskHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupError != nil {
		return nil, m.lookupError
	}

	var due []*notification.TaskHandle
	for _, task := range m.tasks {
		if task.Group == group && task.Status == notification.TaskStatusPending && !task.FireAt.After(now) {
			due = append(due, task)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]notification.TaskHandle, 0, len(due))
	for _, task := range due {
		task.Status = notification.TaskStatusRunning
		out = append(out, *task)
	}
	return out, nil
}

func (m *MockTaskScheduler) MarkComplete(ctx context.Context, taskID string) error {
	return m.setStatus(taskID, notification.TaskStatusComplete)
}

func (m *MockTaskScheduler) MarkFailed(ctx context.Context, taskID string, reason string) error {
	return m.setStatus(taskID, notification.TaskStatusFailed)
}

func (m *MockTaskScheduler) setStatus(taskID string, status notification.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, task := range m.tasks {
		if task.ID == taskID {
			task.Status = status
			return nil
		}
	}
	return notification.ErrTaskNotFound
}

func (m *MockTaskScheduler) findPending(hook string, args notification.TaskArgs, group string) *notification.TaskHandle {
	for _, task := range m.tasks {
		if task.Hook == hook && task.Args == args && task.Group == group && task.Status == notification.TaskStatusPending {
			return task
		}
	}
	return nil
}

func (m *MockTaskScheduler) latest(hook string, args notification.TaskArgs, group string, statuses []notification.TaskStatus) *notification.TaskHandle {
	for i := len(m.tasks) - 1; i >= 0; i-- {
		task := m.tasks[i]
		if task.Hook != hook || task.Args != args || task.Group != group {
			continue
		}
		for _, status := range statuses {
			if task.Status == status {
				return task
			}
		}
	}
	return nil
}

// PendingFor returns the pending tasks of a subscription keyed by hook.
func (m *MockTaskScheduler) PendingFor(subscriptionID uint) map[string]time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]time.Time)
	for _, task := range m.tasks {
		if task.Args.SubscriptionID == subscriptionID && task.Status == notification.TaskStatusPending {
			out[task.Hook] = task.FireAt
		}
	}
	return out
}

// PendingCount returns the number of pending tasks across all subscriptions.
func (m *MockTaskScheduler) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, task := range m.tasks {
		if task.Status == notification.TaskStatusPending {
			n++
		}
	}
	return n
}

// ResetCalls zeroes the call counters.
func (m *MockTaskScheduler) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScheduleCalls, m.RescheduleCalls, m.CancelCalls, m.CancelAllCalls = 0, 0, 0, 0
}

// SetScheduleError sets the error to return on Schedule.
func (m *MockTaskScheduler) SetScheduleError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduleError = err
}

// SetLookupError sets the error to return on NextPending, Latest, ListPending
// and ClaimDue.
func (m *MockTaskScheduler) SetLookupError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupError = err
}

// MockPolicyRepository keeps one policy in memory.
type MockPolicyRepository struct {
	mu      sync.RWMutex
	policy  *notification.Policy
	saves   int
	getErr  error
	saveErr error
}

func NewMockPolicyRepository(initial *notification.Policy) *MockPolicyRepository {
	return &MockPolicyRepository{policy: initial}
}

func (m *MockPolicyRepository) Get(ctx context.Context) (*notification.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.policy == nil {
		return nil, nil
	}
	p := *m.policy
	return &p, nil
}

func (m *MockPolicyRepository) Save(ctx context.Context, policy notification.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.policy = &policy
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MockPolicyRepository) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *MockPolicyRepository) SetGetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

func (m *MockPolicyRepository) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// MockPolicyProvider serves a mutable policy.
type MockPolicyProvider struct {
	mu     sync.RWMutex
	policy notification.Policy
	err    error
}

func NewMockPolicyProvider(policy notification.Policy) *MockPolicyProvider {
	return &MockPolicyProvider{policy: policy}
}

func (m *MockPolicyProvider) GetPolicy(ctx context.Context) (notification.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy, m.err
}

func (m *MockPolicyProvider) SetPolicy(policy notification.Policy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = policy
}

func (m *MockPolicyProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// MockNotifier records delivered notifications.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []notification.Notification
	err  error
}

func (m *MockNotifier) Notify(ctx context.Context, n notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.Sent = append(m.Sent, n)
	return nil
}

func (m *MockNotifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
