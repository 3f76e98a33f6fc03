// Package testutil provides mock implementations for testing the subscription application layer.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/orris-inc/subsync/internal/domain/subscription"
)

// MockSubscriptionRepository is an in-memory subscription.SubscriptionRepository.
type MockSubscriptionRepository struct {
	mu            sync.RWMutex
	subscriptions map[uint]*subscription.Subscription
	nextID        uint

	// Error injection for testing
	createError error
	getError    error
	updateError error
	markError   error
}

// NewMockSubscriptionRepository creates a new mock subscription repository.
func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{
		subscriptions: make(map[uint]*subscription.Subscription),
	}
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createError != nil {
		return m.createError
	}

	if sub.ID() == 0 {
		m.nextID++
		if err := sub.SetID(m.nextID); err != nil {
			return err
		}
	}
	sub.MarkPersisted()
	m.subscriptions[sub.ID()] = sub
	return nil
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getError != nil {
		return nil, m.getError
	}
	sub, ok := m.subscriptions[id]
	if !ok {
		return nil, nil
	}
	return sub, nil
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateError != nil {
		return m.updateError
	}
	if _, ok := m.subscriptions[sub.ID()]; !ok {
		return subscription.ErrSubscriptionNotFound
	}
	sub.MarkPersisted()
	m.subscriptions[sub.ID()] = sub
	return nil
}

func (m *MockSubscriptionRepository) FindIDsPendingReconciliation(ctx context.Context, syncedBefore time.Time, limit int) ([]uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getError != nil {
		return nil, m.getError
	}

	var ids []uint
	for id, sub := range m.subscriptions {
		if isPending(sub, syncedBefore) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MockSubscriptionRepository) CountPendingReconciliation(ctx context.Context, syncedBefore time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getError != nil {
		return 0, m.getError
	}

	var count int64
	for _, sub := range m.subscriptions {
		if isPending(sub, syncedBefore) {
			count++
		}
	}
	return count, nil
}

func (m *MockSubscriptionRepository) MarkNotificationsSynced(ctx context.Context, ids []uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.markError != nil {
		return m.markError
	}
	for _, id := range ids {
		if sub, ok := m.subscriptions[id]; ok {
			sub.MarkNotificationsSynced(at)
		}
	}
	return nil
}

func isPending(sub *subscription.Subscription, syncedBefore time.Time) bool {
	marker := sub.NotificationsSyncedAt()
	return marker == nil || marker.Before(syncedBefore)
}

// AddSubscription stores a subscription as is.
func (m *MockSubscriptionRepository) AddSubscription(sub *subscription.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[sub.ID()] = sub
	if sub.ID() > m.nextID {
		m.nextID = sub.ID()
	}
}

// SetCreateError sets the error to return on Create.
func (m *MockSubscriptionRepository) SetCreateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createError = err
}

// SetGetError sets the error to return on reads.
func (m *MockSubscriptionRepository) SetGetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getError = err
}

// SetUpdateError sets the error to return on Update.
func (m *MockSubscriptionRepository) SetUpdateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateError = err
}

// SetMarkError sets the error to return on MarkNotificationsSynced.
func (m *MockSubscriptionRepository) SetMarkError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markError = err
}

// MockOrderCounter returns configured counts per subscription.
type MockOrderCounter struct {
	mu       sync.RWMutex
	counts   map[uint]int
	err      error
	Recorded []RecordedOrder
}

type RecordedOrder struct {
	SubscriptionID uint
	OrderType      subscription.OrderType
	Outcome        subscription.PaymentOutcome
	CreatedAt      time.Time
}

func NewMockOrderCounter() *MockOrderCounter {
	return &MockOrderCounter{counts: make(map[uint]int)}
}

func (m *MockOrderCounter) CountOrders(ctx context.Context, subscriptionID uint, orderTypes []subscription.OrderType, outcomes []subscription.PaymentOutcome) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.counts[subscriptionID], nil
}

// RecordOrder keeps the order and counts it when completed.
func (m *MockOrderCounter) RecordOrder(ctx context.Context, subscriptionID uint, orderType subscription.OrderType, outcome subscription.PaymentOutcome, createdAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.Recorded = append(m.Recorded, RecordedOrder{
		SubscriptionID: subscriptionID,
		OrderType:      orderType,
		Outcome:        outcome,
		CreatedAt:      createdAt,
	})
	if outcome == subscription.PaymentCompleted {
		m.counts[subscriptionID]++
	}
	return nil
}

// SetCount sets the count returned for a subscription.
func (m *MockOrderCounter) SetCount(subscriptionID uint, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[subscriptionID] = count
}

func (m *MockOrderCounter) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// MockCapabilityResolver returns the same capabilities for every method.
type MockCapabilityResolver struct {
	Caps subscription.PaymentCapabilities
}

func (m *MockCapabilityResolver) Capabilities(ctx context.Context, paymentMethod string) subscription.PaymentCapabilities {
	return m.Caps
}

// MockRoleUpdater records role changes.
type MockRoleUpdater struct {
	mu    sync.Mutex
	Roles map[uint]string
	err   error
}

func NewMockRoleUpdater() *MockRoleUpdater {
	return &MockRoleUpdater{Roles: make(map[uint]string)}
}

func (m *MockRoleUpdater) SetRole(ctx context.Context, customerID uint, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.Roles[customerID] = role
	return nil
}

func (m *MockRoleUpdater) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Role returns the last role set for a customer.
func (m *MockRoleUpdater) Role(customerID uint) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Roles[customerID]
}

// MockTransactionRunner runs the function directly and counts transactions.
type MockTransactionRunner struct {
	mu    sync.Mutex
	Calls int
}

func (m *MockTransactionRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	return fn(ctx)
}
