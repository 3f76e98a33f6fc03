package subscription

import (
	"fmt"
	"time"

	"github.com/orris-inc/subsync/internal/domain/shared/events"
	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/subsync/internal/shared/constants"
	"github.com/orris-inc/subsync/internal/shared/id"
)

// maxRenewalSteps bounds the catch-up loop of next payment calculation.
const maxRenewalSteps = 10000

// Subscription is the aggregate root holding the status and the date
// schedule of a recurring billing agreement.
type Subscription struct {
	id                    uint
	sid                   string
	customerID            uint
	status                vo.SubscriptionStatus
	dates                 DateSchedule
	billingPeriod         vo.BillingPeriod
	billingInterval       int
	trialPeriod           vo.BillingPeriod
	trialLength           int
	requiresManualRenewal bool
	paymentMethod         string
	suspensionCount       int
	notificationsSyncedAt *time.Time
	version               int
	// persistedVersion is the version last read from or written to storage.
	persistedVersion      int
	createdAt             time.Time
	updatedAt             time.Time
	events                []events.DomainEvent
}

// NewSubscriptionParams holds the values a subscription is created with.
// TrialEnd, NextPayment and End are calculated or left empty when zero.
type NewSubscriptionParams struct {
	CustomerID            uint
	BillingPeriod         vo.BillingPeriod
	BillingInterval       int
	TrialPeriod           vo.BillingPeriod
	TrialLength           int
	Start                 time.Time
	TrialEnd              time.Time
	NextPayment           time.Time
	End                   time.Time
	RequiresManualRenewal bool
	PaymentMethod         string
	// Paid creates the subscription active, as when checkout captured payment.
	Paid bool
	Now  time.Time
}

// NewSubscription creates a pending subscription, or an active one when its
// initial order is already paid.
func NewSubscription(p NewSubscriptionParams) (*Subscription, error) {
	if p.CustomerID == 0 {
		return nil, invalidArgument("customer ID is required")
	}
	if !p.BillingPeriod.IsValid() {
		return nil, invalidArgument("invalid billing period: %s", p.BillingPeriod)
	}
	if p.BillingInterval < 1 {
		return nil, invalidArgument("billing interval must be at least 1")
	}
	if p.TrialLength < 0 {
		return nil, invalidArgument("trial length cannot be negative")
	}
	if p.TrialLength > 0 && !p.TrialPeriod.IsValid() {
		return nil, invalidArgument("invalid trial period: %s", p.TrialPeriod)
	}

	now := normalizeDate(p.Now)
	start := normalizeDate(p.Start)
	if start.IsZero() {
		start = now
	}

	sid, err := id.GenerateWithPrefix(constants.PrefixSubscription, id.DefaultLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate subscription ID: %w", err)
	}

	status := vo.StatusPending
	if p.Paid {
		status = vo.StatusActive
	}

	s := &Subscription{
		sid:                   sid,
		customerID:            p.CustomerID,
		status:                status,
		billingPeriod:         p.BillingPeriod,
		billingInterval:       p.BillingInterval,
		trialPeriod:           p.TrialPeriod,
		trialLength:           p.TrialLength,
		requiresManualRenewal: p.RequiresManualRenewal,
		paymentMethod:         p.PaymentMethod,
		version:               1,
		createdAt:             now,
		updatedAt:             now,
		dates: NewDateSchedule(map[vo.DateType]time.Time{
			vo.DateCreated: now,
			vo.DateStart:   start,
		}),
	}

	calc := DateCalculationContext{Now: now}
	initial := map[vo.DateType]time.Time{
		vo.DateTrialEnd:    p.TrialEnd,
		vo.DateNextPayment: p.NextPayment,
		vo.DateEnd:         p.End,
	}
	if initial[vo.DateTrialEnd].IsZero() {
		initial[vo.DateTrialEnd] = s.CalculateDate(string(vo.DateTrialEnd), calc)
	}
	s.dates = s.dates.With(map[vo.DateType]time.Time{
		vo.DateTrialEnd: initial[vo.DateTrialEnd],
		vo.DateEnd:      initial[vo.DateEnd],
	})
	if initial[vo.DateNextPayment].IsZero() {
		initial[vo.DateNextPayment] = s.CalculateDate(string(vo.DateNextPayment), calc)
	}

	prospective := s.dates.With(initial)
	if violations := prospective.Validate(); len(violations) > 0 {
		return nil, &DateError{Violations: violations}
	}
	s.dates = prospective

	return s, nil
}

// SubscriptionReconstructParams holds the stored state of a subscription.
type SubscriptionReconstructParams struct {
	ID                    uint
	SID                   string
	CustomerID            uint
	Status                string
	Dates                 map[vo.DateType]time.Time
	BillingPeriod         string
	BillingInterval       int
	TrialPeriod           string
	TrialLength           int
	RequiresManualRenewal bool
	PaymentMethod         string
	SuspensionCount       int
	NotificationsSyncedAt *time.Time
	Version               int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ReconstructSubscription rebuilds a subscription from persistence. Draft
// statuses are collapsed to pending.
func ReconstructSubscription(p SubscriptionReconstructParams) (*Subscription, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	status, ok := vo.ParseStatus(p.Status)
	if !ok || status == vo.StatusDeleted {
		return nil, fmt.Errorf("invalid subscription status: %s", p.Status)
	}
	period, err := vo.ParseBillingPeriod(p.BillingPeriod)
	if err != nil {
		return nil, err
	}
	interval := p.BillingInterval
	if interval < 1 {
		interval = 1
	}

	var trialPeriod vo.BillingPeriod
	if p.TrialPeriod != "" {
		trialPeriod, err = vo.ParseBillingPeriod(p.TrialPeriod)
		if err != nil {
			return nil, err
		}
	}

	return &Subscription{
		id:                    p.ID,
		sid:                   p.SID,
		customerID:            p.CustomerID,
		status:                status,
		dates:                 NewDateSchedule(p.Dates),
		billingPeriod:         period,
		billingInterval:       interval,
		trialPeriod:           trialPeriod,
		trialLength:           p.TrialLength,
		requiresManualRenewal: p.RequiresManualRenewal,
		paymentMethod:         p.PaymentMethod,
		suspensionCount:       p.SuspensionCount,
		notificationsSyncedAt: p.NotificationsSyncedAt,
		version:               p.Version,
		persistedVersion:      p.Version,
		createdAt:             p.CreatedAt,
		updatedAt:             p.UpdatedAt,
	}, nil
}

func (s *Subscription) ID() uint {
	return s.id
}

// SetID is called by the repository after the first insert.
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = id
	return nil
}

func (s *Subscription) SID() string {
	return s.sid
}

func (s *Subscription) CustomerID() uint {
	return s.customerID
}

func (s *Subscription) Status() vo.SubscriptionStatus {
	return s.status
}

func (s *Subscription) Dates() DateSchedule {
	return s.dates
}

// Date returns a single slot of the schedule.
func (s *Subscription) Date(dateType vo.DateType) time.Time {
	return s.dates.Get(dateType)
}

func (s *Subscription) BillingPeriod() vo.BillingPeriod {
	return s.billingPeriod
}

func (s *Subscription) BillingInterval() int {
	return s.billingInterval
}

func (s *Subscription) TrialPeriod() vo.BillingPeriod {
	return s.trialPeriod
}

func (s *Subscription) TrialLength() int {
	return s.trialLength
}

func (s *Subscription) RequiresManualRenewal() bool {
	return s.requiresManualRenewal
}

func (s *Subscription) PaymentMethod() string {
	return s.paymentMethod
}

func (s *Subscription) SuspensionCount() int {
	return s.suspensionCount
}

func (s *Subscription) NotificationsSyncedAt() *time.Time {
	return s.notificationsSyncedAt
}

func (s *Subscription) Version() int {
	return s.version
}

// PersistedVersion is the version the stored row is expected to carry.
func (s *Subscription) PersistedVersion() int {
	return s.persistedVersion
}

// MarkPersisted is called by the repository after a successful write.
func (s *Subscription) MarkPersisted() {
	s.persistedVersion = s.version
}

func (s *Subscription) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Subscription) UpdatedAt() time.Time {
	return s.updatedAt
}

// BillingCycleDays is the nominal length of one billing cycle in days.
func (s *Subscription) BillingCycleDays() int {
	return s.billingPeriod.Days() * s.billingInterval
}

// EffectiveCapabilities returns the capabilities used for status changes.
// Manually renewed subscriptions are not bound by a gateway and support all.
func (s *Subscription) EffectiveCapabilities(gateway PaymentCapabilities) PaymentCapabilities {
	if s.requiresManualRenewal {
		return AllCapabilities()
	}
	return gateway
}

// UpdateStatus moves the subscription to target and applies the date side
// effects of the new status. Nothing changes when the move is rejected.
func (s *Subscription) UpdateStatus(target string, ctx TransitionContext) error {
	newStatus, ok := vo.ParseStatus(target)
	if !ok {
		return &TransitionError{From: s.status, To: vo.SubscriptionStatus(target)}
	}

	now := normalizeDate(ctx.Now)
	ctx.Now = now
	ctx.End = s.dates.Get(vo.DateEnd)

	// A billed subscription with prepaid time left runs out its term first.
	if newStatus == vo.StatusCancelled && !ctx.CancelImmediately &&
		s.status != vo.StatusPending && s.status != vo.StatusPendingCancel {
		nextPayment := s.dates.Get(vo.DateNextPayment)
		if !nextPayment.IsZero() && nextPayment.After(now) &&
			CanTransition(s.status, vo.StatusPendingCancel, ctx) {
			newStatus = vo.StatusPendingCancel
		}
	}

	if !CanTransition(s.status, newStatus, ctx) {
		return &TransitionError{From: s.status, To: newStatus}
	}

	oldStatus := s.status
	switch newStatus {
	case vo.StatusActive:
		if oldStatus == vo.StatusOnHold {
			s.suspensionCount = 0
		}
	case vo.StatusOnHold:
		s.suspensionCount++
	case vo.StatusPendingCancel:
		end := s.CalculateDate(string(vo.DateEndOfPrepaidTerm), DateCalculationContext{Now: now})
		if end.IsZero() || !end.After(now) {
			end = now
		}
		s.clearBillingDates(now)
		s.setDate(vo.DateEnd, end, now)
	case vo.StatusCancelled:
		s.clearBillingDates(now)
		end := s.dates.Get(vo.DateEnd)
		if now.After(s.dates.Get(vo.DateStart)) && (end.IsZero() || end.After(now)) {
			s.setDate(vo.DateEnd, now, now)
		}
	case vo.StatusExpired:
		s.clearBillingDates(now)
		s.setDate(vo.DateEnd, now, now)
	}

	s.status = newStatus
	s.touch(now)
	s.recordEvent(&StatusChangedEvent{
		SubscriptionID: s.id,
		CustomerID:     s.customerID,
		From:           oldStatus,
		To:             newStatus,
		OccurredAt:     now,
	})

	return nil
}

// MarkSwitched records that the subscription was replaced by another one.
func (s *Subscription) MarkSwitched(now time.Time) error {
	now = normalizeDate(now)
	if s.status == vo.StatusSwitched || s.status == vo.StatusTrash {
		return &TransitionError{From: s.status, To: vo.StatusSwitched}
	}

	oldStatus := s.status
	s.clearBillingDates(now)
	end := s.dates.Get(vo.DateEnd)
	if end.IsZero() || end.After(now) {
		s.setDate(vo.DateEnd, now, now)
	}
	s.status = vo.StatusSwitched
	s.touch(now)
	s.recordEvent(&StatusChangedEvent{
		SubscriptionID: s.id,
		CustomerID:     s.customerID,
		From:           oldStatus,
		To:             vo.StatusSwitched,
		OccurredAt:     now,
	})
	return nil
}

// UpdateDates applies a set of slot changes atomically. The merged schedule
// is validated as a whole; on any violation nothing is applied.
func (s *Subscription) UpdateDates(updates map[vo.DateType]time.Time, now time.Time) error {
	if len(updates) == 0 {
		return invalidArgument("at least one date is required")
	}
	for dateType, value := range updates {
		if !dateType.IsValid() {
			return invalidArgument("invalid date type: %s", dateType)
		}
		if dateType.IsImmutable() && value.IsZero() {
			return invalidArgument("the %s date can not be empty", dateType.Label())
		}
	}

	prospective := s.dates.With(updates)
	if violations := prospective.Validate(); len(violations) > 0 {
		return &DateError{Violations: violations}
	}

	now = normalizeDate(now)
	for _, dateType := range vo.AllDateTypes {
		if _, ok := updates[dateType]; !ok {
			continue
		}
		s.setDate(dateType, prospective.Get(dateType), now)
	}
	s.touch(now)

	return nil
}

// DeleteDate clears a slot. Names outside the schedule succeed without
// touching any stored value.
func (s *Subscription) DeleteDate(name string, now time.Time) error {
	dateType := vo.DateType(name)
	if dateType.IsImmutable() {
		return &ImmutableDateError{DateType: dateType}
	}

	now = normalizeDate(now)
	if dateType.IsValid() {
		s.dates = s.dates.With(map[vo.DateType]time.Time{dateType: {}})
	}
	s.touch(now)
	s.recordEvent(&DateChangedEvent{
		SubscriptionID: s.id,
		DateType:       dateType,
		OccurredAt:     now,
	})
	return nil
}

// RecordOrderCreated stamps the creation time of the latest order. A stamp
// on or after the end date is rejected with a DateError.
func (s *Subscription) RecordOrderCreated(at time.Time) error {
	if at.IsZero() {
		return invalidArgument("order creation time is required")
	}
	at = normalizeDate(at)
	prospective := s.dates.With(map[vo.DateType]time.Time{vo.DateLastOrderCreated: at})
	if violations := prospective.Validate(); len(violations) > 0 {
		return &DateError{Violations: violations}
	}
	s.setDate(vo.DateLastOrderCreated, at, at)
	s.touch(at)
	return nil
}

func (s *Subscription) SetSuspensionCount(n int) error {
	if n < 0 {
		return invalidArgument("suspension count cannot be negative")
	}
	s.suspensionCount = n
	return nil
}

// MarkNotificationsSynced records when notifications were last reconciled.
func (s *Subscription) MarkNotificationsSynced(at time.Time) {
	at = normalizeDate(at)
	s.notificationsSyncedAt = &at
}

// DateCalculationContext carries the inputs of date derivation that do not
// live on the aggregate.
type DateCalculationContext struct {
	Now               time.Time
	CompletedPayments int
}

// CalculateDate derives the expected value of a slot from the current state
// without changing it. Unknown names yield the zero time.
func (s *Subscription) CalculateDate(name string, ctx DateCalculationContext) time.Time {
	now := normalizeDate(ctx.Now)

	switch vo.DateType(name) {
	case vo.DateTrialEnd:
		if ctx.CompletedPayments >= 1 || s.trialLength <= 0 || !s.trialPeriod.IsValid() {
			return time.Time{}
		}
		start := s.dates.Get(vo.DateStart)
		if start.IsZero() {
			return time.Time{}
		}
		return s.trialPeriod.Add(start, s.trialLength)

	case vo.DateNextPayment:
		return s.calculateNextPayment(now)

	case vo.DateEndOfPrepaidTerm:
		nextPayment := s.dates.Get(vo.DateNextPayment)
		if !nextPayment.IsZero() && nextPayment.After(now) {
			return nextPayment
		}
		return s.dates.Get(vo.DateStart)
	}

	return time.Time{}
}

func (s *Subscription) calculateNextPayment(now time.Time) time.Time {
	end := s.dates.Get(vo.DateEnd)

	trialEnd := s.dates.Get(vo.DateTrialEnd)
	if !trialEnd.IsZero() && trialEnd.After(now) {
		if !end.IsZero() && !trialEnd.Before(end) {
			return time.Time{}
		}
		return trialEnd
	}

	base := s.dates.Get(vo.DateLastOrderCreated)
	if base.IsZero() {
		base = s.dates.Get(vo.DateStart)
	}
	if base.IsZero() || !s.billingPeriod.IsValid() || s.billingInterval < 1 {
		return time.Time{}
	}

	// Each step is computed from base to avoid month end drift.
	next := base
	for step := 1; step <= maxRenewalSteps; step++ {
		next = s.billingPeriod.Add(base, s.billingInterval*step)
		if next.After(now) {
			break
		}
	}

	if !end.IsZero() && !next.Before(end) {
		return time.Time{}
	}
	return next
}

func (s *Subscription) clearBillingDates(now time.Time) {
	s.setDate(vo.DateTrialEnd, time.Time{}, now)
	s.setDate(vo.DateNextPayment, time.Time{}, now)
}

// setDate writes one slot and records an event when the value changed.
func (s *Subscription) setDate(dateType vo.DateType, value, now time.Time) {
	value = normalizeDate(value)
	if s.dates.Get(dateType).Equal(value) {
		return
	}
	s.dates = s.dates.With(map[vo.DateType]time.Time{dateType: value})
	s.recordEvent(&DateChangedEvent{
		SubscriptionID: s.id,
		DateType:       dateType,
		NewValue:       value,
		OccurredAt:     now,
	})
}

func (s *Subscription) touch(now time.Time) {
	s.version++
	s.updatedAt = now
}

func (s *Subscription) recordEvent(event events.DomainEvent) {
	s.events = append(s.events, event)
}

// GetEvents returns the recorded events and clears them.
func (s *Subscription) GetEvents() []events.DomainEvent {
	recorded := s.events
	s.events = nil
	return recorded
}

// PeekEvents returns the recorded events without clearing them.
func (s *Subscription) PeekEvents() []events.DomainEvent {
	return append([]events.DomainEvent(nil), s.events...)
}
