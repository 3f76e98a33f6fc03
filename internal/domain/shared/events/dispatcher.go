package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// SyncEventDispatcher delivers every event to its handlers on the caller's
// goroutine, in subscription order, before Publish returns.
type SyncEventDispatcher struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex
}

// NewSyncEventDispatcher creates an empty dispatcher.
func NewSyncEventDispatcher() *SyncEventDispatcher {
	return &SyncEventDispatcher{
		handlers: make(map[string][]EventHandler),
	}
}

// Publish runs all handlers registered for the event type. A failing handler
// does not stop the remaining ones; all failures are joined in the result.
func (d *SyncEventDispatcher) Publish(ctx context.Context, event DomainEvent) error {
	if event == nil {
		return nil
	}

	d.mu.RLock()
	handlers := d.handlers[event.GetEventType()]
	d.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if !handler.CanHandle(event.GetEventType()) {
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("handle %s: %w", event.GetEventType(), err))
		}
	}

	return errors.Join(errs...)
}

// PublishAll publishes events in order.
func (d *SyncEventDispatcher) PublishAll(ctx context.Context, events []DomainEvent) error {
	var errs []error
	for _, event := range events {
		if err := d.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for specific event types
func (d *SyncEventDispatcher) Subscribe(eventType string, handler EventHandler) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], handler)
	return nil
}

// SimpleEventHandler adapts a function to EventHandler.
type SimpleEventHandler struct {
	eventType string
	handler   func(ctx context.Context, event DomainEvent) error
}

// NewSimpleEventHandler creates a new simple event handler
func NewSimpleEventHandler(eventType string, handler func(ctx context.Context, event DomainEvent) error) *SimpleEventHandler {
	return &SimpleEventHandler{
		eventType: eventType,
		handler:   handler,
	}
}

// Handle processes a domain event
func (h *SimpleEventHandler) Handle(ctx context.Context, event DomainEvent) error {
	if h.handler != nil {
		return h.handler(ctx, event)
	}
	return nil
}

// CanHandle checks if this handler can handle the given event type
func (h *SimpleEventHandler) CanHandle(eventType string) bool {
	return h.eventType == eventType
}
