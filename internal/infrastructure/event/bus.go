package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/retailpos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusClosed is returned by Publish once Stop has been called.
var ErrBusClosed = errors.New("event bus is closed")

// DispatchStats counts deliveries for one event type.
type DispatchStats struct {
	Published int64 `json:"published"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// InMemoryEventBus delivers credit events to subscribed handlers on the
// publisher's goroutine. Services publish only after their transaction has
// committed, so a failing handler never rolls back a sale or payment; its
// error is logged and returned joined with the others.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup

	statsMu sync.Mutex
	stats   map[string]*DispatchStats
}

// NewInMemoryEventBus creates a bus that accepts events immediately.
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("event_bus"),
		stats:    make(map[string]*DispatchStats),
	}
}

// Publish hands every event to each handler registered for its type.
// All handlers run even when one fails.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	b.inflight.Add(1)
	b.mu.RUnlock()
	defer b.inflight.Done()

	var errs []error
	for _, ev := range events {
		if ev == nil {
			continue
		}
		handlers := b.registry.GetHandlers(ev.EventType())
		log := b.logger.With(
			zap.String("event_type", ev.EventType()),
			zap.String("event_id", ev.EventID().String()),
			zap.String("sale_id", ev.AggregateID().String()),
		)
		if len(handlers) == 0 {
			log.Debug("no handlers for event")
		}

		failed := 0
		for _, h := range handlers {
			if err := b.deliver(ctx, h, ev); err != nil {
				failed++
				log.Warn("event handler failed", zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", ev.EventType(), err))
			}
		}
		b.record(ev.EventType(), len(handlers), failed)
	}
	return errors.Join(errs...)
}

// Subscribe registers handler for eventTypes, or for the handler's own
// EventTypes when none are given. A handler with no types receives every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler from every event type.
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start reopens a bus closed by Stop.
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	b.closed = false
	b.mu.Unlock()
	b.logger.Info("event bus started", zap.Int("handlers", len(b.registry.GetAllHandlers())))
	return nil
}

// Stop rejects new events and waits for in-flight deliveries, or for ctx.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped", zap.Any("stats", b.Stats()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

// Stats returns a snapshot of delivery counters keyed by event type.
func (b *InMemoryEventBus) Stats() map[string]DispatchStats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	out := make(map[string]DispatchStats, len(b.stats))
	for k, v := range b.stats {
		out[k] = *v
	}
	return out
}

func (b *InMemoryEventBus) record(eventType string, handlers, failed int) {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	s, ok := b.stats[eventType]
	if !ok {
		s = &DispatchStats{}
		b.stats[eventType] = s
	}
	s.Published++
	s.Delivered += int64(handlers - failed)
	s.Failed += int64(failed)
}

// deliver turns a handler panic into an error so the remaining handlers still run.
func (b *InMemoryEventBus) deliver(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
