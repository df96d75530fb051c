package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultDedupTTL is how long a handled event key is remembered
const DefaultDedupTTL = 48 * time.Hour

// KeyFunc derives the deduplication key for an event. An empty key disables
// deduplication for that event.
type KeyFunc func(shared.DomainEvent) string

// EventIDKey deduplicates redeliveries of the same event
func EventIDKey(e shared.DomainEvent) string {
	return "event:" + e.EventID().String()
}

// DailyDueKey collapses CreditSaleDue events for one sale into one per
// calendar day, so the reminder scan can run many times a day without
// notifying the same customer twice. Other events fall back to EventIDKey.
func DailyDueKey(e shared.DomainEvent) string {
	if e.EventType() != credit.EventTypeCreditSaleDue {
		return EventIDKey(e)
	}
	return "due:" + e.AggregateID().String() + ":" + e.OccurredAt().Format(time.DateOnly)
}

// IdempotencyStats is a snapshot of IdempotentHandler counters
type IdempotencyStats struct {
	Processed  int64 `json:"processed"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// IdempotentHandler wraps an EventHandler so each key is handled at most once
// within the TTL. A failed delivery releases its key again.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	keyFn   KeyFunc
	ttl     time.Duration
	logger  *zap.Logger

	processed  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithKeyFunc replaces the default EventIDKey
func WithKeyFunc(fn KeyFunc) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if fn != nil {
			h.keyFn = fn
		}
	}
}

// WithDedupTTL sets how long keys are remembered
func WithDedupTTL(ttl time.Duration) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

// NewIdempotentHandler wraps handler with store-backed deduplication
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		keyFn:   EventIDKey,
		ttl:     DefaultDedupTTL,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler unless the event's key was already handled.
// When the store is unreachable the event is handled anyway.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	key := h.keyFn(event)
	if key == "" || h.store == nil {
		return h.handle(ctx, event, "")
	}

	fresh, err := h.store.MarkProcessed(ctx, key, h.ttl)
	if err != nil {
		h.logger.Warn("idempotency store unavailable, handling event anyway",
			zap.String("key", key),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		return h.handle(ctx, event, "")
	}
	if !fresh {
		h.duplicates.Add(1)
		h.logger.Debug("duplicate event skipped",
			zap.String("key", key),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}
	return h.handle(ctx, event, key)
}

func (h *IdempotentHandler) handle(ctx context.Context, event shared.DomainEvent, key string) error {
	if err := h.handler.Handle(ctx, event); err != nil {
		h.failed.Add(1)
		if key != "" {
			if ferr := h.store.Forget(ctx, key); ferr != nil {
				h.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(ferr))
			}
		}
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns the handler counters
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed:  h.processed.Load(),
		Duplicates: h.duplicates.Load(),
		Failed:     h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
