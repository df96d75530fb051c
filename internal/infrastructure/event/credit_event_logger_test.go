package event

import (
	"context"
	"testing"
	"time"

	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCreditEventLogger_DueEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	bus := NewInMemoryEventBus(nil)
	h := NewCreditEventLogger(zap.New(core))
	bus.Subscribe(h)

	asOf := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	overdue := dueEvent(t, uuid.New(), asOf)
	require.True(t, overdue.Overdue)

	require.NoError(t, bus.Publish(context.Background(), overdue))

	entries := logs.FilterMessage("credit sale overdue").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "Joana Lima", ctx["customer"])
	assert.Equal(t, "120.00", ctx["remaining"])
	assert.Equal(t, overdue.AggregateID().String(), ctx["sale_id"])
}

func TestCreditEventLogger_OtherEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewCreditEventLogger(zap.New(core))
	ctx := context.Background()

	generic := newTestEvent(credit.EventTypeCreditSaleArchived, uuid.New())
	require.NoError(t, h.Handle(ctx, generic))

	assert.Equal(t, 1, logs.FilterMessage("credit sale changed").Len())
	assert.Contains(t, h.EventTypes(), credit.EventTypeCreditSaleDue)
	assert.Contains(t, h.EventTypes(), credit.EventTypePaymentApplied)
}
