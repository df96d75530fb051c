package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventHandler) EventTypes() []string {
	return m.Called().Get(0).([]string)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Forget(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func dueEvent(t *testing.T, saleID uuid.UUID, asOf time.Time) *credit.CreditSaleDueEvent {
	t.Helper()
	total := decimal.NewFromInt(120)
	sale, err := credit.NewCreditSale(credit.SaleInput{
		CustomerName: "Joana Lima",
		Description:  "Geladeira",
		Total:        &total,
		Installments: 3,
		ChargeDate:   asOf.AddDate(0, 0, -2),
	})
	require.NoError(t, err)
	sale.ID = saleID
	return credit.NewCreditSaleDueEvent(sale, asOf)
}

func TestIdempotentHandler_DeduplicatesByEventID(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := new(MockEventHandler)
	event := newTestEvent(credit.EventTypePaymentApplied, uuid.New())
	inner.On("Handle", mock.Anything, event).Return(nil).Once()

	h := NewIdempotentHandler(inner, store, nil)
	for range 3 {
		require.NoError(t, h.Handle(context.Background(), event))
	}

	inner.AssertExpectations(t)
	assert.Equal(t, IdempotencyStats{Processed: 1, Duplicates: 2}, h.Stats())
}

func TestIdempotentHandler_DailyDueKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	saleID := uuid.New()
	morning := dueEvent(t, saleID, time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	evening := dueEvent(t, saleID, time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC))
	nextDay := dueEvent(t, saleID, time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC))
	other := dueEvent(t, uuid.New(), time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))

	inner := new(MockEventHandler)
	inner.On("Handle", mock.Anything, mock.Anything).Return(nil)

	h := NewIdempotentHandler(inner, store, nil, WithKeyFunc(DailyDueKey))
	ctx := context.Background()
	for _, e := range []shared.DomainEvent{morning, evening, nextDay, other} {
		require.NoError(t, h.Handle(ctx, e))
	}

	inner.AssertNumberOfCalls(t, "Handle", 3)
	inner.AssertNotCalled(t, "Handle", mock.Anything, evening)
	assert.Equal(t, int64(1), h.Stats().Duplicates)
}

func TestDailyDueKey(t *testing.T) {
	saleID := uuid.New()
	e := dueEvent(t, saleID, time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, "due:"+saleID.String()+":2024-03-10", DailyDueKey(e))

	payment := newTestEvent(credit.EventTypePaymentApplied, saleID)
	assert.Equal(t, "event:"+payment.EventID().String(), DailyDueKey(payment))
}

func TestIdempotentHandler_FailureReleasesKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := new(MockEventHandler)
	event := newTestEvent(credit.EventTypeCreditSaleSettled, uuid.New())
	inner.On("Handle", mock.Anything, event).Return(errors.New("smtp down")).Once()
	inner.On("Handle", mock.Anything, event).Return(nil).Once()

	h := NewIdempotentHandler(inner, store, nil)
	ctx := context.Background()

	require.Error(t, h.Handle(ctx, event))
	require.NoError(t, h.Handle(ctx, event))

	inner.AssertExpectations(t)
	assert.Equal(t, IdempotencyStats{Processed: 1, Failed: 1}, h.Stats())
}

func TestIdempotentHandler_StoreErrorStillHandles(t *testing.T) {
	store := new(MockIdempotencyStore)
	event := newTestEvent(credit.EventTypeCreditSaleDue, uuid.New())
	store.On("MarkProcessed", mock.Anything, mock.Anything, 2*time.Hour).Return(false, errors.New("redis down"))

	inner := new(MockEventHandler)
	inner.On("Handle", mock.Anything, event).Return(nil).Once()

	h := NewIdempotentHandler(inner, store, nil, WithDedupTTL(2*time.Hour))
	require.NoError(t, h.Handle(context.Background(), event))

	inner.AssertExpectations(t)
	store.AssertNotCalled(t, "Forget", mock.Anything, mock.Anything)
}

func TestIdempotentHandler_EmptyKeySkipsStore(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := new(MockEventHandler)
	event := newTestEvent(credit.EventTypeCreditSaleCreated, uuid.New())
	inner.On("Handle", mock.Anything, event).Return(nil).Twice()

	h := NewIdempotentHandler(inner, store, nil, WithKeyFunc(func(shared.DomainEvent) string { return "" }))
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	inner.AssertExpectations(t)
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_EventTypes(t *testing.T) {
	inner := new(MockEventHandler)
	inner.On("EventTypes").Return([]string{credit.EventTypeCreditSaleDue})

	h := NewIdempotentHandler(inner, nil, nil)
	assert.Equal(t, []string{credit.EventTypeCreditSaleDue}, h.EventTypes())
}

func TestIdempotentHandler_ConcurrentDuplicates(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := new(MockEventHandler)
	event := newTestEvent(credit.EventTypePaymentApplied, uuid.New())
	inner.On("Handle", mock.Anything, event).Return(nil).Once()

	h := NewIdempotentHandler(inner, store, nil)

	const n = 50
	errs := make(chan error, n)
	for range n {
		go func() { errs <- h.Handle(context.Background(), event) }()
	}
	for range n {
		assert.NoError(t, <-errs)
	}

	inner.AssertExpectations(t)
	assert.Equal(t, int64(1), h.Stats().Processed)
	assert.Equal(t, int64(n-1), h.Stats().Duplicates)
}
