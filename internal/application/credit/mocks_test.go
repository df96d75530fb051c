package credit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mocks
// =============================================================================

// MockCreditSaleRepository is a testify mock of credit.CreditSaleRepository
type MockCreditSaleRepository struct {
	mock.Mock
}

func (m *MockCreditSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.CreditSale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.CreditSale), args.Error(1)
}

func (m *MockCreditSaleRepository) FindByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*credit.CreditSale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.CreditSale), args.Error(1)
}

func (m *MockCreditSaleRepository) FindActive(ctx context.Context, filter credit.CreditSaleFilter) ([]credit.CreditSale, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]credit.CreditSale), args.Get(1).(int64), args.Error(2)
}

func (m *MockCreditSaleRepository) FindByStatus(ctx context.Context, status credit.SettlementStatus, filter credit.CreditSaleFilter) ([]credit.CreditSale, int64, error) {
	args := m.Called(ctx, status, filter)
	return args.Get(0).([]credit.CreditSale), args.Get(1).(int64), args.Error(2)
}

func (m *MockCreditSaleRepository) FindOpenChargedBefore(ctx context.Context, before time.Time) ([]credit.CreditSale, error) {
	args := m.Called(ctx, before)
	return args.Get(0).([]credit.CreditSale), args.Error(1)
}

func (m *MockCreditSaleRepository) Create(ctx context.Context, sale *credit.CreditSale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

func (m *MockCreditSaleRepository) SaveWithLock(ctx context.Context, sale *credit.CreditSale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

// MockPaymentRepository is a testify mock of credit.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *credit.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID) ([]credit.Payment, error) {
	args := m.Called(ctx, saleID)
	return args.Get(0).([]credit.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SumBySaleID(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, saleID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockEventPublisher is a testify mock of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockCashLedger is a testify mock of credit.CashLedger
type MockCashLedger struct {
	mock.Mock
}

func (m *MockCashLedger) AppendEntry(ctx context.Context, entry credit.CashLedgerEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

// MockCashSessionProvider is a testify mock of credit.CashSessionProvider
type MockCashSessionProvider struct {
	mock.Mock
}

func (m *MockCashSessionProvider) CurrentSessionID(ctx context.Context) (*string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

// MockSettlementReportRepository is a testify mock of credit.SettlementReportRepository
type MockSettlementReportRepository struct {
	mock.Mock
}

func (m *MockSettlementReportRepository) Summarize(ctx context.Context, from, to *time.Time, asOf time.Time) (*credit.SettlementSummary, error) {
	args := m.Called(ctx, from, to, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.SettlementSummary), args.Error(1)
}

// MockReceiptRenderer is a testify mock of credit.ReceiptRenderer
type MockReceiptRenderer struct {
	mock.Mock
}

func (m *MockReceiptRenderer) Render(ctx context.Context, payment credit.Payment, snapshot credit.CreditSale, store credit.StoreInfo, copy credit.ReceiptCopy) error {
	args := m.Called(ctx, payment, snapshot, store, copy)
	return args.Error(0)
}

// =============================================================================
// Stateful fakes for the payment flow
// =============================================================================

// memSaleRepo stores copies of sales and enforces the optimistic version check
type memSaleRepo struct {
	mu    sync.Mutex
	sales map[uuid.UUID]credit.CreditSale
}

func newMemSaleRepo(sales ...*credit.CreditSale) *memSaleRepo {
	r := &memSaleRepo{sales: make(map[uuid.UUID]credit.CreditSale)}
	for _, s := range sales {
		r.sales[s.ID] = s.Snapshot()
	}
	return r
}

func (r *memSaleRepo) get(id uuid.UUID) credit.CreditSale {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sales[id]
	return s.Snapshot()
}

func (r *memSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*credit.CreditSale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok || s.IsDeleted() {
		return nil, credit.ErrCreditSaleNotFound
	}
	cp := s.Snapshot()
	return &cp, nil
}

func (r *memSaleRepo) FindByIDIncludingDeleted(_ context.Context, id uuid.UUID) (*credit.CreditSale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, credit.ErrCreditSaleNotFound
	}
	cp := s.Snapshot()
	return &cp, nil
}

func (r *memSaleRepo) FindActive(context.Context, credit.CreditSaleFilter) ([]credit.CreditSale, int64, error) {
	return nil, 0, nil
}

func (r *memSaleRepo) FindByStatus(context.Context, credit.SettlementStatus, credit.CreditSaleFilter) ([]credit.CreditSale, int64, error) {
	return nil, 0, nil
}

func (r *memSaleRepo) FindOpenChargedBefore(context.Context, time.Time) ([]credit.CreditSale, error) {
	return nil, nil
}

func (r *memSaleRepo) Create(_ context.Context, sale *credit.CreditSale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales[sale.ID] = sale.Snapshot()
	return nil
}

func (r *memSaleRepo) SaveWithLock(_ context.Context, sale *credit.CreditSale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sales[sale.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != sale.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.sales[sale.ID] = sale.Snapshot()
	return nil
}

// memPaymentRepo is an append-only payment store
type memPaymentRepo struct {
	mu       sync.Mutex
	payments []credit.Payment
	failNext error
}

func (r *memPaymentRepo) Create(_ context.Context, p *credit.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	r.payments = append(r.payments, *p)
	return nil
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*credit.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.payments {
		if r.payments[i].ID == id {
			p := r.payments[i]
			return &p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memPaymentRepo) FindBySaleID(_ context.Context, saleID uuid.UUID) ([]credit.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]credit.Payment, 0)
	for _, p := range r.payments {
		if p.CreditSaleID == saleID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.After(out[j].PaymentDate) })
	return out, nil
}

func (r *memPaymentRepo) SumBySaleID(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	payments, _ := r.FindBySaleID(ctx, saleID)
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

func (r *memPaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}

// mutexLocker serializes per sale with one process-wide mutex
type mutexLocker struct {
	mu  sync.Mutex
	err error
}

func (l *mutexLocker) Lock(context.Context, uuid.UUID) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	return l.mu.Unlock, nil
}

// memIdempotencyStore is a map-backed shared.IdempotencyStore
type memIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: make(map[string]bool)}
}

func (s *memIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memIdempotencyStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memIdempotencyStore) Close() error { return nil }

// =============================================================================
// Helpers
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newSale(total string, installments int, saleDate, chargeDate time.Time) *credit.CreditSale {
	sale, err := credit.NewCreditSale(credit.SaleInput{
		CustomerName: "Maria Souza",
		Description:  "Venda a prazo",
		Total:        decPtr(total),
		Installments: installments,
		SaleDate:     &saleDate,
		ChargeDate:   chargeDate,
	})
	if err != nil {
		panic(err)
	}
	sale.ClearDomainEvents()
	return sale
}
