package credit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/domain/shared/valueobject"
	"github.com/retailpos/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultIdempotencyTTL is how long a payment idempotency key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// PaymentRegistrar records payments against credit sales. Each registration
// is an atomic read-modify-write on one sale: a per-sale lock serializes
// concurrent requests, and the payment insert and sale update share one
// transaction guarded by the sale's optimistic version.
type PaymentRegistrar struct {
	txScope             TransactionScope
	saleRepo            credit.CreditSaleRepository
	locker              credit.SaleLocker
	cashLedger          credit.CashLedger
	sessions            credit.CashSessionProvider
	idempotency         shared.IdempotencyStore
	idempotencyTTL      time.Duration
	eventPublisher      shared.EventPublisher
	receipts            credit.ReceiptRenderer
	store               credit.StoreInfo
	metrics             *telemetry.CreditMetrics
	logger              *zap.Logger
	defaultIntervalDays int
	recordInCashLedger  bool
	now                 func() time.Time
}

// PaymentRegistrarOption configures PaymentRegistrar
type PaymentRegistrarOption func(*PaymentRegistrar)

// WithCashLedger enables cash ledger entries; sessions may be nil
func WithCashLedger(ledger credit.CashLedger, sessions credit.CashSessionProvider) PaymentRegistrarOption {
	return func(r *PaymentRegistrar) {
		r.cashLedger = ledger
		r.sessions = sessions
	}
}

// WithRecordInCashLedger sets whether payments write a cash ledger entry by default
func WithRecordInCashLedger(enabled bool) PaymentRegistrarOption {
	return func(r *PaymentRegistrar) {
		r.recordInCashLedger = enabled
	}
}

// WithIdempotencyStore rejects repeated idempotency keys within ttl
func WithIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) PaymentRegistrarOption {
	return func(r *PaymentRegistrar) {
		r.idempotency = store
		if ttl > 0 {
			r.idempotencyTTL = ttl
		}
	}
}

// WithPaymentEventPublisher publishes domain events after commit
func WithPaymentEventPublisher(p shared.EventPublisher) PaymentRegistrarOption {
	return func(r *PaymentRegistrar) {
		r.eventPublisher = p
	}
}

// WithReceiptRenderer renders the customer receipt copy after each payment
func WithReceiptRenderer(renderer credit.ReceiptRenderer, store credit.StoreInfo) PaymentRegistrarOption {
	return func(r *PaymentRegistrar) {
		r.receipts = renderer
		r.store = store
	}
}

// WithPaymentMetrics records payment metrics
func WithPaymentMetrics(m *telemetry.CreditMetrics) PaymentRegistrarOption {
	return func(r *PaymentRegistrar) {
		r.metrics = m
	}
}

// WithPaymentLogger sets the logger
func WithPaymentLogger(l *zap.Logger) PaymentRegistrarOption {
	return func(r *PaymentRegistrar) {
		r.logger = l
	}
}

// WithDefaultIntervalDays sets the charge interval used when none can be estimated
func WithDefaultIntervalDays(days int) PaymentRegistrarOption {
	return func(r *PaymentRegistrar) {
		if days > 0 {
			r.defaultIntervalDays = days
		}
	}
}

// WithPaymentClock replaces time.Now
func WithPaymentClock(now func() time.Time) PaymentRegistrarOption {
	return func(r *PaymentRegistrar) {
		r.now = now
	}
}

// NewPaymentRegistrar creates a PaymentRegistrar
func NewPaymentRegistrar(
	txScope TransactionScope,
	saleRepo credit.CreditSaleRepository,
	locker credit.SaleLocker,
	opts ...PaymentRegistrarOption,
) *PaymentRegistrar {
	r := &PaymentRegistrar{
		txScope:             txScope,
		saleRepo:            saleRepo,
		locker:              locker,
		idempotencyTTL:      DefaultIdempotencyTTL,
		logger:              zap.NewNop(),
		defaultIntervalDays: credit.DefaultIntervalDays,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates the payment against the remaining balance, optionally
// writes a cash ledger entry, then persists the payment and the recomputed sale.
// A cash ledger failure does not fail the payment: it is reported through
// LedgerWarning and LedgerError on the result.
func (r *PaymentRegistrar) Register(ctx context.Context, req RegisterPaymentRequest) (*RegisterPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_payment", "register")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, req.SaleID.String(),
		telemetry.SpanAttrAmount, valueobject.FormatCents(req.Amount),
		telemetry.SpanAttrPaymentMethod, req.Method,
	)

	method := credit.PaymentMethod(strings.TrimSpace(req.Method))
	if !method.IsValid() {
		err := credit.NewValidationError(credit.CodeInvalidMethod, fmt.Sprintf("Unknown payment method %q", req.Method))
		telemetry.RecordError(span, err)
		return nil, err
	}
	paymentDate := r.now()
	if req.PaymentDate != "" {
		d, err := ParseDate(req.PaymentDate)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		paymentDate = d
	}

	if err := r.claimIdempotencyKey(ctx, req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result, err := r.register(ctx, req, method, paymentDate)
	if err != nil {
		r.releaseIdempotencyKey(ctx, req)
		r.metrics.RecordPayment(ctx, string(method), paymentOutcome(err), req.Amount)
		telemetry.RecordError(span, err)
		return nil, err
	}

	r.metrics.RecordPayment(ctx, string(method), telemetry.OutcomeAccepted, result.Payment.Amount)
	r.metrics.RecordInterval(ctx, result.IntervalDays)
	if result.Settled {
		r.metrics.RecordSettled(ctx)
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, result.Payment.ID.String(),
		telemetry.SpanAttrSaleStatus, result.Sale.Status,
		telemetry.SpanAttrIntervalDays, result.IntervalDays,
	)
	r.renderReceipt(ctx, result)
	return result, nil
}

func (r *PaymentRegistrar) register(
	ctx context.Context,
	req RegisterPaymentRequest,
	method credit.PaymentMethod,
	paymentDate time.Time,
) (*RegisterPaymentResult, error) {
	unlock, err := r.locker.Lock(ctx, req.SaleID)
	if err != nil {
		if errors.Is(err, credit.ErrSaleLocked) {
			return nil, shared.ErrResourceLocked
		}
		return nil, fmt.Errorf("failed to lock credit sale: %w", err)
	}
	defer unlock()

	// Reject before any side effect: nothing is written for an invalid payment.
	current, err := r.saleRepo.FindByID(ctx, req.SaleID)
	if err != nil {
		return nil, err
	}
	if err := current.CheckPayment(req.Amount); err != nil {
		return nil, err
	}

	result := &RegisterPaymentResult{}
	sessionID := req.SessionID
	if r.shouldRecordInLedger(req) {
		r.appendLedgerEntry(ctx, req, method, paymentDate, current, &sessionID, result)
	}

	var sale *credit.CreditSale
	var payment *credit.Payment
	var app *credit.PaymentApplication
	err = r.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		sale, err = repos.SaleRepo().FindByID(ctx, req.SaleID)
		if err != nil {
			return err
		}
		payment, err = credit.NewPayment(credit.PaymentInput{
			CreditSaleID:  sale.ID,
			Amount:        req.Amount,
			PaymentDate:   paymentDate,
			Method:        method,
			SessionID:     sessionID,
			TransactionID: result.LedgerEntryID,
			Notes:         req.Notes,
		})
		if err != nil {
			return err
		}
		app, err = sale.ApplyPayment(payment.Amount, r.defaultIntervalDays)
		if err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := repos.SaleRepo().SaveWithLock(ctx, sale); err != nil {
			return fmt.Errorf("failed to save credit sale: %w", err)
		}
		return nil
	})
	if err != nil {
		if result.LedgerEntryID != nil {
			r.logger.Error("Payment rolled back after cash ledger entry was written",
				zap.String("sale_id", req.SaleID.String()),
				zap.String("ledger_entry_id", *result.LedgerEntryID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	r.publish(ctx, sale)

	result.Payment = ToPaymentResponse(payment)
	result.Sale = ToCreditSaleResponse(sale, r.now())
	result.IntervalDays = app.IntervalDays
	result.Settled = app.Settled
	result.Record = *payment
	result.Snapshot = sale.Snapshot()

	r.logger.Info("Credit payment registered",
		zap.String("sale_id", sale.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", valueobject.FormatCents(payment.Amount)),
		zap.String("remaining", valueobject.FormatCents(sale.RemainingAmount)),
		zap.Time("next_charge_date", sale.ChargeDate),
		zap.Bool("ledger_warning", result.LedgerWarning),
	)
	return result, nil
}

func (r *PaymentRegistrar) shouldRecordInLedger(req RegisterPaymentRequest) bool {
	if r.cashLedger == nil {
		return false
	}
	if req.RecordInCashLedger != nil {
		return *req.RecordInCashLedger
	}
	return r.recordInCashLedger
}

// appendLedgerEntry writes the cash ledger entry. Failures only set the warning fields.
func (r *PaymentRegistrar) appendLedgerEntry(
	ctx context.Context,
	req RegisterPaymentRequest,
	method credit.PaymentMethod,
	paymentDate time.Time,
	sale *credit.CreditSale,
	sessionID **string,
	result *RegisterPaymentResult,
) {
	if *sessionID == nil && r.sessions != nil {
		current, err := r.sessions.CurrentSessionID(ctx)
		if err != nil {
			r.logger.Warn("Failed to read current cash session", zap.Error(err))
		} else {
			*sessionID = current
		}
	}

	entryID, err := r.cashLedger.AppendEntry(ctx, credit.CashLedgerEntry{
		Description: fmt.Sprintf("Recebimento crediário - %s", sale.CustomerName),
		Amount:      req.Amount.Round(2),
		Method:      method,
		Date:        paymentDate,
		SessionID:   *sessionID,
		Notes:       req.Notes,
		Reference:   sale.ID,
	})
	if err != nil {
		result.LedgerWarning = true
		result.LedgerError = err.Error()
		r.metrics.RecordLedgerFailure(ctx)
		r.logger.Warn("Cash ledger entry failed, registering payment without it",
			zap.String("sale_id", sale.ID.String()),
			zap.Error(err),
		)
		return
	}
	result.LedgerEntryID = &entryID
}

func (r *PaymentRegistrar) claimIdempotencyKey(ctx context.Context, req RegisterPaymentRequest) error {
	if r.idempotency == nil || req.IdempotencyKey == "" {
		return nil
	}
	fresh, err := r.idempotency.MarkProcessed(ctx, idempotencyKey(req), r.idempotencyTTL)
	if err != nil {
		return fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if !fresh {
		return shared.ErrDuplicateRequest
	}
	return nil
}

func (r *PaymentRegistrar) releaseIdempotencyKey(ctx context.Context, req RegisterPaymentRequest) {
	if r.idempotency == nil || req.IdempotencyKey == "" {
		return
	}
	if err := r.idempotency.Forget(ctx, idempotencyKey(req)); err != nil {
		r.logger.Warn("Failed to release idempotency key", zap.String("key", req.IdempotencyKey), zap.Error(err))
	}
}

func idempotencyKey(req RegisterPaymentRequest) string {
	return "credit_payment:" + req.SaleID.String() + ":" + req.IdempotencyKey
}

func (r *PaymentRegistrar) publish(ctx context.Context, sale *credit.CreditSale) {
	events := sale.PullDomainEvents()
	if r.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := r.eventPublisher.Publish(ctx, events...); err != nil {
		r.logger.Warn("Failed to publish payment events", zap.String("sale_id", sale.ID.String()), zap.Error(err))
	}
}

func (r *PaymentRegistrar) renderReceipt(ctx context.Context, result *RegisterPaymentResult) {
	if r.receipts == nil {
		return
	}
	if err := r.receipts.Render(ctx, result.Record, result.Snapshot, r.store, credit.ReceiptCopyCustomer); err != nil {
		r.logger.Warn("Failed to render payment receipt",
			zap.String("payment_id", result.Record.ID.String()),
			zap.Error(err),
		)
	}
}

func paymentOutcome(err error) string {
	switch {
	case credit.IsOverpayment(err):
		return telemetry.OutcomeOverpayment
	case errors.Is(err, credit.ErrAlreadySettled):
		return telemetry.OutcomeSettled
	case errors.Is(err, shared.ErrConcurrencyConflict), errors.Is(err, shared.ErrResourceLocked):
		return telemetry.OutcomeConflict
	default:
		return telemetry.OutcomeFailed
	}
}
