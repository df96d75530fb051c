package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/domain/shared/valueobject"
	"github.com/retailpos/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreditSaleService handles credit sale lifecycle operations and queries.
// Payments go through PaymentRegistrar.
type CreditSaleService struct {
	saleRepo             credit.CreditSaleRepository
	paymentRepo          credit.PaymentRepository
	eventPublisher       shared.EventPublisher
	metrics              *telemetry.CreditMetrics
	logger               *zap.Logger
	phoneRegion          string
	allowEarlierPostpone bool
	now                  func() time.Time
}

// CreditSaleServiceOption configures CreditSaleService
type CreditSaleServiceOption func(*CreditSaleService)

// WithSaleEventPublisher publishes domain events after each successful write
func WithSaleEventPublisher(p shared.EventPublisher) CreditSaleServiceOption {
	return func(s *CreditSaleService) {
		s.eventPublisher = p
	}
}

// WithSaleMetrics records business metrics
func WithSaleMetrics(m *telemetry.CreditMetrics) CreditSaleServiceOption {
	return func(s *CreditSaleService) {
		s.metrics = m
	}
}

// WithSaleLogger sets the logger
func WithSaleLogger(l *zap.Logger) CreditSaleServiceOption {
	return func(s *CreditSaleService) {
		s.logger = l
	}
}

// WithPhoneRegion sets the region used to parse phone numbers without a country code
func WithPhoneRegion(region string) CreditSaleServiceOption {
	return func(s *CreditSaleService) {
		if region != "" {
			s.phoneRegion = region
		}
	}
}

// WithEarlierPostpone lets requests with allow_earlier move a charge date backwards
func WithEarlierPostpone(enabled bool) CreditSaleServiceOption {
	return func(s *CreditSaleService) {
		s.allowEarlierPostpone = enabled
	}
}

// WithSaleClock replaces time.Now
func WithSaleClock(now func() time.Time) CreditSaleServiceOption {
	return func(s *CreditSaleService) {
		s.now = now
	}
}

// NewCreditSaleService creates a new CreditSaleService
func NewCreditSaleService(
	saleRepo credit.CreditSaleRepository,
	paymentRepo credit.PaymentRepository,
	opts ...CreditSaleServiceOption,
) *CreditSaleService {
	s := &CreditSaleService{
		saleRepo:    saleRepo,
		paymentRepo: paymentRepo,
		logger:      zap.NewNop(),
		phoneRegion: valueobject.DefaultPhoneRegion,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new credit sale
func (s *CreditSaleService) Create(ctx context.Context, req CreateCreditSaleRequest) (*CreditSaleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_sale", "create")
	defer span.End()

	in, err := s.saleInput(req.CustomerName, req.CustomerPhone, req.Description, req.Items,
		req.Total, req.AmountPaid, req.Installments, req.ChargeDate, req.Notes, req.Reminder)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.SaleDate != "" {
		saleDate, err := ParseDate(req.SaleDate)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		in.SaleDate = &saleDate
	}

	sale, err := credit.NewCreditSale(in)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, sale.ID.String(),
		telemetry.SpanAttrAmount, valueobject.FormatCents(sale.Total),
	)

	if err := s.saleRepo.Create(ctx, sale); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to create credit sale: %w", err)
	}

	s.publish(ctx, sale)
	s.metrics.RecordSaleCreated(ctx)
	s.logger.Info("Credit sale created",
		zap.String("sale_id", sale.ID.String()),
		zap.String("total", valueobject.FormatCents(sale.Total)),
		zap.Int("installments", sale.Installments),
	)

	resp := ToCreditSaleResponse(sale, s.now())
	return &resp, nil
}

// Update recomputes an existing sale from new input. It never registers payments.
func (s *CreditSaleService) Update(ctx context.Context, id uuid.UUID, req UpdateCreditSaleRequest) (*CreditSaleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_sale", "update",
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, id.String()))
	defer span.End()

	in, err := s.saleInput(req.CustomerName, req.CustomerPhone, req.Description, req.Items,
		req.Total, req.AmountPaid, req.Installments, req.ChargeDate, req.Notes, req.Reminder)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := sale.Update(in); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.saleRepo.SaveWithLock(ctx, sale); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to update credit sale: %w", err)
	}

	s.publish(ctx, sale)
	resp := ToCreditSaleResponse(sale, s.now())
	return &resp, nil
}

// Get returns a non-deleted sale
func (s *CreditSaleService) Get(ctx context.Context, id uuid.UUID) (*CreditSaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToCreditSaleResponse(sale, s.now())
	return &resp, nil
}

// ListActive lists sales that are neither archived nor deleted
func (s *CreditSaleService) ListActive(ctx context.Context, q ListCreditSalesFilter) (*shared.Paginated[CreditSaleResponse], error) {
	filter, err := q.toFilter()
	if err != nil {
		return nil, err
	}
	sales, total, err := s.saleRepo.FindActive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit sales: %w", err)
	}
	page := shared.NewPaginated(ToCreditSaleResponses(sales, s.now()), total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListBySettlement lists non-deleted sales with the given status (em_aberto/open or paga/paid)
func (s *CreditSaleService) ListBySettlement(ctx context.Context, rawStatus string, q ListCreditSalesFilter) (*shared.Paginated[CreditSaleResponse], error) {
	status, ok := credit.ParseSettlementStatus(rawStatus)
	if !ok {
		return nil, credit.NewValidationError(credit.CodeValidation, fmt.Sprintf("Unknown settlement status %q", rawStatus))
	}
	filter, err := q.toFilter()
	if err != nil {
		return nil, err
	}
	sales, total, err := s.saleRepo.FindByStatus(ctx, status, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit sales by status: %w", err)
	}
	page := shared.NewPaginated(ToCreditSaleResponses(sales, s.now()), total, filter.Page, filter.PageSize)
	return &page, nil
}

// GetPaymentsForSale returns all payments of a sale, newest first.
// Payments of soft-deleted sales remain visible.
func (s *CreditSaleService) GetPaymentsForSale(ctx context.Context, saleID uuid.UUID) ([]PaymentResponse, error) {
	if _, err := s.saleRepo.FindByIDIncludingDeleted(ctx, saleID); err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.FindBySaleID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out, nil
}

// Postpone moves the charge date. Earlier dates need both the request flag
// and the service-level permission.
func (s *CreditSaleService) Postpone(ctx context.Context, id uuid.UUID, req PostponeRequest) (*CreditSaleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_sale", "postpone",
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, id.String()))
	defer span.End()

	chargeDate, err := parseDateAs(req.ChargeDate, credit.CodeInvalidChargeDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	err = sale.Postpone(credit.PostponeInput{
		ChargeDate:   chargeDate,
		Reminder:     req.Reminder.toDomain(),
		Notes:        req.Notes,
		AllowEarlier: req.AllowEarlier && s.allowEarlierPostpone,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.saleRepo.SaveWithLock(ctx, sale); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to postpone credit sale: %w", err)
	}

	s.publish(ctx, sale)
	resp := ToCreditSaleResponse(sale, s.now())
	return &resp, nil
}

// Archive hides a sale from active views. Archiving twice keeps the first timestamp.
func (s *CreditSaleService) Archive(ctx context.Context, id uuid.UUID) (*CreditSaleResponse, error) {
	return s.toggle(ctx, id, "archive", false, func(sale *credit.CreditSale) bool {
		return sale.Archive(s.now())
	})
}

// Unarchive returns an archived sale to active views
func (s *CreditSaleService) Unarchive(ctx context.Context, id uuid.UUID) (*CreditSaleResponse, error) {
	return s.toggle(ctx, id, "unarchive", false, func(sale *credit.CreditSale) bool {
		return sale.Unarchive()
	})
}

// Restore clears the soft-delete flag
func (s *CreditSaleService) Restore(ctx context.Context, id uuid.UUID) (*CreditSaleResponse, error) {
	return s.toggle(ctx, id, "restore", true, func(sale *credit.CreditSale) bool {
		return sale.Restore()
	})
}

// Remove soft-deletes a sale
func (s *CreditSaleService) Remove(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_sale", "remove",
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, id.String()))
	defer span.End()

	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := sale.Remove(s.now()); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.saleRepo.SaveWithLock(ctx, sale); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to remove credit sale: %w", err)
	}
	s.publish(ctx, sale)
	return nil
}

// toggle loads a sale, applies an idempotent flag change and saves only when it changed
func (s *CreditSaleService) toggle(ctx context.Context, id uuid.UUID, op string, includeDeleted bool, change func(*credit.CreditSale) bool) (*CreditSaleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_sale", op,
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, id.String()))
	defer span.End()

	var sale *credit.CreditSale
	var err error
	if includeDeleted {
		sale, err = s.saleRepo.FindByIDIncludingDeleted(ctx, id)
	} else {
		sale, err = s.saleRepo.FindByID(ctx, id)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if change(sale) {
		if err := s.saleRepo.SaveWithLock(ctx, sale); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to %s credit sale: %w", op, err)
		}
		s.publish(ctx, sale)
	}

	resp := ToCreditSaleResponse(sale, s.now())
	return &resp, nil
}

// saleInput converts request fields into a domain SaleInput, normalizing the phone number
func (s *CreditSaleService) saleInput(
	name, phone, description string,
	items []LineItemRequest,
	total, amountPaid *decimal.Decimal,
	installments int,
	chargeDate, notes string,
	reminder *ReminderRequest,
) (credit.SaleInput, error) {
	due, err := parseDateAs(chargeDate, credit.CodeInvalidChargeDate)
	if err != nil {
		return credit.SaleInput{}, err
	}
	normalized, err := valueobject.NormalizePhone(phone, s.phoneRegion)
	if err != nil {
		return credit.SaleInput{}, credit.NewValidationError(credit.CodeInvalidPhone, err.Error())
	}
	return credit.SaleInput{
		CustomerName:  name,
		CustomerPhone: normalized,
		Description:   description,
		Items:         toLineItemInputs(items),
		Total:         total,
		AmountPaid:    amountPaid,
		Installments:  installments,
		ChargeDate:    due,
		Notes:         notes,
		Reminder:      reminder.toDomain(),
	}, nil
}

// publish dispatches the pending events of sale. Failures are logged, the write already committed.
func (s *CreditSaleService) publish(ctx context.Context, sale *credit.CreditSale) {
	events := sale.PullDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish credit sale events",
			zap.String("sale_id", sale.ID.String()),
			zap.Error(err),
		)
	}
}
