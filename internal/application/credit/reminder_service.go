package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReminderService reads the sales whose reminder window is open
type ReminderService struct {
	saleRepo       credit.CreditSaleRepository
	eventPublisher shared.EventPublisher
	metrics        *telemetry.CreditMetrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewReminderService creates a ReminderService. publisher and metrics may be nil.
func NewReminderService(
	saleRepo credit.CreditSaleRepository,
	publisher shared.EventPublisher,
	metrics *telemetry.CreditMetrics,
	logger *zap.Logger,
) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		saleRepo:       saleRepo,
		eventPublisher: publisher,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// ListDue returns open, active sales that are due at asOf, earliest charge date first.
// A zero asOf means now.
func (s *ReminderService) ListDue(ctx context.Context, asOf time.Time) ([]CreditSaleResponse, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	due, err := s.dueSales(ctx, asOf)
	if err != nil {
		return nil, err
	}
	return ToCreditSaleResponses(due, asOf), nil
}

// ScanAndPublish publishes a CreditSaleDue event for every due sale and
// returns how many were found
func (s *ReminderService) ScanAndPublish(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_reminder", "scan")
	defer span.End()

	asOf := s.now()
	due, err := s.dueSales(ctx, asOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	var overdue int64
	events := make([]shared.DomainEvent, 0, len(due))
	for i := range due {
		ev := credit.NewCreditSaleDueEvent(&due[i], asOf)
		if ev.Overdue {
			overdue++
		}
		events = append(events, ev)
	}
	s.metrics.RecordDueSales(ctx, int64(len(due)), overdue)
	telemetry.SetAttributes(span, "due_count", len(due), "overdue_count", overdue)

	if s.eventPublisher != nil && len(events) > 0 {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			telemetry.RecordError(span, err)
			return len(due), fmt.Errorf("failed to publish due events: %w", err)
		}
	}
	return len(due), nil
}

// dueSales loads the candidates whose charge date falls inside the widest possible
// reminder window and keeps the ones that are due
func (s *ReminderService) dueSales(ctx context.Context, asOf time.Time) ([]credit.CreditSale, error) {
	horizon := asOf.AddDate(0, 0, credit.MaxReminderDaysBefore+1)
	candidates, err := s.saleRepo.FindOpenChargedBefore(ctx, horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to load due candidates: %w", err)
	}
	due := make([]credit.CreditSale, 0, len(candidates))
	for i := range candidates {
		if candidates[i].IsDue(asOf) {
			due = append(due, candidates[i])
		}
	}
	return due, nil
}
