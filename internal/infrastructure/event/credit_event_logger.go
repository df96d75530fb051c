package event

import (
	"context"

	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// CreditEventLogger writes credit sale events to the audit log. Due events are
// logged at warn level when overdue so collection staff can alert on them.
type CreditEventLogger struct {
	logger *zap.Logger
}

// NewCreditEventLogger creates a CreditEventLogger
func NewCreditEventLogger(logger *zap.Logger) *CreditEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreditEventLogger{logger: logger.Named("credit-events")}
}

// EventTypes implements shared.EventHandler
func (l *CreditEventLogger) EventTypes() []string {
	return []string{
		credit.EventTypeCreditSaleCreated,
		credit.EventTypeCreditSaleUpdated,
		credit.EventTypePaymentApplied,
		credit.EventTypeCreditSaleSettled,
		credit.EventTypeCreditSalePostponed,
		credit.EventTypeCreditSaleArchived,
		credit.EventTypeCreditSaleRemoved,
		credit.EventTypeCreditSaleDue,
	}
}

// Handle implements shared.EventHandler
func (l *CreditEventLogger) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("sale_id", event.AggregateID().String()),
	}

	switch e := event.(type) {
	case *credit.CreditSaleCreatedEvent:
		l.logger.Info("credit sale created", append(fields,
			zap.String("customer", e.CustomerName),
			zap.String("total", valueobject.FormatCents(e.Total)),
			zap.Int("installments", e.Installments),
			zap.Time("charge_date", e.ChargeDate),
		)...)
	case *credit.PaymentAppliedEvent:
		l.logger.Info("payment applied", append(fields,
			zap.String("amount", valueobject.FormatCents(e.Amount)),
			zap.String("remaining", valueobject.FormatCents(e.RemainingAmount)),
			zap.Time("next_charge_date", e.ChargeDate),
			zap.String("status", string(e.Status)),
		)...)
	case *credit.CreditSaleSettledEvent:
		l.logger.Info("credit sale settled", append(fields,
			zap.String("customer", e.CustomerName),
			zap.String("total", valueobject.FormatCents(e.Total)),
		)...)
	case *credit.CreditSalePostponedEvent:
		l.logger.Info("charge date postponed", append(fields,
			zap.Time("from", e.PreviousChargeDate),
			zap.Time("to", e.ChargeDate),
		)...)
	case *credit.CreditSaleDueEvent:
		fields = append(fields,
			zap.String("customer", e.CustomerName),
			zap.String("phone", e.CustomerPhone),
			zap.String("remaining", valueobject.FormatCents(e.RemainingAmount)),
			zap.Time("charge_date", e.ChargeDate),
		)
		if e.Overdue {
			l.logger.Warn("credit sale overdue", fields...)
		} else {
			l.logger.Info("credit sale due", fields...)
		}
	default:
		l.logger.Info("credit sale changed", fields...)
	}
	return nil
}

var _ shared.EventHandler = (*CreditEventLogger)(nil)
