package credit

import (
	"time"

	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeCreditSaleCreated   = "CreditSaleCreated"
	EventTypeCreditSaleUpdated   = "CreditSaleUpdated"
	EventTypePaymentApplied      = "CreditSalePaymentApplied"
	EventTypeCreditSaleSettled   = "CreditSaleSettled"
	EventTypeCreditSalePostponed = "CreditSalePostponed"
	EventTypeCreditSaleArchived  = "CreditSaleArchived"
	EventTypeCreditSaleRemoved   = "CreditSaleRemoved"
	EventTypeCreditSaleDue       = "CreditSaleDue"
)

// CreditSaleCreatedEvent is raised when a new credit sale is created
type CreditSaleCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerName string           `json:"customer_name"`
	Total        decimal.Decimal  `json:"total"`
	AmountPaid   decimal.Decimal  `json:"amount_paid"`
	Installments int              `json:"installments"`
	ChargeDate   time.Time        `json:"charge_date"`
	Status       SettlementStatus `json:"status"`
}

// NewCreditSaleCreatedEvent creates a CreditSaleCreatedEvent
func NewCreditSaleCreatedEvent(s *CreditSale) *CreditSaleCreatedEvent {
	return &CreditSaleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditSaleCreated, AggregateTypeCreditSale, s.ID),
		CustomerName:    s.CustomerName,
		Total:           s.Total,
		AmountPaid:      s.AmountPaid,
		Installments:    s.Installments,
		ChargeDate:      s.ChargeDate,
		Status:          s.Status,
	}
}

// CreditSaleUpdatedEvent is raised when the commercial detail of a sale changes
type CreditSaleUpdatedEvent struct {
	shared.BaseDomainEvent
	Total           decimal.Decimal  `json:"total"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	Status          SettlementStatus `json:"status"`
}

// NewCreditSaleUpdatedEvent creates a CreditSaleUpdatedEvent
func NewCreditSaleUpdatedEvent(s *CreditSale) *CreditSaleUpdatedEvent {
	return &CreditSaleUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditSaleUpdated, AggregateTypeCreditSale, s.ID),
		Total:           s.Total,
		RemainingAmount: s.RemainingAmount,
		Status:          s.Status,
	}
}

// PaymentAppliedEvent is raised for every accepted payment
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	Amount          decimal.Decimal  `json:"amount"`
	AmountPaid      decimal.Decimal  `json:"amount_paid"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	ChargeDate      time.Time        `json:"charge_date"`
	IntervalDays    int              `json:"interval_days"`
	Status          SettlementStatus `json:"status"`
}

// NewPaymentAppliedEvent creates a PaymentAppliedEvent
func NewPaymentAppliedEvent(s *CreditSale, amount decimal.Decimal, app *PaymentApplication) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentApplied, AggregateTypeCreditSale, s.ID),
		Amount:          amount,
		AmountPaid:      app.AmountPaidAfter,
		RemainingAmount: app.RemainingAfter,
		ChargeDate:      s.ChargeDate,
		IntervalDays:    app.IntervalDays,
		Status:          s.Status,
	}
}

// CreditSaleSettledEvent is raised when the remaining amount reaches zero
type CreditSaleSettledEvent struct {
	shared.BaseDomainEvent
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	SettledAt    time.Time       `json:"settled_at"`
}

// NewCreditSaleSettledEvent creates a CreditSaleSettledEvent
func NewCreditSaleSettledEvent(s *CreditSale) *CreditSaleSettledEvent {
	return &CreditSaleSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditSaleSettled, AggregateTypeCreditSale, s.ID),
		CustomerName:    s.CustomerName,
		Total:           s.Total,
		SettledAt:       time.Now(),
	}
}

// CreditSalePostponedEvent is raised when the charge date is moved by hand
type CreditSalePostponedEvent struct {
	shared.BaseDomainEvent
	PreviousChargeDate time.Time `json:"previous_charge_date"`
	ChargeDate         time.Time `json:"charge_date"`
}

// NewCreditSalePostponedEvent creates a CreditSalePostponedEvent
func NewCreditSalePostponedEvent(s *CreditSale, previous time.Time) *CreditSalePostponedEvent {
	return &CreditSalePostponedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeCreditSalePostponed, AggregateTypeCreditSale, s.ID),
		PreviousChargeDate: previous,
		ChargeDate:         s.ChargeDate,
	}
}

// CreditSaleArchivedEvent is raised the first time a sale is archived
type CreditSaleArchivedEvent struct {
	shared.BaseDomainEvent
	ArchivedAt time.Time `json:"archived_at"`
}

// NewCreditSaleArchivedEvent creates a CreditSaleArchivedEvent
func NewCreditSaleArchivedEvent(s *CreditSale) *CreditSaleArchivedEvent {
	e := &CreditSaleArchivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditSaleArchived, AggregateTypeCreditSale, s.ID),
	}
	if s.ArchivedAt != nil {
		e.ArchivedAt = *s.ArchivedAt
	}
	return e
}

// CreditSaleRemovedEvent is raised when a sale is soft-deleted
type CreditSaleRemovedEvent struct {
	shared.BaseDomainEvent
	DeletedAt time.Time `json:"deleted_at"`
}

// NewCreditSaleRemovedEvent creates a CreditSaleRemovedEvent
func NewCreditSaleRemovedEvent(s *CreditSale) *CreditSaleRemovedEvent {
	e := &CreditSaleRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditSaleRemoved, AggregateTypeCreditSale, s.ID),
	}
	if s.DeletedAt != nil {
		e.DeletedAt = *s.DeletedAt
	}
	return e
}

// CreditSaleDueEvent is published by the reminder scan for sales inside their reminder window
type CreditSaleDueEvent struct {
	shared.BaseDomainEvent
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	ChargeDate      time.Time       `json:"charge_date"`
	Overdue         bool            `json:"overdue"`
}

// NewCreditSaleDueEvent creates a CreditSaleDueEvent
// stamped with asOf rather than the wall clock.
func NewCreditSaleDueEvent(s *CreditSale, asOf time.Time) *CreditSaleDueEvent {
	return &CreditSaleDueEvent{
		BaseDomainEvent: shared.NewBaseDomainEventAt(EventTypeCreditSaleDue, AggregateTypeCreditSale, s.ID, asOf),
		CustomerName:    s.CustomerName,
		CustomerPhone:   s.CustomerPhone,
		RemainingAmount: s.RemainingAmount,
		ChargeDate:      s.ChargeDate,
		Overdue:         s.IsOverdue(asOf),
	}
}

var _ shared.DomainEvent = (*CreditSaleDueEvent)(nil)
