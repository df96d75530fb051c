package credit

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Payment is an immutable record of money received against a credit sale.
// Payments are append-only: this subsystem never updates or deletes them.
type Payment struct {
	shared.BaseEntity
	CreditSaleID  uuid.UUID       `json:"credit_sale_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	Method        PaymentMethod   `json:"payment_method"`
	SessionID     *string         `json:"session_id,omitempty"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// PaymentInput carries the fields of a new payment
type PaymentInput struct {
	CreditSaleID  uuid.UUID
	Amount        decimal.Decimal
	PaymentDate   time.Time
	Method        PaymentMethod
	SessionID     *string
	TransactionID *string
	Notes         string
}

// NewPayment validates and builds a payment record
func NewPayment(in PaymentInput) (*Payment, error) {
	if in.CreditSaleID == uuid.Nil {
		return nil, NewValidationError(CodeValidation, "Credit sale ID cannot be empty")
	}
	amount := valueobject.Round2(in.Amount)
	if !amount.IsPositive() {
		return nil, NewValidationError(CodeInvalidAmount, "Payment amount must be positive")
	}
	if !in.Method.IsValid() {
		return nil, NewValidationError(CodeInvalidMethod, "Payment method is not valid")
	}

	p := &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		CreditSaleID:  in.CreditSaleID,
		Amount:        amount,
		PaymentDate:   in.PaymentDate,
		Method:        in.Method,
		SessionID:     nonEmpty(in.SessionID),
		TransactionID: nonEmpty(in.TransactionID),
		Notes:         strings.TrimSpace(in.Notes),
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = p.CreatedAt
	}
	return p, nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
