package credit

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ==================== Requests ====================

// LineItemRequest is one item of a credit sale
type LineItemRequest struct {
	Description string           `json:"description" binding:"required,min=1,max=200"`
	Quantity    decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal  `json:"unit_price" binding:"required"`
	Total       *decimal.Decimal `json:"total"`
}

// ReminderRequest carries reminder preferences
type ReminderRequest struct {
	Enabled    bool    `json:"enabled"`
	DaysBefore int     `json:"days_before" binding:"min=0,max=60"`
	RemindAt   *string `json:"remind_at" binding:"omitempty,hhmm"`
}

// CreateCreditSaleRequest creates a credit sale, either from items or as a quick entry with a total
type CreateCreditSaleRequest struct {
	CustomerName  string            `json:"customer_name" binding:"required,max=200"`
	CustomerPhone string            `json:"customer_phone" binding:"max=32"`
	Description   string            `json:"description" binding:"max=500"`
	Items         []LineItemRequest `json:"items" binding:"omitempty,dive"`
	Total         *decimal.Decimal  `json:"total"`
	AmountPaid    *decimal.Decimal  `json:"amount_paid"`
	Installments  int               `json:"installments" binding:"omitempty,min=1,max=120"`
	SaleDate      string            `json:"sale_date"`
	ChargeDate    string            `json:"charge_date" binding:"required"`
	Notes         string            `json:"notes" binding:"max=1000"`
	Reminder      *ReminderRequest  `json:"reminder"`
}

// UpdateCreditSaleRequest replaces the editable fields of a credit sale.
// AmountPaid is optional and keeps the stored value when omitted.
type UpdateCreditSaleRequest struct {
	CustomerName  string            `json:"customer_name" binding:"required,max=200"`
	CustomerPhone string            `json:"customer_phone" binding:"max=32"`
	Description   string            `json:"description" binding:"max=500"`
	Items         []LineItemRequest `json:"items" binding:"omitempty,dive"`
	Total         *decimal.Decimal  `json:"total"`
	AmountPaid    *decimal.Decimal  `json:"amount_paid"`
	Installments  int               `json:"installments" binding:"omitempty,min=1,max=120"`
	ChargeDate    string            `json:"charge_date" binding:"required"`
	Notes         string            `json:"notes" binding:"max=1000"`
	Reminder      *ReminderRequest  `json:"reminder"`
}

// RegisterPaymentRequest registers money received against a credit sale
type RegisterPaymentRequest struct {
	SaleID      uuid.UUID       `json:"-"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Method      string          `json:"payment_method" binding:"required"`
	PaymentDate string          `json:"payment_date"`
	SessionID   *string         `json:"session_id"`
	Notes       string          `json:"notes" binding:"max=500"`
	// RecordInCashLedger overrides the configured default when set
	RecordInCashLedger *bool  `json:"record_in_cash_ledger"`
	IdempotencyKey     string `json:"-"`
}

// PostponeRequest moves the charge date of a credit sale
type PostponeRequest struct {
	ChargeDate   string           `json:"charge_date" binding:"required"`
	Reminder     *ReminderRequest `json:"reminder"`
	Notes        string           `json:"notes" binding:"max=1000"`
	AllowEarlier bool             `json:"allow_earlier"`
}

// ListCreditSalesFilter is the query of the list endpoints
type ListCreditSalesFilter struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=charge_date sale_date customer_name total remaining_amount created_at"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search     string `form:"search" binding:"max=100"`
	ChargeFrom string `form:"charge_from"`
	ChargeTo   string `form:"charge_to"`
}

// SummaryFilter is the query of the settlement summary endpoint
type SummaryFilter struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// ==================== Responses ====================

// LineItemResponse is an item of a credit sale
type LineItemResponse struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// ReminderResponse carries reminder preferences
type ReminderResponse struct {
	Enabled    bool    `json:"enabled"`
	DaysBefore int     `json:"days_before"`
	RemindAt   *string `json:"remind_at,omitempty"`
}

// CreditSaleResponse is the API view of a credit sale
type CreditSaleResponse struct {
	ID               uuid.UUID          `json:"id"`
	CustomerName     string             `json:"customer_name"`
	CustomerPhone    string             `json:"customer_phone,omitempty"`
	Description      string             `json:"description"`
	Items            []LineItemResponse `json:"items"`
	Total            decimal.Decimal    `json:"total"`
	AmountPaid       decimal.Decimal    `json:"amount_paid"`
	RemainingAmount  decimal.Decimal    `json:"remaining_amount"`
	Installments     int                `json:"installments"`
	InstallmentValue *decimal.Decimal   `json:"installment_value,omitempty"`
	SaleDate         time.Time          `json:"sale_date"`
	ChargeDate       time.Time          `json:"charge_date"`
	Status           string             `json:"status"`
	Overdue          bool               `json:"overdue"`
	Notes            string             `json:"notes,omitempty"`
	Reminder         *ReminderResponse  `json:"reminder,omitempty"`
	ArchivedAt       *time.Time         `json:"archived_at,omitempty"`
	DeletedAt        *time.Time         `json:"deleted_at,omitempty"`
	Version          int                `json:"version"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// PaymentResponse is the API view of a payment record
type PaymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	CreditSaleID  uuid.UUID       `json:"credit_sale_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	Method        string          `json:"payment_method"`
	SessionID     *string         `json:"session_id,omitempty"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RegisterPaymentResult is the outcome of a payment registration. The payment
// and sale are committed even when LedgerWarning is set: the warning only
// reports that the cash ledger entry could not be written.
type RegisterPaymentResult struct {
	Payment       PaymentResponse    `json:"payment"`
	Sale          CreditSaleResponse `json:"credit_sale"`
	IntervalDays  int                `json:"interval_days,omitempty"`
	Settled       bool               `json:"settled"`
	LedgerEntryID *string            `json:"ledger_entry_id,omitempty"`
	LedgerWarning bool               `json:"ledger_warning"`
	LedgerError   string             `json:"ledger_error,omitempty"`

	// Record and Snapshot are the domain values a receipt renderer consumes
	Record   credit.Payment    `json:"-"`
	Snapshot credit.CreditSale `json:"-"`
}

// ==================== Conversions ====================

// ToCreditSaleResponse converts a domain sale; asOf decides the overdue flag
func ToCreditSaleResponse(s *credit.CreditSale, asOf time.Time) CreditSaleResponse {
	items := make([]LineItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, LineItemResponse{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}

	resp := CreditSaleResponse{
		ID:               s.ID,
		CustomerName:     s.CustomerName,
		CustomerPhone:    s.CustomerPhone,
		Description:      s.Description,
		Items:            items,
		Total:            s.Total,
		AmountPaid:       s.AmountPaid,
		RemainingAmount:  s.RemainingAmount,
		Installments:     s.Installments,
		InstallmentValue: s.InstallmentValue,
		SaleDate:         s.SaleDate,
		ChargeDate:       s.ChargeDate,
		Status:           s.Status.String(),
		Overdue:          s.IsActive() && s.IsOverdue(asOf),
		Notes:            s.Notes,
		ArchivedAt:       s.ArchivedAt,
		DeletedAt:        s.DeletedAt,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if s.Reminder != nil {
		resp.Reminder = &ReminderResponse{
			Enabled:    s.Reminder.Enabled,
			DaysBefore: s.Reminder.DaysBefore,
			RemindAt:   s.Reminder.RemindAt,
		}
	}
	return resp
}

// ToCreditSaleResponses converts a slice of domain sales
func ToCreditSaleResponses(sales []credit.CreditSale, asOf time.Time) []CreditSaleResponse {
	out := make([]CreditSaleResponse, len(sales))
	for i := range sales {
		out[i] = ToCreditSaleResponse(&sales[i], asOf)
	}
	return out
}

// ToPaymentResponse converts a domain payment
func ToPaymentResponse(p *credit.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		CreditSaleID:  p.CreditSaleID,
		Amount:        p.Amount,
		PaymentDate:   p.PaymentDate,
		Method:        string(p.Method),
		SessionID:     p.SessionID,
		TransactionID: p.TransactionID,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
	}
}

func (r *ReminderRequest) toDomain() *credit.ReminderPreferences {
	if r == nil {
		return nil
	}
	prefs := &credit.ReminderPreferences{
		Enabled:    r.Enabled,
		DaysBefore: r.DaysBefore,
	}
	if r.RemindAt != nil && strings.TrimSpace(*r.RemindAt) != "" {
		at := strings.TrimSpace(*r.RemindAt)
		prefs.RemindAt = &at
	}
	return prefs
}

func toLineItemInputs(items []LineItemRequest) []credit.LineItemInput {
	out := make([]credit.LineItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, credit.LineItemInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return out
}

// toFilter converts list query parameters into a repository filter
func (f ListCreditSalesFilter) toFilter() (credit.CreditSaleFilter, error) {
	filter := credit.CreditSaleFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
			Search:   strings.TrimSpace(f.Search),
		}.Normalize(),
	}
	if f.ChargeFrom != "" {
		from, err := ParseDate(f.ChargeFrom)
		if err != nil {
			return filter, err
		}
		filter.ChargeFrom = &from
	}
	if f.ChargeTo != "" {
		to, err := ParseDate(f.ChargeTo)
		if err != nil {
			return filter, err
		}
		filter.ChargeTo = &to
	}
	return filter, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (read as UTC midnight)
func ParseDate(raw string) (time.Time, error) {
	return parseDateAs(raw, credit.CodeValidation)
}

func parseDateAs(raw, code string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, credit.NewValidationError(code, "Invalid date: "+raw)
}
