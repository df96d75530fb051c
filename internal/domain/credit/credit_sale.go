package credit

import (
	"fmt"
	"strings"
	"time"

	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AggregateTypeCreditSale is the aggregate type name carried by credit sale events
const AggregateTypeCreditSale = "CreditSale"

// CreditSale is a sale whose price is collected across one or more future charges.
// Status is derived from RemainingAmount and is never set by callers directly.
type CreditSale struct {
	shared.BaseAggregateRoot
	CustomerName     string               `json:"customer_name"`
	CustomerPhone    string               `json:"customer_phone,omitempty"`
	Description      string               `json:"description"`
	Items            LineItems            `json:"items"`
	Total            decimal.Decimal      `json:"total"`
	AmountPaid       decimal.Decimal      `json:"amount_paid"`
	RemainingAmount  decimal.Decimal      `json:"remaining_amount"`
	Installments     int                  `json:"installments"`
	InstallmentValue *decimal.Decimal     `json:"installment_value,omitempty"`
	SaleDate         time.Time            `json:"sale_date"`
	ChargeDate       time.Time            `json:"charge_date"`
	Status           SettlementStatus     `json:"status"`
	Notes            string               `json:"notes,omitempty"`
	Reminder         *ReminderPreferences `json:"reminder,omitempty"`
	ArchivedAt       *time.Time           `json:"archived_at,omitempty"`
	DeletedAt        *time.Time           `json:"deleted_at,omitempty"`
}

// SaleInput carries the caller-editable fields of a credit sale
type SaleInput struct {
	CustomerName  string
	CustomerPhone string
	Description   string
	Items         []LineItemInput
	// Total is only read when Items is empty (quick-entry path)
	Total *decimal.Decimal
	// AmountPaid defaults to zero on create and to the stored value on update
	AmountPaid   *decimal.Decimal
	Installments int
	// SaleDate defaults to now and is ignored on update
	SaleDate   *time.Time
	ChargeDate time.Time
	Notes      string
	Reminder   *ReminderPreferences
}

// NewCreditSale validates the input and builds an open (or already paid) sale
func NewCreditSale(in SaleInput) (*CreditSale, error) {
	sale := &CreditSale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
	}
	sale.SaleDate = sale.CreatedAt
	if in.SaleDate != nil && !in.SaleDate.IsZero() {
		sale.SaleDate = *in.SaleDate
	}

	paid := decimal.Zero
	if in.AmountPaid != nil {
		paid = *in.AmountPaid
	}
	if err := sale.apply(in, paid); err != nil {
		return nil, err
	}

	sale.AddDomainEvent(NewCreditSaleCreatedEvent(sale))
	return sale, nil
}

// Update recomputes the sale from new input, keeping identity and sale date.
// It never registers payments: AmountPaid is taken as given, or carried over.
func (s *CreditSale) Update(in SaleInput) error {
	if s.IsDeleted() {
		return ErrCreditSaleNotFound
	}

	paid := s.AmountPaid
	if in.AmountPaid != nil {
		paid = *in.AmountPaid
	}
	if err := s.apply(in, paid); err != nil {
		return err
	}

	s.AddDomainEvent(NewCreditSaleUpdatedEvent(s))
	s.Touch()
	s.IncrementVersion()
	return nil
}

// apply validates input and sets every derived field. It leaves s untouched on error.
func (s *CreditSale) apply(in SaleInput, amountPaid decimal.Decimal) error {
	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		return NewValidationError(CodeInvalidCustomer, "Customer name cannot be empty")
	}
	if in.ChargeDate.IsZero() || in.ChargeDate.Unix() <= 0 {
		return NewValidationError(CodeInvalidChargeDate, "Charge date is required")
	}
	if in.Installments < 0 {
		return NewValidationError(CodeInstallments, "Installments must be at least 1")
	}
	installments := in.Installments
	if installments == 0 {
		installments = 1
	}
	if in.Reminder != nil {
		if err := in.Reminder.Validate(); err != nil {
			return err
		}
	}

	items := make(LineItems, 0, len(in.Items))
	for _, raw := range in.Items {
		item, err := NewLineItem(raw)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	description := strings.TrimSpace(in.Description)
	var total decimal.Decimal
	if len(items) > 0 {
		total = items.Sum()
		if !total.IsPositive() {
			return NewValidationError(CodeInvalidItems, "Items must add up to a positive total")
		}
		if description == "" {
			description = items.Summary()
		}
	} else {
		if in.Total == nil || !in.Total.IsPositive() {
			return NewValidationError(CodeInvalidItems, "At least one item or a positive total is required")
		}
		if description == "" {
			return NewValidationError(CodeValidation, "Description is required when no items are given")
		}
		total = valueobject.Round2(*in.Total)
	}

	amountPaid = valueobject.Round2(amountPaid)
	if amountPaid.IsNegative() {
		return NewValidationError(CodeInvalidAmount, "Amount paid cannot be negative")
	}
	if amountPaid.GreaterThan(total) {
		return NewValidationError(CodeInvalidAmount,
			fmt.Sprintf("Amount paid %s exceeds total %s", amountPaid.StringFixed(2), total.StringFixed(2)))
	}

	s.CustomerName = name
	s.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	s.Description = description
	s.Items = items
	s.Total = total
	s.Installments = installments
	s.InstallmentValue = nil
	if installments > 1 {
		v := valueobject.Round2(total.Div(decimal.NewFromInt(int64(installments))))
		s.InstallmentValue = &v
	}
	s.ChargeDate = in.ChargeDate
	s.Notes = strings.TrimSpace(in.Notes)
	s.Reminder = in.Reminder
	s.AmountPaid = amountPaid
	s.recomputeBalance()
	return nil
}

// recomputeBalance derives RemainingAmount and Status from Total and AmountPaid
func (s *CreditSale) recomputeBalance() {
	s.RemainingAmount = valueobject.NonNegative(valueobject.Round2(s.Total.Sub(s.AmountPaid)))
	if s.RemainingAmount.IsZero() {
		s.Status = StatusPaid
	} else {
		s.Status = StatusOpen
	}
}

// PaymentApplication describes how a payment changed the sale
type PaymentApplication struct {
	AmountPaidBefore   decimal.Decimal
	AmountPaidAfter    decimal.Decimal
	RemainingAfter     decimal.Decimal
	PreviousChargeDate time.Time
	NextChargeDate     time.Time
	IntervalDays       int
	Settled            bool
}

// CheckPayment validates amount against the current balance without changing the sale
func (s *CreditSale) CheckPayment(amount decimal.Decimal) error {
	if s.IsDeleted() {
		return ErrCreditSaleNotFound
	}
	amount = valueobject.Round2(amount)
	if !amount.IsPositive() {
		return NewValidationError(CodeInvalidAmount, "Payment amount must be positive")
	}
	if s.RemainingAmount.IsZero() || !s.Status.CanApplyPayment() {
		return ErrAlreadySettled
	}
	if amount.GreaterThan(s.RemainingAmount) {
		return &OverpaymentError{Amount: amount, Remaining: s.RemainingAmount}
	}
	return nil
}

// ApplyPayment adds amount to AmountPaid and re-derives balance and status.
// While the sale stays open the charge date advances by the interval estimated
// from the amount paid before this payment; defaultIntervalDays is used when
// no estimate is available. A settled sale keeps its last charge date.
func (s *CreditSale) ApplyPayment(amount decimal.Decimal, defaultIntervalDays int) (*PaymentApplication, error) {
	if err := s.CheckPayment(amount); err != nil {
		return nil, err
	}
	amount = valueobject.Round2(amount)

	app := &PaymentApplication{
		AmountPaidBefore:   s.AmountPaid,
		PreviousChargeDate: s.ChargeDate,
	}

	s.AmountPaid = valueobject.Round2(s.AmountPaid.Add(amount))
	s.recomputeBalance()

	if s.Status == StatusOpen {
		s.ChargeDate, app.IntervalDays = NextChargeDate(s, app.AmountPaidBefore, defaultIntervalDays)
	}

	app.AmountPaidAfter = s.AmountPaid
	app.RemainingAfter = s.RemainingAmount
	app.NextChargeDate = s.ChargeDate
	app.Settled = s.Status == StatusPaid

	s.AddDomainEvent(NewPaymentAppliedEvent(s, amount, app))
	if app.Settled {
		s.AddDomainEvent(NewCreditSaleSettledEvent(s))
	}

	s.Touch()
	s.IncrementVersion()
	return app, nil
}

// PostponeInput carries the fields of a postponement
type PostponeInput struct {
	ChargeDate time.Time
	Reminder   *ReminderPreferences
	Notes      string
	// AllowEarlier permits moving the charge date backwards
	AllowEarlier bool
}

// Postpone moves the charge date and brings an archived sale back to the active views.
// A sale with a balance is re-asserted as open; a fully paid sale keeps its status.
func (s *CreditSale) Postpone(in PostponeInput) error {
	if s.IsDeleted() {
		return ErrCreditSaleNotFound
	}
	if in.ChargeDate.IsZero() || in.ChargeDate.Unix() <= 0 {
		return NewValidationError(CodeInvalidChargeDate, "New charge date is required")
	}
	if !in.AllowEarlier && CalendarDaysBetween(s.ChargeDate, in.ChargeDate) < 0 {
		return NewValidationError(CodeInvalidChargeDate,
			fmt.Sprintf("New charge date %s is earlier than the current %s",
				CalendarDay(in.ChargeDate).Format("2006-01-02"), CalendarDay(s.ChargeDate).Format("2006-01-02")))
	}
	if in.Reminder != nil {
		if err := in.Reminder.Validate(); err != nil {
			return err
		}
	}

	previous := s.ChargeDate
	s.ChargeDate = in.ChargeDate
	s.recomputeBalance()
	s.ArchivedAt = nil
	if in.Reminder != nil {
		s.Reminder = in.Reminder
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		s.Notes = notes
	}

	s.AddDomainEvent(NewCreditSalePostponedEvent(s, previous))
	s.Touch()
	s.IncrementVersion()
	return nil
}

// Archive hides the sale from active views. It returns false when already archived.
func (s *CreditSale) Archive(now time.Time) bool {
	if s.ArchivedAt != nil {
		return false
	}
	s.ArchivedAt = &now
	s.AddDomainEvent(NewCreditSaleArchivedEvent(s))
	s.Touch()
	s.IncrementVersion()
	return true
}

// Unarchive clears ArchivedAt. It returns false when the sale was not archived.
func (s *CreditSale) Unarchive() bool {
	if s.ArchivedAt == nil {
		return false
	}
	s.ArchivedAt = nil
	s.Touch()
	s.IncrementVersion()
	return true
}

// Remove soft-deletes the sale. Its payments stay queryable.
func (s *CreditSale) Remove(now time.Time) error {
	if s.IsDeleted() {
		return ErrCreditSaleNotFound
	}
	s.DeletedAt = &now
	s.AddDomainEvent(NewCreditSaleRemovedEvent(s))
	s.Touch()
	s.IncrementVersion()
	return nil
}

// Restore clears DeletedAt. It returns false when the sale was not deleted.
func (s *CreditSale) Restore() bool {
	if s.DeletedAt == nil {
		return false
	}
	s.DeletedAt = nil
	s.Touch()
	s.IncrementVersion()
	return true
}

// IsDeleted returns true if the sale is soft-deleted
func (s *CreditSale) IsDeleted() bool {
	return s.DeletedAt != nil
}

// IsArchived returns true if the sale is archived
func (s *CreditSale) IsArchived() bool {
	return s.ArchivedAt != nil
}

// IsActive returns true if the sale shows on active views
func (s *CreditSale) IsActive() bool {
	return !s.IsDeleted() && !s.IsArchived()
}

// IsPaid returns true if nothing remains to be paid
func (s *CreditSale) IsPaid() bool {
	return s.Status == StatusPaid
}

// IsDue reports whether an open, active sale should surface as due at asOf.
// With reminders enabled the window opens DaysBefore days ahead of the charge
// date (at RemindAt when set); otherwise the sale is due from the charge date on.
// The charge day starts at midnight in asOf's location.
func (s *CreditSale) IsDue(asOf time.Time) bool {
	if !s.IsActive() || s.Status != StatusOpen {
		return false
	}
	charge := s.chargeDayIn(asOf.Location())
	if s.Reminder != nil && s.Reminder.Enabled {
		return !asOf.Before(s.Reminder.WindowStart(charge))
	}
	return !asOf.Before(charge)
}

// IsOverdue reports whether the charge date is before asOf's calendar day
func (s *CreditSale) IsOverdue(asOf time.Time) bool {
	if s.Status != StatusOpen {
		return false
	}
	return CalendarDaysBetween(s.ChargeDate, LocalDay(asOf)) > 0
}

func (s *CreditSale) chargeDayIn(loc *time.Location) time.Time {
	y, m, d := CalendarDay(s.ChargeDate).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Snapshot returns a deep copy without pending events, for receipts built after a payment
func (s *CreditSale) Snapshot() CreditSale {
	cp := *s
	cp.ClearDomainEvents()
	cp.Items = append(LineItems(nil), s.Items...)
	if s.InstallmentValue != nil {
		v := *s.InstallmentValue
		cp.InstallmentValue = &v
	}
	if s.Reminder != nil {
		r := *s.Reminder
		if s.Reminder.RemindAt != nil {
			at := *s.Reminder.RemindAt
			r.RemindAt = &at
		}
		cp.Reminder = &r
	}
	if s.ArchivedAt != nil {
		t := *s.ArchivedAt
		cp.ArchivedAt = &t
	}
	if s.DeletedAt != nil {
		t := *s.DeletedAt
		cp.DeletedAt = &t
	}
	return cp
}
