package credit

import (
	"errors"
	"fmt"

	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Error codes raised by the credit ledger
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidCustomer   = "INVALID_CUSTOMER_NAME"
	CodeInvalidPhone      = "INVALID_CUSTOMER_PHONE"
	CodeInvalidItems      = "INVALID_ITEMS"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeInvalidChargeDate = "INVALID_CHARGE_DATE"
	CodeInvalidReminder   = "INVALID_REMINDER"
	CodeInvalidMethod     = "INVALID_PAYMENT_METHOD"
	CodeInstallments      = "INVALID_INSTALLMENTS"
	CodeOverpayment       = "OVERPAYMENT"
	CodeAlreadySettled    = "ALREADY_SETTLED"
)

var validationCodes = map[string]bool{
	CodeValidation:        true,
	CodeInvalidCustomer:   true,
	CodeInvalidPhone:      true,
	CodeInvalidItems:      true,
	CodeInvalidAmount:     true,
	CodeInvalidChargeDate: true,
	CodeInvalidReminder:   true,
	CodeInvalidMethod:     true,
	CodeInstallments:      true,
}

// ErrCreditSaleNotFound is returned for unknown or soft-deleted sales
var ErrCreditSaleNotFound = shared.NewDomainError("NOT_FOUND", "Credit sale not found")

// NewValidationError builds a validation failure with a specific code
func NewValidationError(code, message string) *shared.DomainError {
	return shared.NewDomainError(code, message)
}

// IsValidationError reports whether err is one of the ledger's validation failures
func IsValidationError(err error) bool {
	return validationCodes[shared.ErrorCode(err)]
}

// IsValidationCode reports whether code belongs to the validation family
func IsValidationCode(code string) bool {
	return validationCodes[code]
}

// OverpaymentError is returned when a payment exceeds the remaining balance.
// The payment is rejected outright; nothing is clamped.
type OverpaymentError struct {
	Amount    decimal.Decimal
	Remaining decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment amount %s exceeds remaining balance %s",
		e.Amount.StringFixed(2), e.Remaining.StringFixed(2))
}

// Unwrap exposes the DomainError so HTTP mapping can read the code
func (e *OverpaymentError) Unwrap() error {
	return shared.NewDomainError(CodeOverpayment, e.Error())
}

// ErrAlreadySettled is returned when a payment targets a sale with nothing left to pay
var ErrAlreadySettled = shared.NewDomainError(CodeAlreadySettled, "Credit sale is already fully paid")

// IsOverpayment reports whether err is an OverpaymentError
func IsOverpayment(err error) bool {
	var oe *OverpaymentError
	return errors.As(err, &oe)
}
