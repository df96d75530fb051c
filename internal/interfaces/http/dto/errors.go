package dto

import "net/http"

// Error codes returned by the API. Domain codes pass through unchanged so
// clients see the same code the domain layer raised.

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests (unreadable body, bad path parameters)
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeRequestTooLarge is used when the request body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeTimeout is used when a request exceeds its deadline
	ErrCodeTimeout = "REQUEST_TIMEOUT"
	// ErrCodeServiceUnavailable is used when a dependency such as the database is down
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeInvalidCustomerName is used for a blank or oversized customer name
	ErrCodeInvalidCustomerName = "INVALID_CUSTOMER_NAME"
	// ErrCodeInvalidCustomerPhone is used for an unparseable phone number
	ErrCodeInvalidCustomerPhone = "INVALID_CUSTOMER_PHONE"
	// ErrCodeInvalidItems is used when line items are missing or inconsistent
	ErrCodeInvalidItems = "INVALID_ITEMS"
	// ErrCodeInvalidAmount is used for negative or zero amounts
	ErrCodeInvalidAmount = "INVALID_AMOUNT"
	// ErrCodeInvalidChargeDate is used for a charge date before the sale date
	ErrCodeInvalidChargeDate = "INVALID_CHARGE_DATE"
	// ErrCodeInvalidReminder is used for malformed reminder preferences
	ErrCodeInvalidReminder = "INVALID_REMINDER"
	// ErrCodeInvalidPaymentMethod is used for an unknown payment method
	ErrCodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	// ErrCodeInvalidInstallments is used for an installment count out of range
	ErrCodeInvalidInstallments = "INVALID_INSTALLMENTS"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	// ErrCodeResourceLocked is used when another request holds the sale lock
	ErrCodeResourceLocked = "RESOURCE_LOCKED"
	// ErrCodeDuplicateRequest is used when an idempotency key was already used
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
)

// Business rule error codes
const (
	// ErrCodeOverpayment is used when a payment exceeds the remaining balance
	ErrCodeOverpayment = "OVERPAYMENT"
	// ErrCodeAlreadySettled is used when a payment targets a fully paid sale
	ErrCodeAlreadySettled = "ALREADY_SETTLED"
)

var errorCodeToHTTPStatus = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodeValidation:           http.StatusBadRequest,
	ErrCodeInvalidCustomerName:  http.StatusBadRequest,
	ErrCodeInvalidCustomerPhone: http.StatusBadRequest,
	ErrCodeInvalidItems:         http.StatusBadRequest,
	ErrCodeInvalidAmount:        http.StatusBadRequest,
	ErrCodeInvalidChargeDate:    http.StatusBadRequest,
	ErrCodeInvalidReminder:      http.StatusBadRequest,
	ErrCodeInvalidPaymentMethod: http.StatusBadRequest,
	ErrCodeInvalidInstallments:  http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeResourceLocked:      http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,

	ErrCodeOverpayment:    http.StatusUnprocessableEntity,
	ErrCodeAlreadySettled: http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status for an error code. Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeToHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether the code maps to a 4xx status
func IsClientError(code string) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}
