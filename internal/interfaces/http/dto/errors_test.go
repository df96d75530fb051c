package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidCustomerName, http.StatusBadRequest},
		{ErrCodeInvalidPaymentMethod, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeOverpayment, http.StatusUnprocessableEntity},
		{ErrCodeAlreadySettled, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeResourceLocked, http.StatusConflict},
		{ErrCodeDuplicateRequest, http.StatusConflict},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

// Every code the domain can raise must have a non-500 mapping.
func TestDomainCodesAreMapped(t *testing.T) {
	codes := []string{
		credit.CodeValidation,
		credit.CodeInvalidCustomer,
		credit.CodeInvalidPhone,
		credit.CodeInvalidItems,
		credit.CodeInvalidAmount,
		credit.CodeInvalidChargeDate,
		credit.CodeInvalidReminder,
		credit.CodeInvalidMethod,
		credit.CodeInstallments,
		credit.CodeOverpayment,
		credit.CodeAlreadySettled,
		shared.ErrNotFound.Code,
		shared.ErrConcurrencyConflict.Code,
		shared.ErrDuplicateRequest.Code,
		shared.ErrResourceLocked.Code,
	}

	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			_, ok := errorCodeToHTTPStatus[code]
			assert.True(t, ok, "code %s should be mapped", code)
			assert.True(t, IsClientError(code))
		})
	}
}

func TestValidationCodesMapToBadRequest(t *testing.T) {
	for code := range errorCodeToHTTPStatus {
		if credit.IsValidationCode(code) {
			assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(code), code)
		}
	}
}

func TestErrorEnvelopes(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		resp := NewErrorResponse(ErrCodeNotFound, "Credit sale not found")
		assert.False(t, resp.Success)
		assert.Nil(t, resp.Data)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
		assert.Empty(t, resp.Error.RequestID)
		assert.WithinDuration(t, time.Now(), resp.Error.Timestamp, time.Second)
	})

	t.Run("tagged with request id", func(t *testing.T) {
		resp := NewErrorResponseWithRequestID(ErrCodeOverpayment, "too much", "req-123-456")
		assert.Equal(t, "req-123-456", resp.Error.RequestID)
		assert.Empty(t, resp.Error.Details)
	})

	t.Run("validation details", func(t *testing.T) {
		resp := NewValidationErrorResponse("Validation failed", "req-789", []ValidationDetail{
			{Field: "customer_name", Message: "This field is required", Code: "required"},
			{Field: "charge_date", Message: "This field is required", Code: "required"},
		})
		assert.Equal(t, ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, "charge_date", resp.Error.Details[1].Field)
	})

	t.Run("wire shape omits empty sections", func(t *testing.T) {
		data, err := json.Marshal(NewErrorResponseWithRequestID(ErrCodeNotFound, "gone", "req-1"))
		require.NoError(t, err)
		body := string(data)
		assert.Contains(t, body, `"success":false`)
		assert.Contains(t, body, `"request_id":"req-1"`)
		assert.NotContains(t, body, `"data"`)
		assert.NotContains(t, body, `"warnings"`)
		assert.NotContains(t, body, `"details"`)
	})
}

func TestNewSuccessResponseWithWarnings(t *testing.T) {
	resp := NewSuccessResponseWithWarnings("ok", "cash ledger unavailable")
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"cash ledger unavailable"}, resp.Warnings)

	plain := NewSuccessResponseWithWarnings("ok")
	assert.Nil(t, plain.Warnings)
}

func TestNewSuccessResponseWithMetaPagination(t *testing.T) {
	tests := []struct {
		total         int64
		page          int
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 1, 10, 10, 10},
		{101, 1, 10, 11, 10},
		{0, 1, 10, 0, 10},
		{9, 1, 10, 1, 10},
		{11, 1, 10, 2, 10},
		{100, 1, 0, 5, 20},
		{100, 1, -1, 5, 20},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, tt.page, tt.pageSize)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
	}
}
