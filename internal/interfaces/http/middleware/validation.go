package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/interfaces/http/dto"
)

var setupOnce sync.Once

// SetupValidator configures gin's validator: JSON names in errors and the hhmm tag
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("hhmm", validateHHMM)
	})
}

// fieldName reports the json name of a body field, or the form name of a
// query parameter.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// validateHHMM accepts a 24h clock time such as "09:30"
func validateHHMM(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if len(raw) != len(credit.RemindAtLayout) {
		return false
	}
	_, err := time.Parse(credit.RemindAtLayout, raw)
	return err == nil
}

// FormatValidationErrors turns validator field errors into the 400 envelope.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	errors.As(err, &fieldErrs)

	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Code:    fe.Tag(),
		})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError answers a failed bind. Field errors get per-field
// details, bodies cut off by BodyLimit get 413 and anything else is reported
// as an unreadable body.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var (
		fieldErrs validator.ValidationErrors
		tooLarge  *http.MaxBytesError
		syntax    *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
	case errors.As(err, &tooLarge):
		abortTooLarge(c)
	case errors.As(err, &typeErr):
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Invalid request body", requestID,
			[]dto.ValidationDetail{{
				Field:   typeErr.Field,
				Message: "Must be a " + typeErr.Type.String(),
				Code:    "type",
			}}))
	case errors.As(err, &syntax):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeValidation, fmt.Sprintf("Invalid request body: malformed JSON at offset %d", syntax.Offset), requestID))
	default:
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeValidation, "Invalid request body: "+err.Error(), requestID))
	}
}

var tagMessages = map[string]string{
	"required": "This field is required",
	"uuid":     "Invalid UUID format",
	"oneof":    "Must be one of: %s",
	"gte":      "Must be greater than or equal to %s",
	"lte":      "Must be less than or equal to %s",
	"gt":       "Must be greater than %s",
	"hhmm":     "Must be a time of day in HH:MM format",
	"e164":     "Must be a phone number in international format",
	"datetime": "Must be a date in YYYY-MM-DD format",
}

// fieldMessage renders a human-readable message for one field error.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max":
		bound := "least"
		if fe.Tag() == "max" {
			bound = "most"
		}
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("Must be at %s %s characters", bound, fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("Must contain at %s %s items", bound, fe.Param())
		}
		return fmt.Sprintf("Must be at %s %s", bound, fe.Param())
	}
	if msg, ok := tagMessages[fe.Tag()]; ok {
		if strings.Contains(msg, "%s") {
			return fmt.Sprintf(msg, fe.Param())
		}
		return msg
	}
	return "Invalid value"
}
