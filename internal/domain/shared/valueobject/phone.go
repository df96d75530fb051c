package valueobject

import (
	"errors"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// DefaultPhoneRegion is used when a number is given without a country prefix
const DefaultPhoneRegion = "BR"

// ErrInvalidPhone is returned for numbers that cannot be parsed or are not valid for the region
var ErrInvalidPhone = errors.New("phone number is not valid")

// NormalizePhone parses a customer phone number and returns it in E.164 form.
// An empty input is returned unchanged.
func NormalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultPhoneRegion
	}
	p, err := libphonenumber.Parse(phone, strings.ToUpper(region))
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", ErrInvalidPhone
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}
