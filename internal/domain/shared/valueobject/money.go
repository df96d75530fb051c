package valueobject

import "github.com/shopspring/decimal"

// CentPlaces is the number of decimal places every stored amount is rounded to
const CentPlaces int32 = 2

// Round2 rounds an amount to the nearest cent, half away from zero.
// Every monetary value the ledger stores or compares passes through it.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(CentPlaces)
}

// NonNegative returns d, or zero when d is negative
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FormatCents renders d with exactly two decimals, the form used in logs,
// span attributes and external ledgers.
func FormatCents(d decimal.Decimal) string {
	return d.StringFixed(CentPlaces)
}
