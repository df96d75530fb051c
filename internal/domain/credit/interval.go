package credit

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultIntervalDays is the charge interval used when history gives no estimate
const DefaultIntervalDays = 30

// IntervalInput is the sale history the estimator reads
type IntervalInput struct {
	SaleDate         time.Time
	ChargeDate       time.Time
	Total            decimal.Decimal
	Installments     int
	InstallmentValue *decimal.Decimal
	AmountPaidBefore decimal.Decimal
}

// EstimateInstallmentInterval approximates the number of days between installments.
//
// No explicit schedule is stored, only a rolling charge date, so the gap is
// reconstructed from how far the charge date has moved since the sale and how
// many whole installments had been paid before the current payment.
// ok is false when either date is unset or the charge date never moved past
// the sale date; callers then fall back to their default interval.
func EstimateInstallmentInterval(in IntervalInput) (days int, ok bool) {
	if in.SaleDate.IsZero() || in.ChargeDate.IsZero() {
		return 0, false
	}

	base := decimal.Zero
	if in.InstallmentValue != nil {
		base = *in.InstallmentValue
	} else if in.Installments > 0 {
		base = in.Total.Div(decimal.NewFromInt(int64(in.Installments)))
	}

	installmentsPaid := int64(0)
	if base.IsPositive() {
		installmentsPaid = in.AmountPaidBefore.Div(base).Floor().IntPart()
	}

	totalDays := CalendarDaysBetween(in.SaleDate, in.ChargeDate)
	if totalDays < 0 {
		totalDays = 0
	}

	if installmentsPaid > 0 {
		interval := int(math.Round(float64(totalDays) / float64(installmentsPaid)))
		if interval > 0 {
			return interval, true
		}
	}
	if totalDays > 0 {
		return totalDays, true
	}
	return 0, false
}

// CalendarDay returns the calendar day of a stored sale or charge date.
// Those dates are kept at UTC midnight, so the day is read in UTC whatever
// zone the database driver handed the value back in.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LocalDay returns the calendar day of instant t in its own location, as UTC midnight
func LocalDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarDaysBetween counts calendar days from stored date a to stored date b
func CalendarDaysBetween(a, b time.Time) int {
	return int(CalendarDay(b).Sub(CalendarDay(a)).Hours() / 24)
}

// NextChargeDate returns the charge date that follows a payment on sale, estimated
// from the amount paid before that payment, and the interval that was applied.
func NextChargeDate(sale *CreditSale, amountPaidBefore decimal.Decimal, defaultDays int) (time.Time, int) {
	days, ok := EstimateInstallmentInterval(IntervalInput{
		SaleDate:         sale.SaleDate,
		ChargeDate:       sale.ChargeDate,
		Total:            sale.Total,
		Installments:     sale.Installments,
		InstallmentValue: sale.InstallmentValue,
		AmountPaidBefore: amountPaidBefore,
	})
	if !ok {
		days = defaultDays
		if days <= 0 {
			days = DefaultIntervalDays
		}
	}
	return sale.ChargeDate.UTC().AddDate(0, 0, days), days
}
