package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// Payment outcomes recorded by CreditMetrics
const (
	OutcomeAccepted    = "accepted"
	OutcomeOverpayment = "overpayment"
	OutcomeSettled     = "already_settled"
	OutcomeConflict    = "conflict"
	OutcomeFailed      = "failed"
)

// CreditMetrics holds the business counters of the credit ledger.
// A nil *CreditMetrics is valid and records nothing.
type CreditMetrics struct {
	salesCreated    metric.Int64Counter
	payments        metric.Int64Counter
	amountReceived  metric.Int64Counter
	salesSettled    metric.Int64Counter
	ledgerFailures  metric.Int64Counter
	dueSales        metric.Int64Gauge
	intervalApplied metric.Float64Histogram
}

// NewCreditMetrics registers the credit instruments on meter
func NewCreditMetrics(meter metric.Meter) (*CreditMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	in := NewInstruments(meter)
	m := &CreditMetrics{
		salesCreated: in.Counter("pos_credit_sales_created_total",
			"Credit sales created", "{sales}"),
		payments: in.Counter("pos_credit_payments_total",
			"Payment attempts by outcome", "{payments}"),
		amountReceived: in.Counter("pos_credit_amount_received_cents_total",
			"Amount received through credit payments", "{cents}"),
		salesSettled: in.Counter("pos_credit_sales_settled_total",
			"Credit sales fully paid", "{sales}"),
		ledgerFailures: in.Counter("pos_credit_cash_ledger_failures_total",
			"Cash ledger writes that failed after a payment", "{entries}"),
		dueSales: in.Gauge("pos_credit_due_sales",
			"Open sales inside their reminder window at the last scan", "{sales}"),
		intervalApplied: in.Histogram("pos_credit_interval_days",
			"Days the charge date advanced after a payment", "d",
			1, 7, 15, 30, 45, 60, 90),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordSaleCreated counts a new credit sale
func (m *CreditMetrics) RecordSaleCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.salesCreated.Add(ctx, 1)
}

// RecordPayment counts a payment attempt; amount is only added for accepted payments
func (m *CreditMetrics) RecordPayment(ctx context.Context, method, outcome string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.payments.Add(ctx, 1, metric.WithAttributes(AttrPaymentMethod.String(method), AttrOutcome.String(outcome)))
	if outcome == OutcomeAccepted {
		m.amountReceived.Add(ctx, amount.Shift(2).IntPart(), metric.WithAttributes(AttrPaymentMethod.String(method)))
	}
}

// RecordInterval records how far the charge date moved
func (m *CreditMetrics) RecordInterval(ctx context.Context, days int) {
	if m == nil || days <= 0 {
		return
	}
	m.intervalApplied.Record(ctx, float64(days))
}

// RecordSettled counts a sale reaching zero balance
func (m *CreditMetrics) RecordSettled(ctx context.Context) {
	if m == nil {
		return
	}
	m.salesSettled.Add(ctx, 1)
}

// RecordLedgerFailure counts a failed cash ledger write
func (m *CreditMetrics) RecordLedgerFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.ledgerFailures.Add(ctx, 1)
}

// RecordDueSales sets the due gauge from a reminder scan
func (m *CreditMetrics) RecordDueSales(ctx context.Context, due, overdue int64) {
	if m == nil {
		return
	}
	m.dueSales.Record(ctx, due-overdue, metric.WithAttributes(AttrOverdue.Bool(false)))
	m.dueSales.Record(ctx, overdue, metric.WithAttributes(AttrOverdue.Bool(true)))
}
