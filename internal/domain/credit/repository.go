package credit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CreditSaleFilter narrows credit sale queries
type CreditSaleFilter struct {
	shared.Filter
	Status          *SettlementStatus
	IncludeArchived bool
	ChargeFrom      *time.Time
	ChargeTo        *time.Time
}

// CreditSaleRepository persists the CreditSale aggregate.
// Find methods exclude soft-deleted sales unless stated otherwise.
type CreditSaleRepository interface {
	// FindByID finds a non-deleted sale
	FindByID(ctx context.Context, id uuid.UUID) (*CreditSale, error)

	// FindByIDIncludingDeleted finds a sale regardless of DeletedAt
	FindByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*CreditSale, error)

	// FindActive returns sales that are neither archived nor deleted
	FindActive(ctx context.Context, filter CreditSaleFilter) ([]CreditSale, int64, error)

	// FindByStatus returns non-deleted sales with the given status
	FindByStatus(ctx context.Context, status SettlementStatus, filter CreditSaleFilter) ([]CreditSale, int64, error)

	// FindOpenChargedBefore returns open active sales whose charge date is before the given time
	FindOpenChargedBefore(ctx context.Context, before time.Time) ([]CreditSale, error)

	// Create inserts a new sale
	Create(ctx context.Context, sale *CreditSale) error

	// SaveWithLock updates the sale only if the stored version is sale.Version-1
	SaveWithLock(ctx context.Context, sale *CreditSale) error
}

// PaymentRepository persists the append-only payment records
type PaymentRepository interface {
	// Create inserts a payment
	Create(ctx context.Context, payment *Payment) error

	// FindByID finds a payment
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindBySaleID returns all payments of a sale, newest payment date first
	FindBySaleID(ctx context.Context, saleID uuid.UUID) ([]Payment, error)

	// SumBySaleID returns the total paid through recorded payments
	SumBySaleID(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error)
}

// SettlementSummary aggregates non-deleted sales per settlement status
type SettlementSummary struct {
	From             *time.Time      `json:"from,omitempty"`
	To               *time.Time      `json:"to,omitempty"`
	OpenCount        int64           `json:"open_count"`
	PaidCount        int64           `json:"paid_count"`
	OverdueCount     int64           `json:"overdue_count"`
	TotalSold        decimal.Decimal `json:"total_sold"`
	TotalReceived    decimal.Decimal `json:"total_received"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

// SettlementReportRepository is the read-only projection used by financial reports
type SettlementReportRepository interface {
	Summarize(ctx context.Context, from, to *time.Time, asOf time.Time) (*SettlementSummary, error)
}
