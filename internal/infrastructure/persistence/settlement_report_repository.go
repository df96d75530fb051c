package persistence

import (
	"context"
	"time"

	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared/valueobject"
	"github.com/retailpos/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSettlementReportRepository implements credit.SettlementReportRepository using GORM
type GormSettlementReportRepository struct {
	db *gorm.DB
}

// NewGormSettlementReportRepository creates a new GormSettlementReportRepository
func NewGormSettlementReportRepository(db *gorm.DB) *GormSettlementReportRepository {
	return &GormSettlementReportRepository{db: db}
}

type settlementStatusRow struct {
	Status    string
	Count     int64
	Sold      decimal.Decimal
	Received  decimal.Decimal
	Remaining decimal.Decimal
}

// Summarize aggregates non-deleted sales whose sale date falls in [from, to].
// Archived sales are included. A sale is overdue when it is open and its charge
// date is before asOf's calendar day.
func (r *GormSettlementReportRepository) Summarize(ctx context.Context, from, to *time.Time, asOf time.Time) (*credit.SettlementSummary, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.CreditSaleModel{}).
			Where("deleted_at IS NULL")
		if from != nil {
			q = q.Where("sale_date >= ?", *from)
		}
		if to != nil {
			q = q.Where("sale_date <= ?", *to)
		}
		return q
	}

	var rows []settlementStatusRow
	if err := scoped().
		Select("status, COUNT(*) AS count, " +
			"COALESCE(SUM(total), 0) AS sold, " +
			"COALESCE(SUM(amount_paid), 0) AS received, " +
			"COALESCE(SUM(remaining_amount), 0) AS remaining").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	summary := &credit.SettlementSummary{
		From:             from,
		To:               to,
		TotalSold:        decimal.Zero,
		TotalReceived:    decimal.Zero,
		TotalOutstanding: decimal.Zero,
	}
	for _, row := range rows {
		switch credit.SettlementStatus(row.Status) {
		case credit.StatusOpen:
			summary.OpenCount += row.Count
		case credit.StatusPaid:
			summary.PaidCount += row.Count
		}
		summary.TotalSold = summary.TotalSold.Add(row.Sold)
		summary.TotalReceived = summary.TotalReceived.Add(row.Received)
		summary.TotalOutstanding = summary.TotalOutstanding.Add(row.Remaining)
	}
	summary.TotalSold = valueobject.Round2(summary.TotalSold)
	summary.TotalReceived = valueobject.Round2(summary.TotalReceived)
	summary.TotalOutstanding = valueobject.Round2(summary.TotalOutstanding)

	startOfDay := credit.LocalDay(asOf)
	if err := scoped().
		Where("status = ? AND charge_date < ?", string(credit.StatusOpen), startOfDay).
		Count(&summary.OverdueCount).Error; err != nil {
		return nil, err
	}

	return summary, nil
}

// Ensure GormSettlementReportRepository implements SettlementReportRepository
var _ credit.SettlementReportRepository = (*GormSettlementReportRepository)(nil)
