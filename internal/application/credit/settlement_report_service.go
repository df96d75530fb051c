package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/infrastructure/telemetry"
)

// SettlementReportService is the read-only reporting adapter over the credit ledger
type SettlementReportService struct {
	reportRepo credit.SettlementReportRepository
	now        func() time.Time
}

// NewSettlementReportService creates a SettlementReportService
func NewSettlementReportService(reportRepo credit.SettlementReportRepository) *SettlementReportService {
	return &SettlementReportService{reportRepo: reportRepo, now: time.Now}
}

// Summary aggregates non-deleted sales by status, optionally restricted to a sale date range.
// To is inclusive of its whole day.
func (s *SettlementReportService) Summary(ctx context.Context, q SummaryFilter) (*credit.SettlementSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_report", "summary")
	defer span.End()

	var from, to *time.Time
	if q.From != "" {
		d, err := ParseDate(q.From)
		if err != nil {
			return nil, err
		}
		from = &d
	}
	if q.To != "" {
		d, err := ParseDate(q.To)
		if err != nil {
			return nil, err
		}
		end := endOfDay(d)
		to = &end
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, credit.NewValidationError(credit.CodeValidation, "from must not be after to")
	}

	summary, err := s.reportRepo.Summarize(ctx, from, to, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to summarize credit sales: %w", err)
	}
	return summary, nil
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
