package credit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSettlementReportService_Summary(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("range is inclusive of the last day", func(t *testing.T) {
		repo := new(MockSettlementReportRepository)
		want := &credit.SettlementSummary{OpenCount: 2, PaidCount: 1, TotalSold: dec("300")}
		repo.On("Summarize", ctx,
			mock.MatchedBy(func(from *time.Time) bool { return from != nil && from.Equal(day(2024, 4, 1)) }),
			mock.MatchedBy(func(to *time.Time) bool {
				return to != nil && to.After(day(2024, 4, 30).Add(23*time.Hour)) && to.Before(day(2024, 5, 1))
			}),
			now,
		).Return(want, nil).Once()

		svc := NewSettlementReportService(repo)
		svc.now = func() time.Time { return now }

		got, err := svc.Summary(ctx, SummaryFilter{From: "2024-04-01", To: "2024-04-30"})
		require.NoError(t, err)
		assert.Same(t, want, got)
		repo.AssertExpectations(t)
	})

	t.Run("open range", func(t *testing.T) {
		repo := new(MockSettlementReportRepository)
		repo.On("Summarize", ctx, (*time.Time)(nil), (*time.Time)(nil), now).Return(&credit.SettlementSummary{}, nil).Once()

		svc := NewSettlementReportService(repo)
		svc.now = func() time.Time { return now }

		_, err := svc.Summary(ctx, SummaryFilter{})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("inverted range", func(t *testing.T) {
		repo := new(MockSettlementReportRepository)
		svc := NewSettlementReportService(repo)

		_, err := svc.Summary(ctx, SummaryFilter{From: "2024-05-01", To: "2024-04-01"})
		assertCode(t, err, credit.CodeValidation)
		repo.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := new(MockSettlementReportRepository)
		repo.On("Summarize", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

		svc := NewSettlementReportService(repo)
		_, err := svc.Summary(ctx, SummaryFilter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to summarize")
	})
}
