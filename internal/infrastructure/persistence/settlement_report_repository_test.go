package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormSettlementReportRepository_Summarize(t *testing.T) {
	db := setupCreditTestDB(t)
	saleRepo := NewGormCreditSaleRepository(db)
	repo := NewGormSettlementReportRepository(db)
	ctx := context.Background()
	asOf := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	createSale(t, saleRepo, saleSpec{customer: "Maria Souza", total: "100", paid: "40", saleDate: utcDay(2024, 4, 2), charge: utcDay(2024, 4, 20)})
	createSale(t, saleRepo, saleSpec{customer: "Carla Dias", total: "60", paid: "60", saleDate: utcDay(2024, 4, 10), charge: utcDay(2024, 5, 10)})
	createSale(t, saleRepo, saleSpec{customer: "Pedro Lima", total: "50", saleDate: utcDay(2024, 4, 15), charge: utcDay(2024, 5, 5)})
	createSale(t, saleRepo, saleSpec{customer: "Rita Melo", total: "10", saleDate: utcDay(2024, 3, 15), charge: utcDay(2024, 3, 20)})

	archived := createSale(t, saleRepo, saleSpec{customer: "Bruno Alves", total: "30", saleDate: utcDay(2024, 4, 20), charge: utcDay(2024, 4, 25)})
	require.True(t, archived.Archive(asOf))
	require.NoError(t, saleRepo.SaveWithLock(ctx, archived))

	deleted := createSale(t, saleRepo, saleSpec{customer: "Davi Rocha", total: "20", saleDate: utcDay(2024, 4, 5), charge: utcDay(2024, 4, 6)})
	require.NoError(t, deleted.Remove(asOf))
	require.NoError(t, saleRepo.SaveWithLock(ctx, deleted))

	t.Run("sale date range", func(t *testing.T) {
		from := utcDay(2024, 4, 1)
		to := time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC)

		summary, err := repo.Summarize(ctx, &from, &to, asOf)
		require.NoError(t, err)
		assert.Equal(t, int64(3), summary.OpenCount)
		assert.Equal(t, int64(1), summary.PaidCount)
		assert.Equal(t, int64(2), summary.OverdueCount)
		assertDecimal(t, "240", summary.TotalSold)
		assertDecimal(t, "100", summary.TotalReceived)
		assertDecimal(t, "140", summary.TotalOutstanding)
		assert.Equal(t, &from, summary.From)
	})

	t.Run("open range", func(t *testing.T) {
		summary, err := repo.Summarize(ctx, nil, nil, asOf)
		require.NoError(t, err)
		assert.Equal(t, int64(4), summary.OpenCount)
		assert.Equal(t, int64(1), summary.PaidCount)
		assert.Equal(t, int64(3), summary.OverdueCount)
		assertDecimal(t, "250", summary.TotalSold)
		assertDecimal(t, "150", summary.TotalOutstanding)
	})

	t.Run("charged today is not overdue", func(t *testing.T) {
		summary, err := repo.Summarize(ctx, nil, nil, time.Date(2024, 4, 20, 8, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		// Rita charged 03-20; Maria charged 04-20 is due today but not overdue
		assert.Equal(t, int64(1), summary.OverdueCount)
	})

	t.Run("overdue follows the local calendar day of asOf", func(t *testing.T) {
		brt := time.FixedZone("BRT", -3*60*60)
		summary, err := repo.Summarize(ctx, nil, nil, time.Date(2024, 4, 20, 22, 0, 0, 0, brt))
		require.NoError(t, err)
		assert.Equal(t, int64(1), summary.OverdueCount)

		summary, err = repo.Summarize(ctx, nil, nil, time.Date(2024, 4, 21, 0, 30, 0, 0, brt))
		require.NoError(t, err)
		assert.Equal(t, int64(2), summary.OverdueCount)
	})
}
