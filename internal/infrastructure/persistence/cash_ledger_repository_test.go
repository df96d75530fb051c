package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCashLedger_AppendEntry(t *testing.T) {
	db := setupCreditTestDB(t)
	ledger := NewGormCashLedger(db)
	ctx := context.Background()

	session := "caixa-01"
	saleID := uuid.New()
	id, err := ledger.AppendEntry(ctx, credit.CashLedgerEntry{
		Description: "Recebimento venda a prazo - Maria Souza",
		Amount:      decimal.RequireFromString("45.50"),
		Method:      credit.MethodCash,
		Date:        utcDay(2024, 3, 2),
		SessionID:   &session,
		Reference:   saleID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var row models.CashTransactionModel
	require.NoError(t, db.First(&row, "id = ?", id).Error)
	assert.Equal(t, models.CashTransactionIncome, row.Kind)
	assert.Equal(t, "dinheiro", row.PaymentMethod)
	assertDecimal(t, "45.50", row.Amount)
	require.NotNil(t, row.Reference)
	assert.Equal(t, saleID, *row.Reference)
	require.NotNil(t, row.SessionID)
	assert.Equal(t, session, *row.SessionID)
}

func TestGormCashSessionProvider_CurrentSessionID(t *testing.T) {
	ctx := context.Background()

	t.Run("no open session", func(t *testing.T) {
		db := setupCreditTestDB(t)
		provider := NewGormCashSessionProvider(db)

		id, err := provider.CurrentSessionID(ctx)
		require.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("latest open session wins", func(t *testing.T) {
		db := setupCreditTestDB(t)
		provider := NewGormCashSessionProvider(db)

		closedAt := time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC)
		sessions := []models.CashSessionModel{
			{Row: models.Row{ID: uuid.New()}, Status: models.CashSessionOpen, OpenedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)},
			{Row: models.Row{ID: uuid.New()}, Status: models.CashSessionOpen, OpenedAt: time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC)},
			{Row: models.Row{ID: uuid.New()}, Status: models.CashSessionClosed, OpenedAt: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC), ClosedAt: &closedAt},
		}
		require.NoError(t, db.Create(&sessions).Error)

		id, err := provider.CurrentSessionID(ctx)
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, sessions[1].ID.String(), *id)
	})
}
