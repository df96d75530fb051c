package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDynamoDBPutter struct {
	mock.Mock
}

func (m *MockDynamoDBPutter) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*dynamodb.PutItemOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestDynamoDBCashLedger_AppendEntry(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()
	session := "caixa-02"

	t.Run("writes a conditional put", func(t *testing.T) {
		ddb := new(MockDynamoDBPutter)
		var captured *dynamodb.PutItemInput
		ddb.On("PutItem", ctx, mock.AnythingOfType("*dynamodb.PutItemInput")).
			Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.PutItemInput) }).
			Return(&dynamodb.PutItemOutput{}, nil).Once()

		ledger := NewDynamoDBCashLedger(ddb, "")
		id, err := ledger.AppendEntry(ctx, credit.CashLedgerEntry{
			Description: "Recebimento venda a prazo - Ana",
			Amount:      decimal.RequireFromString("30.5"),
			Method:      credit.MethodPix,
			Date:        time.Date(2024, 4, 2, 15, 0, 0, 0, time.UTC),
			SessionID:   &session,
			Reference:   saleID,
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		require.NotNil(t, captured)
		assert.Equal(t, "cash_transactions", *captured.TableName)
		assert.Equal(t, "attribute_not_exists(#id)", *captured.ConditionExpression)

		var item cashTransactionItem
		require.NoError(t, attributevalue.UnmarshalMap(captured.Item, &item))
		assert.Equal(t, id, item.ID)
		assert.Equal(t, "entrada", item.Kind)
		assert.Equal(t, "30.50", item.Amount)
		assert.Equal(t, "pix", item.PaymentMethod)
		assert.Equal(t, "2024-04-02T15:00:00Z", item.OccurredAt)
		assert.Equal(t, session, item.SessionID)
		assert.Equal(t, saleID.String(), item.Reference)
		ddb.AssertExpectations(t)
	})

	t.Run("omits empty optional attributes", func(t *testing.T) {
		ddb := new(MockDynamoDBPutter)
		var captured *dynamodb.PutItemInput
		ddb.On("PutItem", ctx, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.PutItemInput) }).
			Return(&dynamodb.PutItemOutput{}, nil).Once()

		ledger := NewDynamoDBCashLedger(ddb, "caixa")
		_, err := ledger.AppendEntry(ctx, credit.CashLedgerEntry{
			Description: "Recebimento",
			Amount:      decimal.NewFromInt(10),
			Method:      credit.MethodCash,
		})
		require.NoError(t, err)

		assert.Equal(t, "caixa", *captured.TableName)
		assert.NotContains(t, captured.Item, "session_id")
		assert.NotContains(t, captured.Item, "reference")
		assert.Contains(t, captured.Item, "occurred_at")
	})

	t.Run("wraps client errors", func(t *testing.T) {
		ddb := new(MockDynamoDBPutter)
		ddb.On("PutItem", ctx, mock.Anything).Return(nil, errors.New("throttled")).Once()

		ledger := NewDynamoDBCashLedger(ddb, "")
		_, err := ledger.AppendEntry(ctx, credit.CashLedgerEntry{Amount: decimal.NewFromInt(1), Method: credit.MethodCash})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to append cash transaction")
	})
}
