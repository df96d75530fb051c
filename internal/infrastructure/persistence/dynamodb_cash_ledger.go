package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared/valueobject"
	"github.com/retailpos/backend/internal/infrastructure/config"
	"github.com/retailpos/backend/internal/infrastructure/persistence/models"
)

const defaultCashLedgerTable = "cash_transactions"

// DynamoDBPutter is the subset of the DynamoDB client the cash ledger needs
type DynamoDBPutter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// NewDynamoDBClient builds a DynamoDB client from the cash ledger settings.
// Static credentials are used when both keys are set, otherwise the default
// AWS credential chain applies. Endpoint points the client at DynamoDB Local.
func NewDynamoDBClient(ctx context.Context, cfg config.DynamoDBConfig) (*dynamodb.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

type cashTransactionItem struct {
	ID            string `dynamodbav:"id"`
	Kind          string `dynamodbav:"kind"`
	Description   string `dynamodbav:"description"`
	Amount        string `dynamodbav:"amount"`
	PaymentMethod string `dynamodbav:"payment_method"`
	OccurredAt    string `dynamodbav:"occurred_at"`
	SessionID     string `dynamodbav:"session_id,omitempty"`
	Reference     string `dynamodbav:"reference,omitempty"`
	Notes         string `dynamodbav:"notes,omitempty"`
	CreatedAt     string `dynamodbav:"created_at"`
}

// DynamoDBCashLedger appends customer payments to a DynamoDB table keyed by id.
// Entries are write-once: a put never replaces an existing item.
//
// Table requirements:
//   - PK: id (string)
type DynamoDBCashLedger struct {
	ddb   DynamoDBPutter
	table string
	now   func() time.Time
}

// NewDynamoDBCashLedger creates a DynamoDBCashLedger. An empty table name
// falls back to cash_transactions.
func NewDynamoDBCashLedger(ddb DynamoDBPutter, table string) *DynamoDBCashLedger {
	if table == "" {
		table = defaultCashLedgerTable
	}
	return &DynamoDBCashLedger{ddb: ddb, table: table, now: time.Now}
}

// AppendEntry writes an income item and returns its id
func (l *DynamoDBCashLedger) AppendEntry(ctx context.Context, entry credit.CashLedgerEntry) (string, error) {
	now := l.now().UTC()
	item := cashTransactionItem{
		ID:            uuid.NewString(),
		Kind:          models.CashTransactionIncome,
		Description:   entry.Description,
		Amount:        valueobject.FormatCents(entry.Amount),
		PaymentMethod: string(entry.Method),
		OccurredAt:    entry.Date.UTC().Format(time.RFC3339),
		Notes:         entry.Notes,
		CreatedAt:     now.Format(time.RFC3339Nano),
	}
	if entry.Date.IsZero() {
		item.OccurredAt = now.Format(time.RFC3339)
	}
	if entry.SessionID != nil {
		item.SessionID = *entry.SessionID
	}
	if entry.Reference != uuid.Nil {
		item.Reference = entry.Reference.String()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cash transaction: %w", err)
	}

	_, err = l.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to append cash transaction: %w", err)
	}
	return item.ID, nil
}

var _ credit.CashLedger = (*DynamoDBCashLedger)(nil)
