package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCashLedger appends customer payments to the cash_transactions table as income entries
type GormCashLedger struct {
	db *gorm.DB
}

// NewGormCashLedger creates a new GormCashLedger
func NewGormCashLedger(db *gorm.DB) *GormCashLedger {
	return &GormCashLedger{db: db}
}

// AppendEntry inserts an income transaction and returns its id
func (l *GormCashLedger) AppendEntry(ctx context.Context, entry credit.CashLedgerEntry) (string, error) {
	base := shared.NewBaseEntity()
	model := &models.CashTransactionModel{
		Kind:          models.CashTransactionIncome,
		Description:   entry.Description,
		Amount:        entry.Amount,
		PaymentMethod: string(entry.Method),
		OccurredAt:    entry.Date,
		SessionID:     entry.SessionID,
		Notes:         entry.Notes,
	}
	model.SetEntity(base)
	if entry.Reference != uuid.Nil {
		ref := entry.Reference
		model.Reference = &ref
	}
	if model.OccurredAt.IsZero() {
		model.OccurredAt = base.CreatedAt
	}

	if err := l.db.WithContext(ctx).Create(model).Error; err != nil {
		return "", fmt.Errorf("failed to append cash transaction: %w", err)
	}
	return model.ID.String(), nil
}

// GormCashSessionProvider reads the currently open register session from cash_sessions
type GormCashSessionProvider struct {
	db *gorm.DB
}

// NewGormCashSessionProvider creates a new GormCashSessionProvider
func NewGormCashSessionProvider(db *gorm.DB) *GormCashSessionProvider {
	return &GormCashSessionProvider{db: db}
}

// CurrentSessionID returns the most recently opened session that is still open, or nil
func (p *GormCashSessionProvider) CurrentSessionID(ctx context.Context) (*string, error) {
	var model models.CashSessionModel
	if err := p.db.WithContext(ctx).
		Where("status = ? AND closed_at IS NULL", models.CashSessionOpen).
		Order("opened_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load open cash session: %w", err)
	}
	id := model.ID.String()
	return &id, nil
}

var (
	_ credit.CashLedger          = (*GormCashLedger)(nil)
	_ credit.CashSessionProvider = (*GormCashSessionProvider)(nil)
)
