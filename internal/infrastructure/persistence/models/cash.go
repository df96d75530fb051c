package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cash session states as written by the register
const (
	CashSessionOpen   = "aberto"
	CashSessionClosed = "fechado"
)

// Cash transaction kinds
const (
	CashTransactionIncome  = "entrada"
	CashTransactionExpense = "saida"
)

// CashSessionModel is a register session. Opening and closing sessions is owned by
// the register; this service only reads the currently open one.
type CashSessionModel struct {
	Row
	Status         string          `gorm:"type:varchar(20);not null;default:'aberto';index"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	OpenedAt       time.Time       `gorm:"not null;index"`
	ClosedAt       *time.Time
}

// TableName returns the table name for GORM
func (CashSessionModel) TableName() string {
	return "cash_sessions"
}

// CashTransactionModel is one entry of the general cash ledger.
type CashTransactionModel struct {
	Row
	Kind          string          `gorm:"type:varchar(20);not null"`
	Description   string          `gorm:"type:varchar(500);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PaymentMethod string          `gorm:"type:varchar(30);not null"`
	OccurredAt    time.Time       `gorm:"not null;index"`
	SessionID     *string         `gorm:"type:varchar(64);index"`
	Reference     *uuid.UUID      `gorm:"type:uuid;index"`
	Notes         string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CashTransactionModel) TableName() string {
	return "cash_transactions"
}
