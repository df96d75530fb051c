package persistence

import (
	"context"

	appcredit "github.com/retailpos/backend/internal/application/credit"
	"github.com/retailpos/backend/internal/domain/credit"
	"gorm.io/gorm"
)

// GormTransactionScope implements the credit TransactionScope using GORM transactions.
// Every repository handed to the callback shares the transaction.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appcredit.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to the credit repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// SaleRepo returns the credit sale repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SaleRepo() credit.CreditSaleRepository {
	return NewGormCreditSaleRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() credit.PaymentRepository {
	return NewGormCreditSalePaymentRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appcredit.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appcredit.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
