package credit

import (
	"context"

	"github.com/retailpos/backend/internal/domain/credit"
)

// TransactionScope runs a unit of work against the credit repositories.
// Every repository handed to fn shares one database transaction, which is
// committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories bound to the current transaction.
type TransactionalRepositories interface {
	SaleRepo() credit.CreditSaleRepository
	PaymentRepo() credit.PaymentRepository
}

// NoOpTransactionScope calls fn directly with non-transactional repositories.
// Used in tests and in setups that have no transactional store.
type NoOpTransactionScope struct {
	saleRepo    credit.CreditSaleRepository
	paymentRepo credit.PaymentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(saleRepo credit.CreditSaleRepository, paymentRepo credit.PaymentRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{saleRepo: saleRepo, paymentRepo: paymentRepo}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// SaleRepo returns the credit sale repository
func (s *NoOpTransactionScope) SaleRepo() credit.CreditSaleRepository {
	return s.saleRepo
}

// PaymentRepo returns the payment repository
func (s *NoOpTransactionScope) PaymentRepo() credit.PaymentRepository {
	return s.paymentRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
