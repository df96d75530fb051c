package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/domain/shared/valueobject"
	"github.com/retailpos/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCreditSalePaymentRepository implements credit.PaymentRepository using GORM.
// Payments are append-only: there is no update or delete.
type GormCreditSalePaymentRepository struct {
	db *gorm.DB
}

// NewGormCreditSalePaymentRepository creates a new GormCreditSalePaymentRepository
func NewGormCreditSalePaymentRepository(db *gorm.DB) *GormCreditSalePaymentRepository {
	return &GormCreditSalePaymentRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormCreditSalePaymentRepository) WithTx(tx *gorm.DB) *GormCreditSalePaymentRepository {
	return &GormCreditSalePaymentRepository{db: tx}
}

// Create inserts a payment
func (r *GormCreditSalePaymentRepository) Create(ctx context.Context, payment *credit.Payment) error {
	model := models.CreditSalePaymentModelFromDomain(payment)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID finds a payment by its ID
func (r *GormCreditSalePaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Payment, error) {
	var model models.CreditSalePaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySaleID returns all payments of a sale, newest payment date first
func (r *GormCreditSalePaymentRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID) ([]credit.Payment, error) {
	var paymentModels []models.CreditSalePaymentModel
	if err := r.db.WithContext(ctx).
		Where("credit_sale_id = ?", saleID).
		Order("payment_date DESC, created_at DESC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]credit.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments, nil
}

// SumBySaleID returns the total of the recorded payments of a sale
func (r *GormCreditSalePaymentRepository) SumBySaleID(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.CreditSalePaymentModel{}).
		Select("SUM(amount)").
		Where("credit_sale_id = ?", saleID).
		Row().Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return valueobject.Round2(sum.Decimal), nil
}

// Ensure GormCreditSalePaymentRepository implements PaymentRepository
var _ credit.PaymentRepository = (*GormCreditSalePaymentRepository)(nil)
