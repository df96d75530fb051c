package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCreditSaleRepository implements credit.CreditSaleRepository using GORM
type GormCreditSaleRepository struct {
	db *gorm.DB
}

// NewGormCreditSaleRepository creates a new GormCreditSaleRepository
func NewGormCreditSaleRepository(db *gorm.DB) *GormCreditSaleRepository {
	return &GormCreditSaleRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormCreditSaleRepository) WithTx(tx *gorm.DB) *GormCreditSaleRepository {
	return &GormCreditSaleRepository{db: tx}
}

// FindByID finds a non-deleted credit sale
func (r *GormCreditSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.CreditSale, error) {
	var model models.CreditSaleModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, credit.ErrCreditSaleNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDIncludingDeleted finds a credit sale regardless of deleted_at
func (r *GormCreditSaleRepository) FindByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*credit.CreditSale, error) {
	var model models.CreditSaleModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, credit.ErrCreditSaleNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive returns sales that are neither archived nor deleted
func (r *GormCreditSaleRepository) FindActive(ctx context.Context, filter credit.CreditSaleFilter) ([]credit.CreditSale, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CreditSaleModel{}).
		Where("deleted_at IS NULL")
	if !filter.IncludeArchived {
		query = query.Where("archived_at IS NULL")
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	return r.findPage(query, filter)
}

// FindByStatus returns non-deleted sales with the given status, archived ones included
func (r *GormCreditSaleRepository) FindByStatus(ctx context.Context, status credit.SettlementStatus, filter credit.CreditSaleFilter) ([]credit.CreditSale, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CreditSaleModel{}).
		Where("deleted_at IS NULL AND status = ?", string(status))
	return r.findPage(query, filter)
}

// FindOpenChargedBefore returns open active sales charged before the given time, earliest first
func (r *GormCreditSaleRepository) FindOpenChargedBefore(ctx context.Context, before time.Time) ([]credit.CreditSale, error) {
	var saleModels []models.CreditSaleModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND deleted_at IS NULL AND archived_at IS NULL AND charge_date < ?", string(credit.StatusOpen), before).
		Order("charge_date ASC, created_at ASC").
		Find(&saleModels).Error; err != nil {
		return nil, err
	}
	return toDomainSales(saleModels), nil
}

// Create inserts a new credit sale
func (r *GormCreditSaleRepository) Create(ctx context.Context, sale *credit.CreditSale) error {
	model := models.CreditSaleModelFromDomain(sale)
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveWithLock updates every column of the sale if the stored version is sale.Version-1
func (r *GormCreditSaleRepository) SaveWithLock(ctx context.Context, sale *credit.CreditSale) error {
	model := models.CreditSaleModelFromDomain(sale)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", sale.ID, sale.Version-1).
		Select("*").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func (r *GormCreditSaleRepository) findPage(query *gorm.DB, filter credit.CreditSaleFilter) ([]credit.CreditSale, int64, error) {
	query = applyCreditSaleFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	f := filter.Filter.Normalize()
	var saleModels []models.CreditSaleModel
	if err := query.
		Order(orderColumn(creditSaleSortColumns, f.OrderBy, f.OrderDir, "charge_date")).
		Order("id ASC").
		Offset(f.Offset()).
		Limit(f.PageSize).
		Find(&saleModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainSales(saleModels), total, nil
}

func applyCreditSaleFilter(query *gorm.DB, filter credit.CreditSaleFilter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"(LOWER(customer_name) LIKE ? OR LOWER(description) LIKE ? OR customer_phone LIKE ?)",
			pattern, pattern, pattern,
		)
	}
	if filter.ChargeFrom != nil {
		query = query.Where("charge_date >= ?", *filter.ChargeFrom)
	}
	if filter.ChargeTo != nil {
		query = query.Where("charge_date <= ?", *filter.ChargeTo)
	}
	return query
}

func toDomainSales(saleModels []models.CreditSaleModel) []credit.CreditSale {
	sales := make([]credit.CreditSale, len(saleModels))
	for i := range saleModels {
		sales[i] = *saleModels[i].ToDomain()
	}
	return sales
}

// Ensure GormCreditSaleRepository implements CreditSaleRepository
var _ credit.CreditSaleRepository = (*GormCreditSaleRepository)(nil)
