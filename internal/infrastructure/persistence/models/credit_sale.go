package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/shopspring/decimal"
)

// CreditSaleModel is the persistence model for the CreditSale aggregate root.
type CreditSaleModel struct {
	VersionedRow
	CustomerName     string                      `gorm:"type:varchar(200);not null;index"`
	CustomerPhone    string                      `gorm:"type:varchar(32)"`
	Description      string                      `gorm:"type:text;not null"`
	Items            credit.LineItems            `gorm:"type:jsonb;default:'[]'"`
	Total            decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	AmountPaid       decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	RemainingAmount  decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	Installments     int                         `gorm:"not null;default:1"`
	InstallmentValue *decimal.Decimal            `gorm:"type:decimal(18,2)"`
	SaleDate         time.Time                   `gorm:"not null"`
	ChargeDate       time.Time                   `gorm:"not null;index"`
	Status           string                      `gorm:"type:varchar(20);not null;default:'em_aberto';index"`
	Notes            string                      `gorm:"type:text"`
	Reminder         *credit.ReminderPreferences `gorm:"type:jsonb"`
	ArchivedAt       *time.Time                  `gorm:"index"`
	DeletedAt        *time.Time                  `gorm:"index"`
}

// TableName returns the table name for GORM
func (CreditSaleModel) TableName() string {
	return "credit_sales"
}

// ToDomain converts the persistence model to a domain CreditSale.
func (m *CreditSaleModel) ToDomain() *credit.CreditSale {
	items := m.Items
	if items == nil {
		items = credit.LineItems{}
	}
	var reminder *credit.ReminderPreferences
	if m.Reminder != nil {
		r := *m.Reminder
		reminder = &r
	}
	return &credit.CreditSale{
		BaseAggregateRoot: m.Aggregate(),
		CustomerName:      m.CustomerName,
		CustomerPhone:     m.CustomerPhone,
		Description:       m.Description,
		Items:             items,
		Total:             m.Total,
		AmountPaid:        m.AmountPaid,
		RemainingAmount:   m.RemainingAmount,
		Installments:      m.Installments,
		InstallmentValue:  m.InstallmentValue,
		SaleDate:          m.SaleDate,
		ChargeDate:        m.ChargeDate,
		Status:            credit.SettlementStatus(m.Status),
		Notes:             m.Notes,
		Reminder:          reminder,
		ArchivedAt:        m.ArchivedAt,
		DeletedAt:         m.DeletedAt,
	}
}

// FromDomain populates the persistence model from a domain CreditSale.
func (m *CreditSaleModel) FromDomain(s *credit.CreditSale) {
	m.SetAggregate(s.BaseAggregateRoot)
	m.CustomerName = s.CustomerName
	m.CustomerPhone = s.CustomerPhone
	m.Description = s.Description
	m.Items = s.Items
	m.Total = s.Total
	m.AmountPaid = s.AmountPaid
	m.RemainingAmount = s.RemainingAmount
	m.Installments = s.Installments
	m.InstallmentValue = s.InstallmentValue
	m.SaleDate = s.SaleDate
	m.ChargeDate = s.ChargeDate
	m.Status = string(s.Status)
	m.Notes = s.Notes
	m.Reminder = s.Reminder
	m.ArchivedAt = s.ArchivedAt
	m.DeletedAt = s.DeletedAt
}

// CreditSaleModelFromDomain creates a new persistence model from a domain CreditSale.
func CreditSaleModelFromDomain(s *credit.CreditSale) *CreditSaleModel {
	m := &CreditSaleModel{}
	m.FromDomain(s)
	return m
}

// CreditSalePaymentModel is the persistence model for an append-only credit sale payment.
type CreditSalePaymentModel struct {
	Row
	CreditSaleID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PaymentDate   time.Time       `gorm:"not null;index"`
	PaymentMethod string          `gorm:"type:varchar(30);not null"`
	SessionID     *string         `gorm:"type:varchar(64)"`
	TransactionID *string         `gorm:"type:varchar(64)"`
	Notes         string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CreditSalePaymentModel) TableName() string {
	return "credit_sale_payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *CreditSalePaymentModel) ToDomain() *credit.Payment {
	return &credit.Payment{
		BaseEntity:    m.Entity(),
		CreditSaleID:  m.CreditSaleID,
		Amount:        m.Amount,
		PaymentDate:   m.PaymentDate,
		Method:        credit.PaymentMethod(m.PaymentMethod),
		SessionID:     m.SessionID,
		TransactionID: m.TransactionID,
		Notes:         m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Payment.
func (m *CreditSalePaymentModel) FromDomain(p *credit.Payment) {
	m.SetEntity(p.BaseEntity)
	m.CreditSaleID = p.CreditSaleID
	m.Amount = p.Amount
	m.PaymentDate = p.PaymentDate
	m.PaymentMethod = string(p.Method)
	m.SessionID = p.SessionID
	m.TransactionID = p.TransactionID
	m.Notes = p.Notes
}

// CreditSalePaymentModelFromDomain creates a new persistence model from a domain Payment.
func CreditSalePaymentModelFromDomain(p *credit.Payment) *CreditSalePaymentModel {
	m := &CreditSalePaymentModel{}
	m.FromDomain(p)
	return m
}
