// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
// - base.go: Row and VersionedRow shared by every table
// - credit_sale.go: credit_sales and credit_sale_payments
// - cash.go: cash_sessions and cash_transactions written by the register
package models
