package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// Row holds the identity and timestamps every ledger table carries.
type Row struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an id to rows written without one, such as cash
// transactions created outside a domain entity.
func (r *Row) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Entity returns the row's identity as a domain entity.
func (r Row) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

// SetEntity copies identity and timestamps from e.
func (r *Row) SetEntity(e shared.BaseEntity) {
	*r = Row{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

// VersionedRow is a Row guarded by an optimistic lock version.
type VersionedRow struct {
	Row
	Version int `gorm:"not null;default:1"`
}

// Aggregate returns the aggregate root header; pending events are never persisted.
func (r VersionedRow) Aggregate() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: r.Entity(), Version: r.Version}
}

// SetAggregate copies identity and version from a.
func (r *VersionedRow) SetAggregate(a shared.BaseAggregateRoot) {
	r.SetEntity(a.BaseEntity)
	r.Version = a.Version
}
