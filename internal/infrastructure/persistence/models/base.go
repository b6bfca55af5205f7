package models

import (
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantColumns are the columns shared by every tenant-scoped table.
// Version backs optimistic locking on updates.
type TenantColumns struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	Version   int        `gorm:"not null;default:1"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func tenantColumnsOf(r shared.TenantAggregateRoot) TenantColumns {
	return TenantColumns{
		ID:        r.ID,
		TenantID:  r.TenantID,
		CreatedBy: r.CreatedBy,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (c TenantColumns) root() shared.TenantAggregateRoot {
	var r shared.TenantAggregateRoot
	r.ID, r.CreatedAt, r.UpdatedAt = c.ID, c.CreatedAt, c.UpdatedAt
	r.Version = c.Version
	r.TenantID, r.CreatedBy = c.TenantID, c.CreatedBy
	return r
}
