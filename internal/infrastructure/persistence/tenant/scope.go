// Package tenant provides storefront (tenant) scoping for GORM queries.
//
// Every catalog and import table carries a tenant_id column; repositories apply
// Scope to each statement so one storefront never reads or writes another's rows.
//
//	db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).Find(&profiles)
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a statement is scoped to the nil tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// Column is the tenant column name shared by all tables
const Column = "tenant_id"

// Scope filters a statement to one tenant. A nil tenant ID fails the statement.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where(Column+" = ?", tenantID)
	}
}
