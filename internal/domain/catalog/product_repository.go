package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository is the catalog store the importer reconciles against
type ProductRepository interface {
	// FindByIDForTenant finds a product by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)

	// FindBySKU finds a product by its SKU within a tenant.
	// Returns shared.ErrNotFound when no product carries the SKU.
	FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// CountForTenant counts the products of a tenant
	CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
