package persistence

import (
	"context"
	"strings"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository is the catalog side of an import: lookup by SKU and upsert.
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	row, err := firstWhere[models.ProductModel](ctx, r.db, tenantID, "", "id = ?", id)
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindBySKU returns the oldest product with the trimmed sku. The comparison
// is case-sensitive.
func (r *GormProductRepository) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*catalog.Product, error) {
	row, err := firstWhere[models.ProductModel](ctx, r.db, tenantID, "created_at ASC, id ASC", "sku = ?", strings.TrimSpace(sku))
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return upsert(ctx, r.db, models.ProductModelFromDomain(product))
}

func (r *GormProductRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := scoped[models.ProductModel](ctx, r.db, tenantID).Count(&n).Error
	return n, err
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
