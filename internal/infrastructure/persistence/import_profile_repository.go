package persistence

import (
	"context"
	"strings"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormImportProfileRepository stores vendor import profiles. Names are unique
// per tenant.
type GormImportProfileRepository struct {
	db *gorm.DB
}

func NewGormImportProfileRepository(db *gorm.DB) *GormImportProfileRepository {
	return &GormImportProfileRepository{db: db}
}

func (r *GormImportProfileRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportProfile, error) {
	row, err := firstWhere[models.ImportProfileModel](ctx, r.db, tenantID, "", "id = ?", id)
	if err != nil {
		return nil, err
	}
	return row.ToDomain()
}

// FindByName matches the trimmed name exactly.
func (r *GormImportProfileRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*bulk.ImportProfile, error) {
	row, err := firstWhere[models.ImportProfileModel](ctx, r.db, tenantID, "", "name = ?", strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	return row.ToDomain()
}

// FindAll returns one page of profiles by name and the unpaged total.
// Search is a case-insensitive substring match on the name.
func (r *GormImportProfileRepository) FindAll(
	ctx context.Context,
	tenantID uuid.UUID,
	filter bulk.ImportProfileFilter,
	page, pageSize int,
) ([]*bulk.ImportProfile, int64, error) {
	q := scoped[models.ImportProfileModel](ctx, r.db, tenantID)
	if filter.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	rows, total, err := listPage[models.ImportProfileModel](q, "name ASC", page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	profiles := make([]*bulk.ImportProfile, len(rows))
	for i := range rows {
		if profiles[i], err = rows[i].ToDomain(); err != nil {
			return nil, 0, err
		}
	}
	return profiles, total, nil
}

// Save fails with shared.ErrAlreadyExists on a name clash within the tenant.
func (r *GormImportProfileRepository) Save(ctx context.Context, profile *bulk.ImportProfile) error {
	row, err := models.ImportProfileModelFromDomain(profile)
	if err != nil {
		return err
	}
	return upsert(ctx, r.db, row)
}

// Delete removes a profile. Run records keep their dangling profile_id.
func (r *GormImportProfileRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	res := scoped[models.ImportProfileModel](ctx, r.db, tenantID).
		Where("id = ?", id).
		Delete(&models.ImportProfileModel{})
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return shared.ErrNotFound
	}
	return nil
}

var _ bulk.ImportProfileRepository = (*GormImportProfileRepository)(nil)
