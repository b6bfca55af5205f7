package persistence

import (
	"context"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormImportHistoryRepository stores import run records in import_histories.
type GormImportHistoryRepository struct {
	db *gorm.DB
}

func NewGormImportHistoryRepository(db *gorm.DB) *GormImportHistoryRepository {
	return &GormImportHistoryRepository{db: db}
}

func (r *GormImportHistoryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportHistory, error) {
	row, err := firstWhere[models.ImportHistoryModel](ctx, r.db, tenantID, "", "id = ?", id)
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindAll lists run records newest first. Ties on created_at break by id so
// paging stays stable.
func (r *GormImportHistoryRepository) FindAll(
	ctx context.Context,
	tenantID uuid.UUID,
	filter bulk.ImportHistoryFilter,
	page, pageSize int,
) (*bulk.ImportHistoryListResult, error) {
	q := scoped[models.ImportHistoryModel](ctx, r.db, tenantID)
	for _, c := range historyConditions(filter) {
		q = q.Where(c.sql, c.arg)
	}

	rows, total, err := listPage[models.ImportHistoryModel](q, "created_at DESC, id DESC", page, pageSize)
	if err != nil {
		return nil, err
	}
	result := &bulk.ImportHistoryListResult{
		Items:      make([]*bulk.ImportHistory, 0, len(rows)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for i := range rows {
		result.Items = append(result.Items, rows[i].ToDomain())
	}
	return result, nil
}

func (r *GormImportHistoryRepository) Save(ctx context.Context, history *bulk.ImportHistory) error {
	return upsert(ctx, r.db, models.ImportHistoryModelFromDomain(history))
}

type condition struct {
	sql string
	arg any
}

func historyConditions(f bulk.ImportHistoryFilter) []condition {
	var conds []condition
	if f.Status != nil {
		conds = append(conds, condition{"status = ?", *f.Status})
	}
	if f.ProfileID != nil {
		conds = append(conds, condition{"profile_id = ?", *f.ProfileID})
	}
	if f.ImportedBy != nil {
		conds = append(conds, condition{"imported_by = ?", *f.ImportedBy})
	}
	if f.CreatedFrom != nil {
		conds = append(conds, condition{"created_at >= ?", *f.CreatedFrom})
	}
	if f.CreatedTo != nil {
		conds = append(conds, condition{"created_at <= ?", *f.CreatedTo})
	}
	return conds
}

var _ bulk.ImportHistoryRepository = (*GormImportHistoryRepository)(nil)
