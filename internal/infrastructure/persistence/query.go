package persistence

import (
	"context"
	"errors"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// translateError maps driver errors onto domain errors. Connections are opened
// with TranslateError so unique violations arrive as gorm.ErrDuplicatedKey.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	}
	return err
}

// scoped starts a statement limited to one tenant's rows of model M.
func scoped[M any](ctx context.Context, db *gorm.DB, tenantID uuid.UUID) *gorm.DB {
	return db.WithContext(ctx).Model(new(M)).Scopes(tenant.Scope(tenantID))
}

// firstWhere loads the first tenant row matching cond. order may be empty.
func firstWhere[M any](ctx context.Context, db *gorm.DB, tenantID uuid.UUID, order string, cond string, args ...any) (*M, error) {
	var row M
	q := scoped[M](ctx, db, tenantID).Where(cond, args...)
	if order != "" {
		q = q.Order(order)
	}
	if err := q.First(&row).Error; err != nil {
		return nil, translateError(err)
	}
	return &row, nil
}

// listPage counts q, then loads one page of it in order. page or size <= 0
// loads everything.
func listPage[M any](q *gorm.DB, order string, page, size int) ([]M, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page > 0 && size > 0 {
		q = q.Offset((page - 1) * size).Limit(size)
	}
	var rows []M
	if err := q.Order(order).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// upsert inserts or updates row by primary key.
func upsert(ctx context.Context, db *gorm.DB, row any) error {
	return translateError(db.WithContext(ctx).Save(row).Error)
}
