package tenant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type scopedRow struct {
	ID       int
	TenantID string
	Name     string
}

func setupScopeDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&scopedRow{}))
	return db
}

func TestScope(t *testing.T) {
	db := setupScopeDB(t)
	a, b := uuid.New(), uuid.New()
	require.NoError(t, db.Create(&[]scopedRow{
		{TenantID: a.String(), Name: "lamp"},
		{TenantID: a.String(), Name: "desk"},
		{TenantID: b.String(), Name: "chair"},
	}).Error)

	t.Run("filters by tenant", func(t *testing.T) {
		var rows []scopedRow
		require.NoError(t, db.Scopes(Scope(a)).Order("id").Find(&rows).Error)
		require.Len(t, rows, 2)
		assert.Equal(t, "lamp", rows[0].Name)
	})

	t.Run("nil tenant fails the statement", func(t *testing.T) {
		var rows []scopedRow
		err := db.Scopes(Scope(uuid.Nil)).Find(&rows).Error
		assert.ErrorIs(t, err, ErrTenantIDRequired)
		assert.Empty(t, rows)
	})
}
