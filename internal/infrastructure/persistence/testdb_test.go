package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// sqliteSchema mirrors the Postgres migrations with SQLite column types
var sqliteSchema = []string{
	`CREATE TABLE products (
		id text PRIMARY KEY,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL,
		version integer NOT NULL DEFAULT 1,
		tenant_id text NOT NULL,
		created_by text,
		name text NOT NULL,
		sku text,
		description text,
		price text NOT NULL DEFAULT '0',
		stock integer NOT NULL DEFAULT 0,
		currency text,
		category_id text,
		images text
	)`,
	`CREATE INDEX idx_products_tenant_sku ON products (tenant_id, sku)`,
	`CREATE TABLE import_profiles (
		id text PRIMARY KEY,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL,
		version integer NOT NULL DEFAULT 1,
		tenant_id text NOT NULL,
		created_by text,
		name text NOT NULL,
		delimiter text NOT NULL,
		encoding text NOT NULL,
		has_header boolean NOT NULL,
		column_mapping text NOT NULL DEFAULT '{}',
		transformations text NOT NULL DEFAULT '{}',
		validation_rules text NOT NULL DEFAULT '{}',
		is_active boolean NOT NULL,
		UNIQUE (tenant_id, name)
	)`,
	`CREATE TABLE import_histories (
		id text PRIMARY KEY,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL,
		version integer NOT NULL DEFAULT 1,
		tenant_id text NOT NULL,
		created_by text,
		file_name text NOT NULL,
		profile_id text,
		imported_by text,
		status text NOT NULL DEFAULT 'processing',
		total_rows integer NOT NULL DEFAULT 0,
		successful_rows integer NOT NULL DEFAULT 0,
		failed_rows integer NOT NULL DEFAULT 0,
		skipped_rows integer NOT NULL DEFAULT 0,
		error_details text NOT NULL DEFAULT '[]',
		error_message text,
		started_at datetime,
		completed_at datetime
	)`,
}

func setupImportTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would otherwise get its own empty in-memory database
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range sqliteSchema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
