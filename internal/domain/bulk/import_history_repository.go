package bulk

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ImportHistoryFilter defines the filters for querying run records
type ImportHistoryFilter struct {
	Status      *ImportStatus
	ProfileID   *uuid.UUID
	ImportedBy  *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ImportHistoryListResult represents a paginated list of run records
type ImportHistoryListResult struct {
	Items      []*ImportHistory
	TotalCount int64
	Page       int
	PageSize   int
}

// ImportHistoryRepository persists run records. Records are never deleted by the pipeline.
type ImportHistoryRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ImportHistory, error)
	// FindAll returns run records newest first
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ImportHistoryFilter, page, pageSize int) (*ImportHistoryListResult, error)
	Save(ctx context.Context, history *ImportHistory) error
}

// ImportProfileFilter defines the filters for listing profiles
type ImportProfileFilter struct {
	Search   string
	IsActive *bool
}

// ImportProfileRepository persists profiles
type ImportProfileRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ImportProfile, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*ImportProfile, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ImportProfileFilter, page, pageSize int) ([]*ImportProfile, int64, error)
	Save(ctx context.Context, profile *ImportProfile) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
