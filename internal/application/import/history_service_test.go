package importapp

import (
	"context"
	"testing"
	"time"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHistoryService_GetHistory(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	actorID := uuid.New()

	t.Run("scopes to the actor", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewHistoryService(repo)
		from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		completed := bulk.ImportStatusCompleted
		want := bulk.ImportHistoryFilter{Status: &completed, ImportedBy: &actorID, CreatedFrom: &from}
		list := &bulk.ImportHistoryListResult{Items: []*bulk.ImportHistory{}, Page: 1, PageSize: 20}
		repo.On("FindAll", ctx, tenantID, want, 1, 20).Return(list, nil)

		result, err := service.GetHistory(ctx, tenantID, actorID, HistoryFilter{Status: "completed", CreatedFrom: &from})
		require.NoError(t, err)
		assert.Same(t, list, result)
		repo.AssertExpectations(t)
	})

	t.Run("actor is required", func(t *testing.T) {
		service := NewHistoryService(new(MockImportHistoryRepository))

		_, err := service.GetHistory(ctx, tenantID, uuid.Nil, HistoryFilter{})
		assert.Equal(t, "INVALID_INPUT", shared.CodeOf(err))
	})

	t.Run("unknown status", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewHistoryService(repo)

		_, err := service.GetHistory(ctx, tenantID, actorID, HistoryFilter{Status: "running"})
		assert.Equal(t, "INVALID_INPUT", shared.CodeOf(err))
		repo.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHistoryService_List(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := new(MockImportHistoryRepository)
	service := NewHistoryService(repo)
	repo.On("FindAll", ctx, tenantID, bulk.ImportHistoryFilter{}, 3, 100).
		Return(&bulk.ImportHistoryListResult{Page: 3, PageSize: 100}, nil)

	result, err := service.List(ctx, tenantID, HistoryFilter{Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, result.PageSize)
}

func TestHistoryService_GetHistoryByID(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	history, err := bulk.NewImportHistory(tenantID, nil, nil, "feed.csv")
	require.NoError(t, err)

	repo := new(MockImportHistoryRepository)
	service := NewHistoryService(repo)
	repo.On("FindByID", ctx, tenantID, history.ID).Return(history, nil)
	missing := uuid.New()
	repo.On("FindByID", ctx, tenantID, missing).Return(nil, shared.ErrNotFound)

	got, err := service.GetHistoryByID(ctx, tenantID, history.ID)
	require.NoError(t, err)
	assert.Equal(t, "feed.csv", got.FileName)

	_, err = service.GetHistoryByID(ctx, tenantID, missing)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestHistoryService_ErrorsCSV(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("renders stored row errors", func(t *testing.T) {
		history, err := bulk.NewImportHistory(tenantID, nil, nil, "feed.csv")
		require.NoError(t, err)
		require.NoError(t, history.Complete(bulk.ImportStats{
			Total:   3,
			Failed:  2,
			Skipped: 1,
			Errors: []bulk.ImportErrorDetail{
				{Row: 2, Message: "name is required"},
				{Row: 4, Message: "price must be at least 5; sku is required"},
			},
		}))

		repo := new(MockImportHistoryRepository)
		repo.On("FindByID", ctx, tenantID, history.ID).Return(history, nil)

		data, name, err := NewHistoryService(repo).ErrorsCSV(ctx, tenantID, history.ID)
		require.NoError(t, err)
		assert.Equal(t, "row,message\n2,name is required\n4,price must be at least 5; sku is required\n", string(data))
		assert.Equal(t, "import_errors_"+history.ID.String()[:8]+".csv", name)
	})

	t.Run("quotes messages with commas", func(t *testing.T) {
		history, err := bulk.NewImportHistory(tenantID, nil, nil, "feed.csv")
		require.NoError(t, err)
		require.NoError(t, history.Complete(bulk.ImportStats{
			Total:  1,
			Failed: 1,
			Errors: []bulk.ImportErrorDetail{{Row: 2, Message: "bad value, retry"}},
		}))
		repo := new(MockImportHistoryRepository)
		repo.On("FindByID", ctx, tenantID, history.ID).Return(history, nil)

		data, _, err := NewHistoryService(repo).ErrorsCSV(ctx, tenantID, history.ID)
		require.NoError(t, err)
		assert.Equal(t, "row,message\n2,\"bad value, retry\"\n", string(data))
	})

	t.Run("run without errors yields the header only", func(t *testing.T) {
		history, err := bulk.NewImportHistory(tenantID, nil, nil, "feed.csv")
		require.NoError(t, err)
		repo := new(MockImportHistoryRepository)
		repo.On("FindByID", ctx, tenantID, history.ID).Return(history, nil)

		data, _, err := NewHistoryService(repo).ErrorsCSV(ctx, tenantID, history.ID)
		require.NoError(t, err)
		assert.Equal(t, "row,message\n", string(data))
	})

	t.Run("unknown run", func(t *testing.T) {
		id := uuid.New()
		repo := new(MockImportHistoryRepository)
		repo.On("FindByID", ctx, tenantID, id).Return(nil, shared.ErrNotFound)

		_, _, err := NewHistoryService(repo).ErrorsCSV(ctx, tenantID, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
