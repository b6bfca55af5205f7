package importapp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProfileService_Create(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	actorID := uuid.New()

	t.Run("success", func(t *testing.T) {
		repo := new(MockImportProfileRepository)
		service := NewProfileService(repo)
		repo.On("FindByName", ctx, tenantID, "Vendor A").Return(nil, shared.ErrNotFound)
		repo.On("Save", ctx, mock.AnythingOfType("*bulk.ImportProfile")).Return(nil)

		profile, err := service.Create(ctx, CreateProfileCommand{
			TenantID: tenantID,
			ActorID:  actorID,
			ProfileInput: ProfileInput{
				Name:      " Vendor A ",
				Delimiter: ";",
				Encoding:  "Windows-1251",
				ColumnMapping: bulk.CanonicalMapping{
					bulk.FieldName: bulk.Joined("brand", "model"),
				},
				ValidationRules: bulk.ValidationRules{DefaultCurrency: "usd"},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "Vendor A", profile.Name)
		assert.True(t, profile.IsActive)
		assert.True(t, profile.HasHeader)
		assert.Equal(t, ';', profile.DelimiterRune())
		assert.Equal(t, "windows-1251", profile.Encoding)
		assert.Equal(t, "USD", profile.ValidationRules.DefaultCurrency)
		assert.Equal(t, tenantID, profile.TenantID)
		repo.AssertExpectations(t)
	})

	t.Run("header flag can be turned off", func(t *testing.T) {
		repo := new(MockImportProfileRepository)
		repo.On("FindByName", ctx, tenantID, "Vendor B").Return(nil, shared.ErrNotFound)
		repo.On("Save", ctx, mock.Anything).Return(nil)
		noHeader := false

		profile, err := NewProfileService(repo).Create(ctx, CreateProfileCommand{
			TenantID:     tenantID,
			ProfileInput: ProfileInput{Name: "Vendor B", HasHeader: &noHeader},
		})
		require.NoError(t, err)
		assert.False(t, profile.HasHeader)
	})

	t.Run("duplicate name", func(t *testing.T) {
		repo := new(MockImportProfileRepository)
		existing := newTestProfile(t, tenantID, nil)
		repo.On("FindByName", ctx, tenantID, "Vendor A").Return(existing, nil)

		_, err := NewProfileService(repo).Create(ctx, CreateProfileCommand{
			TenantID:     tenantID,
			ProfileInput: ProfileInput{Name: "Vendor A"},
		})
		assert.Equal(t, "ALREADY_EXISTS", shared.CodeOf(err))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("input validation", func(t *testing.T) {
		tests := []struct {
			name string
			cmd  CreateProfileCommand
			code string
		}{
			{"missing tenant", CreateProfileCommand{ProfileInput: ProfileInput{Name: "x"}}, "INVALID_INPUT"},
			{"missing name", CreateProfileCommand{TenantID: tenantID}, "INVALID_INPUT"},
			{"name too long", CreateProfileCommand{TenantID: tenantID, ProfileInput: ProfileInput{Name: strings.Repeat("a", 201)}}, "INVALID_INPUT"},
			{"unknown encoding", CreateProfileCommand{TenantID: tenantID, ProfileInput: ProfileInput{Name: "x", Encoding: "ebcdic"}}, "INVALID_ENCODING"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := new(MockImportProfileRepository)
				_, err := NewProfileService(repo).Create(ctx, tt.cmd)
				assert.Equal(t, tt.code, shared.CodeOf(err))
				repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("domain validation", func(t *testing.T) {
		repo := new(MockImportProfileRepository)
		repo.On("FindByName", ctx, tenantID, "x").Return(nil, shared.ErrNotFound)

		_, err := NewProfileService(repo).Create(ctx, CreateProfileCommand{
			TenantID:     tenantID,
			ProfileInput: ProfileInput{Name: "x", Delimiter: "ab"},
		})
		assert.Equal(t, "INVALID_DELIMITER", shared.CodeOf(err))
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := new(MockImportProfileRepository)
		repo.On("FindByName", ctx, tenantID, "x").Return(nil, errors.New("db down"))

		_, err := NewProfileService(repo).Create(ctx, CreateProfileCommand{TenantID: tenantID, ProfileInput: ProfileInput{Name: "x"}})
		assert.ErrorContains(t, err, "db down")
	})
}

func TestProfileService_Update(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("keeps identity and bumps version", func(t *testing.T) {
		repo := new(MockImportProfileRepository)
		profile := newTestProfile(t, tenantID, nil)
		version := profile.GetVersion()
		repo.On("FindByID", ctx, tenantID, profile.ID).Return(profile, nil)
		repo.On("FindByName", ctx, tenantID, "Vendor A").Return(profile, nil)
		repo.On("Save", ctx, profile).Return(nil)

		updated, err := NewProfileService(repo).Update(ctx, UpdateProfileCommand{
			TenantID:     tenantID,
			ID:           profile.ID,
			ProfileInput: ProfileInput{Name: "Vendor A", Delimiter: "tab"},
		})
		require.NoError(t, err)
		assert.Equal(t, profile.ID, updated.ID)
		assert.Equal(t, '\t', updated.DelimiterRune())
		assert.Greater(t, updated.GetVersion(), version)
	})

	t.Run("name taken by another profile", func(t *testing.T) {
		repo := new(MockImportProfileRepository)
		profile := newTestProfile(t, tenantID, nil)
		other := newTestProfile(t, tenantID, nil)
		repo.On("FindByID", ctx, tenantID, profile.ID).Return(profile, nil)
		repo.On("FindByName", ctx, tenantID, "Vendor A").Return(other, nil)

		_, err := NewProfileService(repo).Update(ctx, UpdateProfileCommand{
			TenantID:     tenantID,
			ID:           profile.ID,
			ProfileInput: ProfileInput{Name: "Vendor A"},
		})
		assert.Equal(t, "ALREADY_EXISTS", shared.CodeOf(err))
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockImportProfileRepository)
		id := uuid.New()
		repo.On("FindByID", ctx, tenantID, id).Return(nil, shared.ErrNotFound)

		_, err := NewProfileService(repo).Update(ctx, UpdateProfileCommand{TenantID: tenantID, ID: id, ProfileInput: ProfileInput{Name: "x"}})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestProfileService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := new(MockImportProfileRepository)
	service := NewProfileService(repo)
	profile := newTestProfile(t, tenantID, nil)
	repo.On("FindByID", ctx, tenantID, profile.ID).Return(profile, nil)
	repo.On("Save", ctx, profile).Return(nil)
	repo.On("Delete", ctx, tenantID, profile.ID).Return(nil)

	got, err := service.Deactivate(ctx, tenantID, profile.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = service.Deactivate(ctx, tenantID, profile.ID)
	assert.Equal(t, "INVALID_STATE", shared.CodeOf(err))

	got, err = service.Activate(ctx, tenantID, profile.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	require.NoError(t, service.Delete(ctx, tenantID, profile.ID))
	repo.AssertCalled(t, "Delete", ctx, tenantID, profile.ID)
}

func TestProfileService_List(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := new(MockImportProfileRepository)
	active := true
	items := []*bulk.ImportProfile{newTestProfile(t, tenantID, nil)}
	repo.On("FindAll", ctx, tenantID, bulk.ImportProfileFilter{Search: "vendor", IsActive: &active}, 1, 20).
		Return(items, int64(41), nil)

	page, err := NewProfileService(repo).List(ctx, tenantID, ProfileListFilter{Search: " vendor ", IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, items, page.Items)
	assert.Equal(t, int64(41), page.Total)
	assert.Equal(t, 3, page.TotalPages)
}
