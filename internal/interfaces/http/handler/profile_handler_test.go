package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func profileRouter(profiles ProfileManager, id identity) *gin.Engine {
	h := NewProfileHandler(profiles)
	router := gin.New()
	router.Use(withIdentity(id))
	router.POST("/profiles", h.Create)
	router.GET("/profiles", h.List)
	router.GET("/profiles/:id", h.Get)
	router.PUT("/profiles/:id", h.Update)
	router.POST("/profiles/:id/activate", h.Activate)
	router.POST("/profiles/:id/deactivate", h.Deactivate)
	router.DELETE("/profiles/:id", h.Delete)
	return router
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, jsonBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestProfileHandler_Create(t *testing.T) {
	id := newIdentity()
	profiles := new(MockProfileManager)
	created := testProfile(t, id.tenant, "Supplier A")
	footwear := uuid.New()

	profiles.On("Create", mock.Anything, mock.MatchedBy(func(cmd importapp.CreateProfileCommand) bool {
		return cmd.TenantID == id.tenant &&
			cmd.ActorID == id.user &&
			cmd.Name == "Supplier A" &&
			cmd.Delimiter == ";" &&
			cmd.HasHeader != nil && !*cmd.HasHeader &&
			cmd.ColumnMapping.Source(bulk.FieldSKU).Equal(bulk.Single("Item Code")) &&
			cmd.Transformations.CategoryMap["SHOES"] == footwear &&
			cmd.ValidationRules.RequireSKU &&
			cmd.ValidationRules.MinPrice != nil && cmd.ValidationRules.MinPrice.Equal(decimal.NewFromInt(1))
	})).Return(created, nil)

	req := jsonRequest(t, http.MethodPost, "/profiles", map[string]any{
		"name":           "Supplier A",
		"delimiter":      ";",
		"has_header":     false,
		"column_mapping": map[string]any{"sku": "Item Code"},
		"transformations": map[string]any{
			"category_map": map[string]string{"SHOES": footwear.String()},
		},
		"validation_rules": map[string]any{
			"require_sku": true,
			"min_price":   "1",
		},
	})
	w := serve(profileRouter(profiles, id), req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeData[dto.ImportProfileResponse](t, w)
	assert.Equal(t, created.ID, resp.Data.ID)
	assert.Equal(t, "Supplier A", resp.Data.Name)
	assert.True(t, resp.Data.IsActive)
	profiles.AssertExpectations(t)
}

func TestProfileHandler_CreateValidation(t *testing.T) {
	profiles := new(MockProfileManager)

	req := jsonRequest(t, http.MethodPost, "/profiles", map[string]any{"delimiter": ","})
	w := serve(profileRouter(profiles, newIdentity()), req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "name", resp.Error.Details[0].Field)
	profiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProfileHandler_CreateDuplicate(t *testing.T) {
	profiles := new(MockProfileManager)
	profiles.On("Create", mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError("ALREADY_EXISTS", "Import profile \"Supplier A\" already exists"))

	req := jsonRequest(t, http.MethodPost, "/profiles", map[string]any{"name": "Supplier A"})
	w := serve(profileRouter(profiles, newIdentity()), req)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)
}

func TestProfileHandler_CreateInvalidDelimiter(t *testing.T) {
	profiles := new(MockProfileManager)
	profiles.On("Create", mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError("INVALID_DELIMITER", "delimiter must be a single character"))

	req := jsonRequest(t, http.MethodPost, "/profiles", map[string]any{"name": "Broken", "delimiter": "ab"})
	w := serve(profileRouter(profiles, newIdentity()), req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeInvalidProfile, resp.Error.Code)
}

func TestProfileHandler_Get(t *testing.T) {
	id := newIdentity()
	profile := testProfile(t, id.tenant, "Supplier B")
	profiles := new(MockProfileManager)
	profiles.On("Get", mock.Anything, id.tenant, profile.ID).Return(profile, nil)

	w := serve(profileRouter(profiles, id), httptest.NewRequest(http.MethodGet, "/profiles/"+profile.ID.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[dto.ImportProfileResponse](t, w)
	assert.Equal(t, "Supplier B", resp.Data.Name)
	assert.True(t, resp.Data.ColumnMapping.Source(bulk.FieldSKU).Equal(bulk.Single("SKU")))
}

func TestProfileHandler_GetNotFound(t *testing.T) {
	id := newIdentity()
	missing := uuid.New()
	profiles := new(MockProfileManager)
	profiles.On("Get", mock.Anything, id.tenant, missing).Return(nil, shared.ErrNotFound)

	w := serve(profileRouter(profiles, id), httptest.NewRequest(http.MethodGet, "/profiles/"+missing.String(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileHandler_GetInvalidID(t *testing.T) {
	profiles := new(MockProfileManager)

	w := serve(profileRouter(profiles, newIdentity()), httptest.NewRequest(http.MethodGet, "/profiles/abc", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	profiles.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileHandler_List(t *testing.T) {
	id := newIdentity()
	profiles := new(MockProfileManager)
	active := true
	page := shared.Paginated[*bulk.ImportProfile]{
		Items:      []*bulk.ImportProfile{testProfile(t, id.tenant, "A"), testProfile(t, id.tenant, "B")},
		Total:      12,
		Page:       2,
		PageSize:   2,
		TotalPages: 6,
	}
	profiles.On("List", mock.Anything, id.tenant, importapp.ProfileListFilter{
		Search:   "sup",
		IsActive: &active,
		Page:     2,
		PageSize: 2,
	}).Return(page, nil)

	w := serve(profileRouter(profiles, id), httptest.NewRequest(http.MethodGet, "/profiles?search=sup&is_active=true&page=2&page_size=2", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeData[[]dto.ImportProfileResponse](t, w)
	assert.Len(t, resp.Data, 2)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(12), resp.Meta.Total)
	assert.Equal(t, 6, resp.Meta.TotalPages)
	profiles.AssertExpectations(t)
}

func TestProfileHandler_Update(t *testing.T) {
	id := newIdentity()
	profile := testProfile(t, id.tenant, "Renamed")
	profiles := new(MockProfileManager)
	profiles.On("Update", mock.Anything, mock.MatchedBy(func(cmd importapp.UpdateProfileCommand) bool {
		return cmd.TenantID == id.tenant && cmd.ID == profile.ID && cmd.Name == "Renamed" && cmd.Encoding == "gbk"
	})).Return(profile, nil)

	req := jsonRequest(t, http.MethodPut, "/profiles/"+profile.ID.String(), map[string]any{"name": "Renamed", "encoding": "gbk"})
	w := serve(profileRouter(profiles, id), req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	profiles.AssertExpectations(t)
}

func TestProfileHandler_UpdateConflict(t *testing.T) {
	profiles := new(MockProfileManager)
	profiles.On("Update", mock.Anything, mock.Anything).Return(nil, shared.ErrConcurrencyConflict)

	req := jsonRequest(t, http.MethodPut, "/profiles/"+uuid.NewString(), map[string]any{"name": "Renamed"})
	w := serve(profileRouter(profiles, newIdentity()), req)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeConcurrencyConflict, resp.Error.Code)
}

func TestProfileHandler_ActivateDeactivate(t *testing.T) {
	id := newIdentity()
	profile := testProfile(t, id.tenant, "Toggle")
	profiles := new(MockProfileManager)
	profiles.On("Deactivate", mock.Anything, id.tenant, profile.ID).Return(profile, nil)
	profiles.On("Activate", mock.Anything, id.tenant, profile.ID).
		Return(nil, shared.NewDomainError("INVALID_STATE", "Profile is already active"))

	router := profileRouter(profiles, id)

	w := serve(router, httptest.NewRequest(http.MethodPost, "/profiles/"+profile.ID.String()+"/deactivate", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodPost, "/profiles/"+profile.ID.String()+"/activate", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	profiles.AssertExpectations(t)
}

func TestProfileHandler_Delete(t *testing.T) {
	id := newIdentity()
	profileID := uuid.New()
	profiles := new(MockProfileManager)
	profiles.On("Delete", mock.Anything, id.tenant, profileID).Return(nil)

	w := serve(profileRouter(profiles, id), httptest.NewRequest(http.MethodDelete, "/profiles/"+profileID.String(), nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	profiles.AssertExpectations(t)
}
