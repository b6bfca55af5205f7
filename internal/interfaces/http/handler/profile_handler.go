package handler

import (
	"context"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProfileManager stores and edits import profiles
type ProfileManager interface {
	Create(ctx context.Context, cmd importapp.CreateProfileCommand) (*bulk.ImportProfile, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportProfile, error)
	List(ctx context.Context, tenantID uuid.UUID, filter importapp.ProfileListFilter) (shared.Paginated[*bulk.ImportProfile], error)
	Update(ctx context.Context, cmd importapp.UpdateProfileCommand) (*bulk.ImportProfile, error)
	Activate(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportProfile, error)
	Deactivate(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportProfile, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// ProfileHandler handles import profile endpoints
type ProfileHandler struct {
	BaseHandler
	profiles ProfileManager
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profiles ProfileManager) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Create handles POST /api/v1/imports/profiles
func (h *ProfileHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant is required")
		return
	}

	var req dto.ImportProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	cmd := importapp.CreateProfileCommand{TenantID: tenantID, ProfileInput: profileInput(req)}
	if actor := getActorID(c); actor != nil {
		cmd.ActorID = *actor
	}

	profile, err := h.profiles.Create(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewImportProfileResponse(profile))
}

// Get handles GET /api/v1/imports/profiles/:id
func (h *ProfileHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewImportProfileResponse(profile))
}

// List handles GET /api/v1/imports/profiles
func (h *ProfileHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant is required")
		return
	}

	var req dto.ImportProfileListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.profiles.List(c.Request.Context(), tenantID, importapp.ProfileListFilter{
		Search:   req.Search,
		IsActive: req.IsActive,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.NewImportProfileListResponse(page.Items), page.Total, page.Page, page.PageSize)
}

// Update handles PUT /api/v1/imports/profiles/:id
func (h *ProfileHandler) Update(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req dto.ImportProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), importapp.UpdateProfileCommand{
		TenantID:     tenantID,
		ID:           id,
		ProfileInput: profileInput(req),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewImportProfileResponse(profile))
}

// Activate handles POST /api/v1/imports/profiles/:id/activate
func (h *ProfileHandler) Activate(c *gin.Context) {
	h.transition(c, h.profiles.Activate)
}

// Deactivate handles POST /api/v1/imports/profiles/:id/deactivate
func (h *ProfileHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.profiles.Deactivate)
}

// Delete handles DELETE /api/v1/imports/profiles/:id
func (h *ProfileHandler) Delete(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	if err := h.profiles.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *ProfileHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID, uuid.UUID) (*bulk.ImportProfile, error)) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	profile, err := fn(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewImportProfileResponse(profile))
}

func profileInput(req dto.ImportProfileRequest) importapp.ProfileInput {
	return importapp.ProfileInput{
		Name:            req.Name,
		Delimiter:       req.Delimiter,
		Encoding:        req.Encoding,
		HasHeader:       req.HasHeader,
		ColumnMapping:   req.ColumnMapping,
		Transformations: req.Transformations,
		ValidationRules: req.ValidationRules,
	}
}
