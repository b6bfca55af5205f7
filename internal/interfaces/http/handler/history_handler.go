package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HistoryReader reads import run records
type HistoryReader interface {
	GetHistory(ctx context.Context, tenantID, actorID uuid.UUID, filter importapp.HistoryFilter) (*bulk.ImportHistoryListResult, error)
	GetHistoryByID(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportHistory, error)
	List(ctx context.Context, tenantID uuid.UUID, filter importapp.HistoryFilter) (*bulk.ImportHistoryListResult, error)
	ErrorsCSV(ctx context.Context, tenantID, id uuid.UUID) ([]byte, string, error)
}

// HistoryHandler handles import history endpoints
type HistoryHandler struct {
	BaseHandler
	histories HistoryReader
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(histories HistoryReader) *HistoryHandler {
	return &HistoryHandler{histories: histories}
}

// List handles GET /api/v1/imports/history.
// With mine=true only runs started by the calling user are listed.
func (h *HistoryHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant is required")
		return
	}

	var req dto.ImportHistoryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	filter, err := historyFilter(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var result *bulk.ImportHistoryListResult
	if req.Mine {
		actor := getActorID(c)
		if actor == nil {
			h.BadRequest(c, "mine=true requires a user")
			return
		}
		result, err = h.histories.GetHistory(c.Request.Context(), tenantID, *actor, filter)
	} else {
		result, err = h.histories.List(c.Request.Context(), tenantID, filter)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewImportHistoryListResponse(result))
}

// Get handles GET /api/v1/imports/history/:id
func (h *HistoryHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	history, err := h.histories.GetHistoryByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewImportHistoryResponse(history))
}

// DownloadErrors handles GET /api/v1/imports/history/:id/errors.csv
func (h *HistoryHandler) DownloadErrors(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	content, fileName, err := h.histories.ErrorsCSV(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", content)
}

func historyFilter(req dto.ImportHistoryListRequest) (importapp.HistoryFilter, error) {
	filter := importapp.HistoryFilter{
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.ProfileID != "" {
		id, _ := uuid.Parse(req.ProfileID)
		filter.ProfileID = &id
	}
	if req.ImportedBy != "" {
		id, _ := uuid.Parse(req.ImportedBy)
		filter.ImportedBy = &id
	}
	if req.CreatedFrom != "" {
		from, err := time.Parse(dto.DateLayout, req.CreatedFrom)
		if err != nil {
			return filter, fmt.Errorf("created_from must be formatted as %s", dto.DateLayout)
		}
		filter.CreatedFrom = &from
	}
	if req.CreatedTo != "" {
		to, err := time.Parse(dto.DateLayout, req.CreatedTo)
		if err != nil {
			return filter, fmt.Errorf("created_to must be formatted as %s", dto.DateLayout)
		}
		// inclusive of the whole day
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.CreatedTo = &to
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedTo.Before(*filter.CreatedFrom) {
		return filter, fmt.Errorf("created_to must not be before created_from")
	}
	return filter, nil
}
