package dto

import (
	"time"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/google/uuid"
)

// DateLayout is the layout accepted by date-only query filters
const DateLayout = "2006-01-02"

// ImportPreviewRequest carries the form fields that accompany a preview upload.
// Mapping is a JSON object of canonical field to column name or column list.
type ImportPreviewRequest struct {
	ProfileID string `form:"profile_id" binding:"omitempty,uuid"`
	Mapping   string `form:"mapping"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ImportRunRequest carries the form fields that accompany a run upload
type ImportRunRequest struct {
	ProfileID string `form:"profile_id" binding:"required,uuid"`
}

// ImportStorageRunRequest starts a run over an object already in the import bucket
type ImportStorageRunRequest struct {
	ProfileID string `json:"profile_id" binding:"required,uuid"`
	Key       string `json:"key" binding:"required,max=1024"`
}

// ImportProfileRequest creates or replaces an import profile
type ImportProfileRequest struct {
	Name            string                `json:"name" binding:"required,max=200"`
	Delimiter       string                `json:"delimiter" binding:"max=5"`
	Encoding        string                `json:"encoding" binding:"max=32"`
	HasHeader       *bool                 `json:"has_header"`
	ColumnMapping   bulk.CanonicalMapping `json:"column_mapping"`
	Transformations bulk.Transformations  `json:"transformations"`
	ValidationRules bulk.ValidationRules  `json:"validation_rules"`
}

// ImportProfileListRequest filters the profile listing
type ImportProfileListRequest struct {
	Search   string `form:"search" binding:"max=100"`
	IsActive *bool  `form:"is_active"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ImportHistoryListRequest filters the run history listing.
// Mine restricts the listing to runs started by the calling user.
type ImportHistoryListRequest struct {
	Mine        bool   `form:"mine"`
	Status      string `form:"status" binding:"omitempty,oneof=pending processing completed failed"`
	ProfileID   string `form:"profile_id" binding:"omitempty,uuid"`
	ImportedBy  string `form:"imported_by" binding:"omitempty,uuid"`
	CreatedFrom string `form:"created_from"`
	CreatedTo   string `form:"created_to"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ImportProfileResponse represents an import profile in API responses
type ImportProfileResponse struct {
	ID              uuid.UUID             `json:"id"`
	Name            string                `json:"name"`
	Delimiter       string                `json:"delimiter"`
	Encoding        string                `json:"encoding"`
	HasHeader       bool                  `json:"has_header"`
	ColumnMapping   bulk.CanonicalMapping `json:"column_mapping"`
	Transformations bulk.Transformations  `json:"transformations"`
	ValidationRules bulk.ValidationRules  `json:"validation_rules"`
	IsActive        bool                  `json:"is_active"`
	CreatedBy       *uuid.UUID            `json:"created_by,omitempty"`
	Version         int                   `json:"version"`
	TimestampResponse
}

// NewImportProfileResponse converts a profile
func NewImportProfileResponse(p *bulk.ImportProfile) ImportProfileResponse {
	mapping := p.ColumnMapping
	if mapping == nil {
		mapping = bulk.NewCanonicalMapping()
	}
	return ImportProfileResponse{
		ID:              p.ID,
		Name:            p.Name,
		Delimiter:       p.Delimiter,
		Encoding:        p.Encoding,
		HasHeader:       p.HasHeader,
		ColumnMapping:   mapping,
		Transformations: p.Transformations,
		ValidationRules: p.ValidationRules,
		IsActive:        p.IsActive,
		CreatedBy:       p.CreatedBy,
		Version:         p.Version,
		TimestampResponse: TimestampResponse{
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
	}
}

// NewImportProfileListResponse converts a page of profiles
func NewImportProfileListResponse(items []*bulk.ImportProfile) []ImportProfileResponse {
	out := make([]ImportProfileResponse, 0, len(items))
	for _, p := range items {
		out = append(out, NewImportProfileResponse(p))
	}
	return out
}

// ImportHistoryResponse represents one run record in API responses.
// UpdatedRows mirrors SkippedRows.
type ImportHistoryResponse struct {
	ID             uuid.UUID                `json:"id"`
	FileName       string                   `json:"file_name"`
	ProfileID      *uuid.UUID               `json:"profile_id,omitempty"`
	ImportedBy     *uuid.UUID               `json:"imported_by,omitempty"`
	Status         string                   `json:"status"`
	TotalRows      int                      `json:"total_rows"`
	SuccessfulRows int                      `json:"successful_rows"`
	FailedRows     int                      `json:"failed_rows"`
	SkippedRows    int                      `json:"skipped_rows"`
	UpdatedRows    int                      `json:"updated_rows"`
	Errors         []bulk.ImportErrorDetail `json:"errors"`
	ErrorMessage   string                   `json:"error_message,omitempty"`
	StartedAt      *time.Time               `json:"started_at,omitempty"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`
	DurationMS     int64                    `json:"duration_ms"`
	CreatedAt      time.Time                `json:"created_at"`
}

// NewImportHistoryResponse converts a run record
func NewImportHistoryResponse(h *bulk.ImportHistory) ImportHistoryResponse {
	errs := h.Stats.Errors
	if errs == nil {
		errs = make([]bulk.ImportErrorDetail, 0)
	}
	return ImportHistoryResponse{
		ID:             h.ID,
		FileName:       h.FileName,
		ProfileID:      h.ProfileID,
		ImportedBy:     h.ImportedByID,
		Status:         string(h.Status),
		TotalRows:      h.Stats.Total,
		SuccessfulRows: h.Stats.Successful,
		FailedRows:     h.Stats.Failed,
		SkippedRows:    h.Stats.Skipped,
		UpdatedRows:    h.Stats.Skipped,
		Errors:         errs,
		ErrorMessage:   h.ErrorMessage,
		StartedAt:      h.StartedAt,
		CompletedAt:    h.CompletedAt,
		DurationMS:     h.Duration().Milliseconds(),
		CreatedAt:      h.CreatedAt,
	}
}

// ImportHistoryListResponse is a page of run records
type ImportHistoryListResponse struct {
	Items      []ImportHistoryResponse `json:"items"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"page_size"`
	TotalPages int                     `json:"total_pages"`
}

// NewImportHistoryListResponse converts a repository page
func NewImportHistoryListResponse(result *bulk.ImportHistoryListResult) ImportHistoryListResponse {
	items := make([]ImportHistoryResponse, 0, len(result.Items))
	for _, h := range result.Items {
		items = append(items, NewImportHistoryResponse(h))
	}
	totalPages := 0
	if result.PageSize > 0 {
		totalPages = int((result.TotalCount + int64(result.PageSize) - 1) / int64(result.PageSize))
	}
	return ImportHistoryListResponse{
		Items:      items,
		Total:      result.TotalCount,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: totalPages,
	}
}
