package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxUploadSize bounds an uploaded import file when no limit is configured
const DefaultMaxUploadSize int64 = 10 << 20

// ImportRunner previews and runs catalog imports
type ImportRunner interface {
	Preview(ctx context.Context, cmd importapp.PreviewCommand) (*importapp.PreviewResult, error)
	Run(ctx context.Context, cmd importapp.RunCommand) (*importapp.RunResult, error)
	RunFromStorage(ctx context.Context, cmd importapp.StorageRunCommand) (*importapp.RunResult, error)
}

// ImportHandler handles preview and run uploads
type ImportHandler struct {
	BaseHandler
	imports       ImportRunner
	maxUploadSize int64
}

// NewImportHandler creates a new ImportHandler. A non-positive maxUploadSize
// falls back to DefaultMaxUploadSize.
func NewImportHandler(imports ImportRunner, maxUploadSize int64) *ImportHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &ImportHandler{imports: imports, maxUploadSize: maxUploadSize}
}

// Preview decodes an uploaded file and reports the first rows as they would import.
// POST /api/v1/imports/preview (multipart: file, profile_id?, mapping?, limit?)
func (h *ImportHandler) Preview(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant is required")
		return
	}

	var req dto.ImportPreviewRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}

	cmd := importapp.PreviewCommand{TenantID: tenantID, Limit: req.Limit}
	if req.ProfileID != "" {
		id, _ := uuid.Parse(req.ProfileID)
		cmd.ProfileID = &id
	}
	if req.Mapping != "" {
		mapping, err := parseMapping(req.Mapping)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidMapping, err.Error())
			return
		}
		cmd.Mapping = mapping
	}

	fileName, content, ok := h.readUpload(c)
	if !ok {
		return
	}
	cmd.FileName = fileName
	cmd.Content = content

	result, err := h.imports.Preview(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Run imports an uploaded file with a stored profile.
// POST /api/v1/imports/run (multipart: file, profile_id)
func (h *ImportHandler) Run(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant is required")
		return
	}

	var req dto.ImportRunRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	profileID, _ := uuid.Parse(req.ProfileID)

	fileName, content, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.imports.Run(c.Request.Context(), importapp.RunCommand{
		TenantID:  tenantID,
		ActorID:   getActorID(c),
		ProfileID: profileID,
		FileName:  fileName,
		Content:   content,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.GetGinLogger(c).Info("import run finished",
		zap.String("history_id", result.HistoryID.String()),
		zap.String("status", string(result.Status)),
		zap.Int("successful", result.Stats.Successful),
		zap.Int("failed", result.Stats.Failed),
	)
	h.Success(c, result)
}

// RunFromStorage imports an object that was uploaded to the import bucket.
// POST /api/v1/imports/run-from-storage
func (h *ImportHandler) RunFromStorage(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant is required")
		return
	}

	var req dto.ImportStorageRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	profileID, _ := uuid.Parse(req.ProfileID)

	result, err := h.imports.RunFromStorage(c.Request.Context(), importapp.StorageRunCommand{
		TenantID:  tenantID,
		ActorID:   getActorID(c),
		ProfileID: profileID,
		Key:       req.Key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// readUpload reads the "file" form part. It answers the request itself and
// returns ok=false when the part is missing, too large or unreadable.
func (h *ImportHandler) readUpload(c *gin.Context) (string, []byte, bool) {
	tooLarge := fmt.Sprintf("File exceeds the maximum size of %d bytes", h.maxUploadSize)
	header, err := c.FormFile("file")
	if middleware.IsBodyTooLarge(err) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeFileTooLarge, tooLarge)
		return "", nil, false
	}
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationRequired, "A file upload named \"file\" is required")
		return "", nil, false
	}
	if header.Size > h.maxUploadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeFileTooLarge, tooLarge)
		return "", nil, false
	}

	content, err := readPart(header, h.maxUploadSize)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeFileTooLarge, tooLarge)
			return "", nil, false
		}
		logger.GetGinLogger(c).Warn("failed to read upload", zap.String("file_name", header.Filename), zap.Error(err))
		h.BadRequest(c, "Failed to read uploaded file")
		return "", nil, false
	}
	return header.Filename, content, true
}

var errUploadTooLarge = errors.New("upload exceeds limit")

func readPart(header *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, errUploadTooLarge
	}
	return content, nil
}

// parseMapping decodes a mapping form value such as {"sku":"Item Code","name":["Brand","Model"]}
func parseMapping(raw string) (bulk.CanonicalMapping, error) {
	var mapping bulk.CanonicalMapping
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, fmt.Errorf("mapping must be a JSON object of field to column: %v", err)
	}
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	return mapping, nil
}
