package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/shared"
	csvimport "github.com/storefront/backend/internal/infrastructure/import"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the RequestID middleware
func getRequestID(c *gin.Context) string {
	if id := c.GetString(logger.GinRequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// getTenantID returns the tenant resolved by the tenant middleware
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	id, err := middleware.GetTenantUUID(c)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, errors.New("tenant ID not found in context")
	}
	return id, nil
}

// getActorID returns the acting user, or nil for anonymous callers
func getActorID(c *gin.Context) *uuid.UUID {
	id := middleware.GetUserUUID(c)
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// tenantAndID resolves the tenant and the :id path parameter, answering the
// request itself when either is missing or malformed.
func (h *BaseHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant is required")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.OK(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.Paged(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.OK(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.Fail(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.HTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindError answers a failed ShouldBind* call, with per-field details when the
// validator produced them. A body cut off by BodyLimit is a 413.
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeFileTooLarge, "Request body exceeds the maximum allowed size")
		return
	}
	if details := middleware.ValidationDetails(err); len(details) > 0 {
		c.JSON(http.StatusBadRequest, dto.Invalid("Request validation failed", getRequestID(c), details))
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request: "+err.Error())
}

// HandleError converts service errors to HTTP responses. Domain and decoder
// errors keep their meaning; anything else is logged and reported as internal.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var fatal *importapp.FatalImportError
	if errors.As(err, &fatal) {
		h.handleFatal(c, fatal)
		return
	}

	if code, msg, ok := classify(err); ok {
		h.ErrorWithCode(c, code, msg)
		return
	}

	logger.GetGinLogger(c).Error("unhandled service error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

// handleFatal reports an aborted run. Input-caused failures keep their own status;
// the history ID is part of the message so operators can find the record.
func (h *BaseHandler) handleFatal(c *gin.Context, fatal *importapp.FatalImportError) {
	prefix := "Import failed"
	if fatal.HistoryID != uuid.Nil {
		prefix = fmt.Sprintf("Import %s failed", fatal.HistoryID)
	}

	if code, msg, ok := classify(fatal.Err); ok {
		h.ErrorWithCode(c, code, fmt.Sprintf("%s: %s", prefix, msg))
		return
	}

	logger.GetGinLogger(c).Error("import aborted",
		zap.String("history_id", fatal.HistoryID.String()),
		zap.String("stage", string(fatal.Stage)),
		zap.Error(fatal.Err),
	)
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeImportFailed, fmt.Sprintf("%s at %s", prefix, fatal.Stage))
}

// classify maps errors whose message is safe to show callers
func classify(err error) (code, message string, ok bool) {
	var domainErr *shared.DomainError
	switch {
	case csvimport.IsDecodeError(err):
		return csvimport.ErrorCode(err), err.Error(), true
	case errors.As(err, &domainErr):
		return domainErr.Code, domainErr.Message, true
	case errors.Is(err, context.DeadlineExceeded):
		return dto.ErrCodeServiceUnavailable, "Request timed out", true
	}
	return "", "", false
}
