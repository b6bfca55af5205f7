package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/shared"
	csvimport "github.com/storefront/backend/internal/infrastructure/import"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from context",
			setup: func(c *gin.Context) {
				c.Set(logger.GinRequestIDKey, "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(c *gin.Context) {
				c.Request.Header.Set(middleware.RequestIDHeader, "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set(logger.GinRequestIDKey, "ctx-id")
				c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext()
			tt.setup(c)
			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestGetTenantAndActor(t *testing.T) {
	c, _ := newTestContext()
	_, err := getTenantID(c)
	assert.Error(t, err)
	assert.Nil(t, getActorID(c))

	tenant := uuid.New()
	user := uuid.New()
	c.Set(middleware.TenantIDKey, tenant.String())
	c.Set(middleware.UserIDKey, user.String())

	got, err := getTenantID(c)
	require.NoError(t, err)
	assert.Equal(t, tenant, got)
	require.NotNil(t, getActorID(c))
	assert.Equal(t, user, *getActorID(c))
}

func TestBaseHandler_Success(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Success(c, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandler_SuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.SuccessWithMeta(c, []string{"a", "b"}, 45, 2, 20)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestBaseHandler_CreatedAndNoContent(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext()
	h.Created(c, gin.H{"id": "1"})
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newTestContext()
	h.NoContent(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestBaseHandler_ErrorIncludesRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()
	c.Set(logger.GinRequestIDKey, "req-7")

	h.BadRequest(c, "bad")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	assert.Equal(t, "req-7", resp.Error.RequestID)
}

func TestBaseHandler_HandleError(t *testing.T) {
	historyID := uuid.New()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:       "not found",
			err:        shared.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
		},
		{
			name:        "domain error keeps message",
			err:         shared.NewDomainError("INVALID_DELIMITER", "delimiter must be a single character"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    dto.ErrCodeInvalidProfile,
			wantMessage: "delimiter must be a single character",
		},
		{
			name:       "inactive profile",
			err:        shared.NewDomainError("INVALID_STATE", "Profile is inactive"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeInvalidState,
		},
		{
			name:       "wrapped decoder error",
			err:        fmt.Errorf("decode: %w", csvimport.ErrEmptyFile),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   csvimport.ErrCodeImportEmptyFile,
		},
		{
			name:       "unsupported format",
			err:        csvimport.ErrUnsupportedFormat,
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   dto.ErrCodeUnsupportedFormat,
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   dto.ErrCodeServiceUnavailable,
		},
		{
			name:        "unknown error hides details",
			err:         errors.New("pq: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    dto.ErrCodeInternal,
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "fatal decode error keeps input status",
			err:         &importapp.FatalImportError{HistoryID: historyID, Stage: importapp.StageDecode, Err: csvimport.ErrMissingHeader},
			wantStatus:  http.StatusUnprocessableEntity,
			wantCode:    csvimport.ErrCodeImportMissingHeader,
			wantMessage: fmt.Sprintf("Import %s failed: %s", historyID, csvimport.ErrMissingHeader.Error()),
		},
		{
			name:        "fatal store error",
			err:         &importapp.FatalImportError{HistoryID: historyID, Stage: importapp.StageStore, Err: errors.New("disk full")},
			wantStatus:  http.StatusInternalServerError,
			wantCode:    dto.ErrCodeImportFailed,
			wantMessage: fmt.Sprintf("Import %s failed at store", historyID),
		},
		{
			name:        "fatal without history",
			err:         &importapp.FatalImportError{Stage: importapp.StageHistory, Err: errors.New("insert failed")},
			wantStatus:  http.StatusInternalServerError,
			wantCode:    dto.ErrCodeImportFailed,
			wantMessage: "Import failed at history",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, resp.Error.Message)
			}
			assert.Len(t, c.Errors, 1)
		})
	}
}

func TestBaseHandler_HandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, nil)

	assert.Empty(t, w.Body.String())
	assert.Empty(t, c.Errors)
}

func TestBaseHandler_BindError(t *testing.T) {
	router := gin.New()
	h := &BaseHandler{}
	router.POST("/bind", func(c *gin.Context) {
		var req dto.ImportStorageRunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("validation details", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/bind", jsonBody(t, map[string]string{"profile_id": "x"}))
		req.Header.Set("Content-Type", "application/json")
		w := serve(router, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Len(t, resp.Error.Details, 2)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/bind", jsonBody(t, "not-an-object"))
		req.Header.Set("Content-Type", "application/json")
		w := serve(router, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	})
}
