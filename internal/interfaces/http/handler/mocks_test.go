package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockImportRunner is a mock implementation of ImportRunner
type MockImportRunner struct {
	mock.Mock
}

func (m *MockImportRunner) Preview(ctx context.Context, cmd importapp.PreviewCommand) (*importapp.PreviewResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.PreviewResult), args.Error(1)
}

func (m *MockImportRunner) Run(ctx context.Context, cmd importapp.RunCommand) (*importapp.RunResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.RunResult), args.Error(1)
}

func (m *MockImportRunner) RunFromStorage(ctx context.Context, cmd importapp.StorageRunCommand) (*importapp.RunResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.RunResult), args.Error(1)
}

// MockProfileManager is a mock implementation of ProfileManager
type MockProfileManager struct {
	mock.Mock
}

func (m *MockProfileManager) Create(ctx context.Context, cmd importapp.CreateProfileCommand) (*bulk.ImportProfile, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportProfile), args.Error(1)
}

func (m *MockProfileManager) Get(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportProfile, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportProfile), args.Error(1)
}

func (m *MockProfileManager) List(ctx context.Context, tenantID uuid.UUID, filter importapp.ProfileListFilter) (shared.Paginated[*bulk.ImportProfile], error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(shared.Paginated[*bulk.ImportProfile]), args.Error(1)
}

func (m *MockProfileManager) Update(ctx context.Context, cmd importapp.UpdateProfileCommand) (*bulk.ImportProfile, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportProfile), args.Error(1)
}

func (m *MockProfileManager) Activate(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportProfile, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportProfile), args.Error(1)
}

func (m *MockProfileManager) Deactivate(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportProfile, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportProfile), args.Error(1)
}

func (m *MockProfileManager) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockHistoryReader is a mock implementation of HistoryReader
type MockHistoryReader struct {
	mock.Mock
}

func (m *MockHistoryReader) GetHistory(ctx context.Context, tenantID, actorID uuid.UUID, filter importapp.HistoryFilter) (*bulk.ImportHistoryListResult, error) {
	args := m.Called(ctx, tenantID, actorID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportHistoryListResult), args.Error(1)
}

func (m *MockHistoryReader) GetHistoryByID(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportHistory, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportHistory), args.Error(1)
}

func (m *MockHistoryReader) List(ctx context.Context, tenantID uuid.UUID, filter importapp.HistoryFilter) (*bulk.ImportHistoryListResult, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportHistoryListResult), args.Error(1)
}

func (m *MockHistoryReader) ErrorsCSV(ctx context.Context, tenantID, id uuid.UUID) ([]byte, string, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

// identity is the caller a test request is made as. A zero user is anonymous.
type identity struct {
	tenant uuid.UUID
	user   uuid.UUID
}

// withIdentity mimics the tenant middleware for handler-level tests
func withIdentity(id identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id.tenant != uuid.Nil {
			c.Set(middleware.TenantIDKey, id.tenant.String())
		}
		if id.user != uuid.Nil {
			c.Set(middleware.UserIDKey, id.user.String())
		}
		c.Next()
	}
}

func newIdentity() identity {
	return identity{tenant: uuid.New(), user: uuid.New()}
}

// multipartBody builds a multipart form with an optional file part
func multipartBody(t *testing.T, fileName string, content []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) dto.Envelope[T] {
	t.Helper()
	var resp dto.Envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func testProfile(t *testing.T, tenantID uuid.UUID, name string) *bulk.ImportProfile {
	t.Helper()
	p, err := bulk.NewImportProfile(tenantID, uuid.New(), name, bulk.ProfileSettings{
		HasHeader:     true,
		ColumnMapping: bulk.CanonicalMapping{bulk.FieldSKU: bulk.Single("SKU")},
	})
	require.NoError(t, err)
	return p
}

func testHistory(t *testing.T, tenantID uuid.UUID) *bulk.ImportHistory {
	t.Helper()
	h, err := bulk.NewImportHistory(tenantID, nil, nil, "catalog.csv")
	require.NoError(t, err)
	require.NoError(t, h.Complete(bulk.ImportStats{
		Total:      3,
		Successful: 1,
		Failed:     1,
		Skipped:    1,
		Errors:     []bulk.ImportErrorDetail{{Row: 3, Message: "Missing required field: sku"}},
	}))
	return h
}
