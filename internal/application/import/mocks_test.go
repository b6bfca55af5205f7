package importapp

import (
	"context"
	"sync"
	"testing"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockImportProfileRepository is a mock implementation of ImportProfileRepository
type MockImportProfileRepository struct {
	mock.Mock
}

func (m *MockImportProfileRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportProfile, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportProfile), args.Error(1)
}

func (m *MockImportProfileRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*bulk.ImportProfile, error) {
	args := m.Called(ctx, tenantID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportProfile), args.Error(1)
}

func (m *MockImportProfileRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter bulk.ImportProfileFilter, page, pageSize int) ([]*bulk.ImportProfile, int64, error) {
	args := m.Called(ctx, tenantID, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*bulk.ImportProfile), args.Get(1).(int64), args.Error(2)
}

func (m *MockImportProfileRepository) Save(ctx context.Context, profile *bulk.ImportProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockImportProfileRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockImportHistoryRepository is a mock implementation of ImportHistoryRepository
type MockImportHistoryRepository struct {
	mock.Mock
}

func (m *MockImportHistoryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportHistory, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportHistory), args.Error(1)
}

func (m *MockImportHistoryRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter bulk.ImportHistoryFilter, page, pageSize int) (*bulk.ImportHistoryListResult, error) {
	args := m.Called(ctx, tenantID, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportHistoryListResult), args.Error(1)
}

func (m *MockImportHistoryRepository) Save(ctx context.Context, history *bulk.ImportHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

// savedHistories records the status of every saved history snapshot
type savedHistories struct {
	mu       sync.Mutex
	statuses []bulk.ImportStatus
	last     *bulk.ImportHistory
}

func (s *savedHistories) record(args mock.Arguments) {
	h := args.Get(1).(*bulk.ImportHistory)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, h.Status)
	s.last = h
}

func (s *savedHistories) Statuses() []bulk.ImportStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bulk.ImportStatus(nil), s.statuses...)
}

func (s *savedHistories) Last() *bulk.ImportHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func expectHistorySaves(repo *MockImportHistoryRepository) *savedHistories {
	saved := &savedHistories{}
	repo.On("Save", mock.Anything, mock.AnythingOfType("*bulk.ImportHistory")).Run(saved.record).Return(nil)
	return saved
}

// memoryProducts is an in-memory catalog keyed by tenant and SKU
type memoryProducts struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*catalog.Product
	bySKU   map[string]*catalog.Product
	findErr error
	onSave  func(*catalog.Product) error
}

func newMemoryProducts() *memoryProducts {
	return &memoryProducts{
		byID:  make(map[uuid.UUID]*catalog.Product),
		bySKU: make(map[string]*catalog.Product),
	}
}

func (r *memoryProducts) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return clone(p), nil
}

func (r *memoryProducts) FindBySKU(_ context.Context, tenantID uuid.UUID, sku string) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	p, ok := r.bySKU[SKULockKey(tenantID, sku)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return clone(p), nil
}

func (r *memoryProducts) Save(_ context.Context, product *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onSave != nil {
		if err := r.onSave(product); err != nil {
			return err
		}
	}
	stored := clone(product)
	r.byID[stored.ID] = stored
	if stored.SKU != "" {
		r.bySKU[SKULockKey(stored.TenantID, stored.SKU)] = stored
	}
	return nil
}

func (r *memoryProducts) CountForTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.byID {
		if p.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (r *memoryProducts) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *memoryProducts) bySKUFor(t *testing.T, tenantID uuid.UUID, sku string) *catalog.Product {
	t.Helper()
	p, err := r.FindBySKU(context.Background(), tenantID, sku)
	require.NoError(t, err)
	return p
}

func clone(p *catalog.Product) *catalog.Product {
	c := *p
	c.Images = append([]string(nil), p.Images...)
	return &c
}

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type memoryFiles map[string][]byte

func (f memoryFiles) Fetch(_ context.Context, key string) ([]byte, error) {
	content, ok := f[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return content, nil
}

func newTestProfile(t *testing.T, tenantID uuid.UUID, mutate func(*bulk.ProfileSettings)) *bulk.ImportProfile {
	t.Helper()
	settings := bulk.ProfileSettings{
		Delimiter:       ",",
		Encoding:        "utf-8",
		HasHeader:       true,
		ValidationRules: bulk.ValidationRules{DefaultCurrency: "UAH"},
	}
	if mutate != nil {
		mutate(&settings)
	}
	profile, err := bulk.NewImportProfile(tenantID, uuid.New(), "Vendor A", settings)
	require.NoError(t, err)
	return profile
}
