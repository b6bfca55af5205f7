package importapp

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// HistoryService reads run records
type HistoryService struct {
	histories bulk.ImportHistoryRepository
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(histories bulk.ImportHistoryRepository) *HistoryService {
	return &HistoryService{histories: histories}
}

// HistoryFilter narrows a history listing
type HistoryFilter struct {
	Status      string
	ProfileID   *uuid.UUID
	ImportedBy  *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

func (f HistoryFilter) toRepo() (bulk.ImportHistoryFilter, error) {
	out := bulk.ImportHistoryFilter{
		ProfileID:   f.ProfileID,
		ImportedBy:  f.ImportedBy,
		CreatedFrom: f.CreatedFrom,
		CreatedTo:   f.CreatedTo,
	}
	if f.Status != "" {
		status := bulk.ImportStatus(f.Status)
		if !status.IsValid() {
			return out, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown import status %q", f.Status))
		}
		out.Status = &status
	}
	return out, nil
}

// GetHistory lists the runs started by one actor, newest first
func (s *HistoryService) GetHistory(ctx context.Context, tenantID, actorID uuid.UUID, filter HistoryFilter) (*bulk.ImportHistoryListResult, error) {
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Actor ID is required")
	}
	filter.ImportedBy = &actorID
	return s.List(ctx, tenantID, filter)
}

// GetHistoryByID returns one run record
func (s *HistoryService) GetHistoryByID(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportHistory, error) {
	return s.histories.FindByID(ctx, tenantID, id)
}

// List lists the runs of a tenant, newest first
func (s *HistoryService) List(ctx context.Context, tenantID uuid.UUID, filter HistoryFilter) (*bulk.ImportHistoryListResult, error) {
	repoFilter, err := filter.toRepo()
	if err != nil {
		return nil, err
	}
	page, pageSize := shared.NormalizePage(filter.Page, filter.PageSize)
	return s.histories.FindAll(ctx, tenantID, repoFilter, page, pageSize)
}

// ErrorsCSV renders the stored row errors of a run as a "row,message" CSV document
// and a download file name.
func (s *HistoryService) ErrorsCSV(ctx context.Context, tenantID, id uuid.UUID) ([]byte, string, error) {
	history, err := s.histories.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"row", "message"}); err != nil {
		return nil, "", err
	}
	for _, e := range history.Stats.Errors {
		if err := w.Write([]string{strconv.Itoa(e.Row), e.Message}); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("render errors csv: %w", err)
	}

	fileName := fmt.Sprintf("import_errors_%s.csv", history.ID.String()[:8])
	return buf.Bytes(), fileName, nil
}
