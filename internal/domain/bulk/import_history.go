package bulk

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxErrorDetails caps the row errors persisted with a run
const MaxErrorDetails = 100

// ImportStatus represents the status of an import run
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// IsValid checks if the status is valid
func (s ImportStatus) IsValid() bool {
	switch s {
	case ImportStatusPending, ImportStatusProcessing, ImportStatusCompleted, ImportStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}

// ImportErrorDetail is one row-level failure
type ImportErrorDetail struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportStats are the counters of a run.
// Skipped counts rows that matched an existing product by SKU and updated it.
type ImportStats struct {
	Total      int                 `json:"total"`
	Successful int                 `json:"successful"`
	Failed     int                 `json:"failed"`
	Skipped    int                 `json:"skipped"`
	Errors     []ImportErrorDetail `json:"errors"`
}

// Balanced reports whether total equals successful + failed + skipped
func (s ImportStats) Balanced() bool {
	return s.Total == s.Successful+s.Failed+s.Skipped
}

// ImportHistory is the audit record of one import run
type ImportHistory struct {
	shared.TenantAggregateRoot
	FileName     string
	ProfileID    *uuid.UUID
	ImportedByID *uuid.UUID
	Status       ImportStatus
	Stats        ImportStats
	ErrorMessage string
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// NewImportHistory creates a run record already in processing state.
// Profile and actor are weak references and may be nil.
func NewImportHistory(tenantID uuid.UUID, profileID, importedBy *uuid.UUID, fileName string) (*ImportHistory, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}

	root := shared.NewTenantAggregateRoot(tenantID, importedBy)
	now := root.CreatedAt
	h := &ImportHistory{
		TenantAggregateRoot: root,
		FileName:            fileName,
		ProfileID:           copyID(profileID),
		ImportedByID:        copyID(importedBy),
		Status:              ImportStatusProcessing,
		Stats:               ImportStats{Errors: make([]ImportErrorDetail, 0)},
		StartedAt:           &now,
	}
	return h, nil
}

// Complete finalizes a run that reached per-row processing
func (h *ImportHistory) Complete(stats ImportStats) error {
	if h.Status != ImportStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete from state: %s", h.Status))
	}
	if !stats.Balanced() {
		return shared.NewDomainError("INVALID_STATS", fmt.Sprintf(
			"Total %d does not equal successful %d + failed %d + skipped %d",
			stats.Total, stats.Successful, stats.Failed, stats.Skipped))
	}
	if len(stats.Errors) > MaxErrorDetails {
		stats.Errors = stats.Errors[:MaxErrorDetails]
	}
	if stats.Errors == nil {
		stats.Errors = make([]ImportErrorDetail, 0)
	}

	h.Status = ImportStatusCompleted
	h.Stats = stats
	h.finish()
	h.Raise(NewImportCompletedEvent(h))
	return nil
}

// Fail marks the run as failed at job level
func (h *ImportHistory) Fail(message string) error {
	if h.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail from terminal state: %s", h.Status))
	}
	if strings.TrimSpace(message) == "" {
		message = "import failed"
	}

	h.Status = ImportStatusFailed
	h.ErrorMessage = message
	h.finish()
	h.Raise(NewImportFailedEvent(h))
	return nil
}

func (h *ImportHistory) finish() {
	now := time.Now()
	h.CompletedAt = &now
	h.UpdatedAt = now
	h.IncrementVersion()
}

// IsCompleted returns true if the run completed
func (h *ImportHistory) IsCompleted() bool {
	return h.Status == ImportStatusCompleted
}

// IsFailed returns true if the run failed at job level
func (h *ImportHistory) IsFailed() bool {
	return h.Status == ImportStatusFailed
}

// HasErrors returns true if any row-level error was recorded
func (h *ImportHistory) HasErrors() bool {
	return len(h.Stats.Errors) > 0
}

// ErrorDetailsJSON returns the row errors as a JSON string
func (h *ImportHistory) ErrorDetailsJSON() (string, error) {
	if len(h.Stats.Errors) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(h.Stats.Errors)
	if err != nil {
		return "", fmt.Errorf("failed to marshal error details: %w", err)
	}
	return string(data), nil
}

// SetErrorDetailsFromJSON parses row errors from a JSON string
func (h *ImportHistory) SetErrorDetailsFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" || jsonStr == "null" {
		h.Stats.Errors = make([]ImportErrorDetail, 0)
		return nil
	}
	var details []ImportErrorDetail
	if err := json.Unmarshal([]byte(jsonStr), &details); err != nil {
		return fmt.Errorf("failed to unmarshal error details: %w", err)
	}
	h.Stats.Errors = details
	return nil
}

// Duration returns how long the run took, or has been running
func (h *ImportHistory) Duration() time.Duration {
	if h.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if h.CompletedAt != nil {
		end = *h.CompletedAt
	}
	return end.Sub(*h.StartedAt)
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	v := *id
	return &v
}
