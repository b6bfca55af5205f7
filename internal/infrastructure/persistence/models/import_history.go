package models

import (
	"time"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/google/uuid"
)

// ImportHistoryModel is the persistence model for the ImportHistory domain entity.
// ProfileID and ImportedBy are weak references without foreign keys.
type ImportHistoryModel struct {
	TenantColumns
	FileName       string            `gorm:"type:varchar(255);not null"`
	ProfileID      *uuid.UUID        `gorm:"type:uuid;index"`
	ImportedBy     *uuid.UUID        `gorm:"type:uuid;index"`
	Status         bulk.ImportStatus `gorm:"type:varchar(20);not null;default:'processing'"`
	TotalRows      int               `gorm:"not null;default:0"`
	SuccessfulRows int               `gorm:"not null;default:0"`
	FailedRows     int               `gorm:"not null;default:0"`
	SkippedRows    int               `gorm:"not null;default:0"`
	ErrorDetails   string            `gorm:"type:jsonb;not null;default:'[]'"`
	ErrorMessage   string            `gorm:"type:text"`
	StartedAt      *time.Time        `gorm:"type:timestamptz"`
	CompletedAt    *time.Time        `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (ImportHistoryModel) TableName() string {
	return "import_histories"
}

// ToDomain converts the persistence model to a domain ImportHistory entity.
func (m *ImportHistoryModel) ToDomain() *bulk.ImportHistory {
	history := &bulk.ImportHistory{
		TenantAggregateRoot: m.root(),
		FileName:            m.FileName,
		ProfileID:           m.ProfileID,
		ImportedByID:        m.ImportedBy,
		Status:              m.Status,
		Stats: bulk.ImportStats{
			Total:      m.TotalRows,
			Successful: m.SuccessfulRows,
			Failed:     m.FailedRows,
			Skipped:    m.SkippedRows,
		},
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}

	// A corrupt error list degrades to an empty one rather than hiding the run
	if err := history.SetErrorDetailsFromJSON(m.ErrorDetails); err != nil {
		history.Stats.Errors = make([]bulk.ImportErrorDetail, 0)
	}
	return history
}

// FromDomain populates the persistence model from a domain ImportHistory entity.
func (m *ImportHistoryModel) FromDomain(h *bulk.ImportHistory) {
	m.TenantColumns = tenantColumnsOf(h.TenantAggregateRoot)
	m.FileName = h.FileName
	m.ProfileID = h.ProfileID
	m.ImportedBy = h.ImportedByID
	m.Status = h.Status
	m.TotalRows = h.Stats.Total
	m.SuccessfulRows = h.Stats.Successful
	m.FailedRows = h.Stats.Failed
	m.SkippedRows = h.Stats.Skipped
	m.ErrorMessage = h.ErrorMessage
	m.StartedAt = h.StartedAt
	m.CompletedAt = h.CompletedAt

	if errorJSON, err := h.ErrorDetailsJSON(); err == nil {
		m.ErrorDetails = errorJSON
	} else {
		m.ErrorDetails = "[]"
	}
}

// ImportHistoryModelFromDomain creates a new persistence model from a domain ImportHistory entity.
func ImportHistoryModelFromDomain(h *bulk.ImportHistory) *ImportHistoryModel {
	m := &ImportHistoryModel{}
	m.FromDomain(h)
	return m
}
