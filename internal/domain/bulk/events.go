package bulk

import (
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	EventTypeImportCompleted = "ImportCompleted"
	EventTypeImportFailed    = "ImportFailed"
)

// ImportCompletedEvent is raised when a run finishes per-row processing
type ImportCompletedEvent struct {
	shared.EventHeader
	FileName   string      `json:"file_name"`
	ProfileID  *uuid.UUID  `json:"profile_id,omitempty"`
	Stats      ImportStats `json:"stats"`
	DurationMs int64       `json:"duration_ms"`
}

// NewImportCompletedEvent builds the event from a completed record
func NewImportCompletedEvent(h *ImportHistory) *ImportCompletedEvent {
	return &ImportCompletedEvent{
		EventHeader: shared.NewEventHeader(EventTypeImportCompleted, h.ID, h.TenantID),
		FileName:        h.FileName,
		ProfileID:       h.ProfileID,
		Stats:           h.Stats,
		DurationMs:      h.Duration().Milliseconds(),
	}
}

// ImportFailedEvent is raised when a run aborts at job level
type ImportFailedEvent struct {
	shared.EventHeader
	FileName     string     `json:"file_name"`
	ProfileID    *uuid.UUID `json:"profile_id,omitempty"`
	ErrorMessage string     `json:"error_message"`
	DurationMs   int64      `json:"duration_ms"`
}

// NewImportFailedEvent builds the event from a failed record
func NewImportFailedEvent(h *ImportHistory) *ImportFailedEvent {
	return &ImportFailedEvent{
		EventHeader: shared.NewEventHeader(EventTypeImportFailed, h.ID, h.TenantID),
		FileName:        h.FileName,
		ProfileID:       h.ProfileID,
		ErrorMessage:    h.ErrorMessage,
		DurationMs:      h.Duration().Milliseconds(),
	}
}
