package importapp

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/shared"
)

// Row outcomes reported to metrics
const (
	OutcomeSuccessful = "successful"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
)

// RunRecorder receives import run measurements
type RunRecorder interface {
	RecordRun(ctx context.Context, status string, duration time.Duration)
	RecordRows(ctx context.Context, outcome string, count int64)
}

// MetricsHandler turns terminal import events into run and row measurements
type MetricsHandler struct {
	recorder RunRecorder
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(recorder RunRecorder) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

// EventTypes implements shared.EventHandler
func (h *MetricsHandler) EventTypes() []string {
	return []string{bulk.EventTypeImportCompleted, bulk.EventTypeImportFailed}
}

// Handle implements shared.EventHandler
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *bulk.ImportCompletedEvent:
		h.recorder.RecordRun(ctx, string(bulk.ImportStatusCompleted), time.Duration(e.DurationMs)*time.Millisecond)
		h.recorder.RecordRows(ctx, OutcomeSuccessful, int64(e.Stats.Successful))
		h.recorder.RecordRows(ctx, OutcomeFailed, int64(e.Stats.Failed))
		h.recorder.RecordRows(ctx, OutcomeSkipped, int64(e.Stats.Skipped))
	case *bulk.ImportFailedEvent:
		h.recorder.RecordRun(ctx, string(bulk.ImportStatusFailed), time.Duration(e.DurationMs)*time.Millisecond)
	}
	return nil
}
