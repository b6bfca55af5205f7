package event

import (
	"context"

	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes every import run event to the log as a JSON payload,
// giving operators a greppable trail of run outcomes next to the history table.
type AuditLogHandler struct {
	codec  *Codec
	logger *zap.Logger
}

// NewAuditLogHandler subscribes to the event types codec knows.
func NewAuditLogHandler(codec *Codec, logger *zap.Logger) *AuditLogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogHandler{codec: codec, logger: logger.Named("audit")}
}

func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	payload, err := h.codec.Encode(event)
	if err != nil {
		return err
	}
	h.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.ByteString("payload", payload),
	)
	return nil
}

func (h *AuditLogHandler) EventTypes() []string {
	return h.codec.Types()
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
