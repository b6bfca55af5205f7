package logger

import (
	"context"

	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Scope identifies the caller of a request. Empty fields are unknown.
type Scope struct {
	RequestID string
	TenantID  string
	UserID    string
}

type (
	scopeKey  struct{}
	loggerKey struct{}
)

func (s Scope) merge(o Scope) Scope {
	if o.RequestID != "" {
		s.RequestID = o.RequestID
	}
	if o.TenantID != "" {
		s.TenantID = o.TenantID
	}
	if o.UserID != "" {
		s.UserID = o.UserID
	}
	return s
}

// Fields renders the known parts of the scope as log fields.
func (s Scope) Fields() []zap.Field {
	fields := make([]zap.Field, 0, 3)
	for _, kv := range [...][2]string{
		{"request_id", s.RequestID},
		{"tenant_id", s.TenantID},
		{"user_id", s.UserID},
	} {
		if kv[1] != "" {
			fields = append(fields, zap.String(kv[0], kv[1]))
		}
	}
	return fields
}

// ScopeFrom returns the scope stored in ctx.
func ScopeFrom(ctx context.Context) Scope {
	if ctx == nil {
		return Scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(Scope)
	return s
}

// WithScope merges the non-empty fields of s into the scope carried by ctx.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, ScopeFrom(ctx).merge(s))
}

// Annotate merges s into ctx like WithScope and also attaches log tagged with
// the new fields. It returns both.
func Annotate(ctx context.Context, log *zap.Logger, s Scope) (context.Context, *zap.Logger) {
	tagged := log.With(s.Fields()...)
	return WithContext(WithScope(ctx, s), tagged), tagged
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	return FromContextOr(ctx, nil)
}

// FromContextOr retrieves the logger from context, or fallback when none is attached
func FromContextOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

// WithTraceContext adds trace_id and span_id from the active span.
// Without a valid span the logger is returned unchanged.
func WithTraceContext(ctx context.Context, log *zap.Logger) *zap.Logger {
	traceID := telemetry.GetTraceID(ctx)
	if traceID == "" {
		return log
	}
	return log.With(
		zap.String("trace_id", traceID),
		zap.String("span_id", telemetry.GetSpanID(ctx)),
	)
}
