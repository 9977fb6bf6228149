package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateTraceID creates a new unique trace ID using UUID v4
func GenerateTraceID() string {
	return uuid.New().String()
}

// ContextWithTraceID returns ctx carrying a fresh trace ID. The previous
// ID, if any, is kept as parent_trace_id.
func ContextWithTraceID(ctx context.Context) context.Context {
	if parent := GetTraceID(ctx); parent != "" {
		ctx = context.WithValue(ctx, ParentTraceIDKey, parent)
	}
	return WithTraceID(ctx, GenerateTraceID())
}

// GetParentTraceID returns the batch trace ID an account trace descends from
func GetParentTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(ParentTraceIDKey).(string); ok {
		return id
	}
	return ""
}

// WithComponent creates a logger with a component field
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}
