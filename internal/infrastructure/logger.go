package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"idoosync/internal/config"
)

// contextKey is a type for context keys
type contextKey string

const (
	// TraceIDContextKey is the key for storing trace ID in context
	TraceIDContextKey contextKey = "trace_id"
	// ParentTraceIDKey holds the batch trace ID inside an account trace
	ParentTraceIDKey contextKey = "parent_trace_id"
	// AccountContextKey is the key for storing the account being processed
	AccountContextKey contextKey = "account"
)

// HandlerWrapper decorates the base JSON handler, e.g. to forward
// records to an alert sink.
type HandlerWrapper func(slog.Handler) slog.Handler

// Logger is the process logger plus the log file it writes to.
type Logger struct {
	*slog.Logger
	file *os.File
}

// InitializeLogger creates the JSON logger described by cfg. The log file
// is opened in append mode at filePath (cfg.FilePath when empty).
func InitializeLogger(cfg config.LoggingConfig, filePath string, wrappers ...HandlerWrapper) (*Logger, error) {
	return newLogger(cfg, filePath, os.Stdout, wrappers...)
}

func newLogger(cfg config.LoggingConfig, filePath string, stdout io.Writer, wrappers ...HandlerWrapper) (*Logger, error) {
	if filePath == "" {
		filePath = cfg.FilePath
	}

	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLogLevel(cfg.Level),
	}

	l := &Logger{}
	var output io.Writer

	switch strings.ToLower(cfg.Output) {
	case "file":
		file, err := openLogFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		output = file
	case "both":
		file, err := openLogFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		output = io.MultiWriter(stdout, file)
	default:
		output = stdout
	}

	var handler slog.Handler = slog.NewJSONHandler(output, opts)
	for _, wrap := range wrappers {
		handler = wrap(handler)
	}

	l.Logger = slog.New(&traceHandler{Handler: handler})
	return l, nil
}

// Close closes the log file if one is open
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// traceHandler wraps a slog.Handler to automatically inject trace_id and
// account from context
type traceHandler struct {
	slog.Handler
}

// Handle adds context attributes to the record if present
func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if traceID := GetTraceID(ctx); traceID != "" {
		r.AddAttrs(slog.String("trace_id", traceID))
	}
	if parent := GetParentTraceID(ctx); parent != "" {
		r.AddAttrs(slog.String("parent_trace_id", parent))
	}
	if account := GetAccount(ctx); account != "" {
		r.AddAttrs(slog.String("account", account))
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs returns a new Handler with additional attributes
func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup returns a new Handler with the given group name
func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDContextKey).(string); ok {
		return traceID
	}
	return ""
}

// WithAccount tags the context with the account being processed
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, AccountContextKey, account)
}

// GetAccount retrieves the account from context
func GetAccount(ctx context.Context) string {
	if account, ok := ctx.Value(AccountContextKey).(string); ok {
		return account
	}
	return ""
}

// openLogFile opens or creates a log file with proper permissions
func openLogFile(filePath string) (*os.File, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
	}

	return file, nil
}
