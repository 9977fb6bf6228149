package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idoosync/internal/config"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "log line is not JSON: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestInitializeLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "test.log")
	var stdout bytes.Buffer

	cfg := config.LoggingConfig{Level: "info", Format: "json", Output: "both"}
	logger, err := newLogger(cfg, logFile, &stdout)
	require.NoError(t, err)

	logger.Info("test message", "key", "value")
	logger.Debug("hidden")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	fileEntries := decodeLines(t, content)
	require.Len(t, fileEntries, 1)
	assert.Equal(t, "test message", fileEntries[0]["msg"])
	assert.Equal(t, "value", fileEntries[0]["key"])
	assert.Equal(t, "INFO", fileEntries[0]["level"])
	assert.Contains(t, fileEntries[0], "source")

	assert.Len(t, decodeLines(t, stdout.Bytes()), 1)
}

func TestLoggerOutputModes(t *testing.T) {
	t.Run("console does not create a file", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "never.log")
		var stdout bytes.Buffer

		logger, err := newLogger(config.LoggingConfig{Level: "debug", Output: "console"}, logFile, &stdout)
		require.NoError(t, err)
		logger.Debug("visible")

		assert.NoFileExists(t, logFile)
		assert.Contains(t, stdout.String(), "visible")
		assert.NoError(t, logger.Close())
	})

	t.Run("file only", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "only.log")
		var stdout bytes.Buffer

		logger, err := newLogger(config.LoggingConfig{Level: "info", Output: "file"}, logFile, &stdout)
		require.NoError(t, err)
		logger.Warn("to file")
		require.NoError(t, logger.Close())

		assert.Empty(t, stdout.String())
		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "to file")
	})
}

func TestTraceIDInjection(t *testing.T) {
	var stdout bytes.Buffer
	logger, err := newLogger(config.LoggingConfig{Level: "info", Output: "console"}, "", &stdout)
	require.NoError(t, err)

	ctx := WithAccount(WithTraceID(context.Background(), "trace-123"), "iot42")
	logger.InfoContext(ctx, "with context")
	logger.Info("without context")

	entries := decodeLines(t, stdout.Bytes())
	require.Len(t, entries, 2)
	assert.Equal(t, "trace-123", entries[0]["trace_id"])
	assert.Equal(t, "iot42", entries[0]["account"])
	assert.NotContains(t, entries[1], "trace_id")
	assert.NotContains(t, entries[1], "account")
}

func TestHandlerWrappers(t *testing.T) {
	var stdout bytes.Buffer
	var seen []string

	wrap := func(next slog.Handler) slog.Handler {
		return &recordingHandler{Handler: next, seen: &seen}
	}

	logger, err := newLogger(config.LoggingConfig{Level: "info", Output: "console"}, "", &stdout, wrap)
	require.NoError(t, err)

	logger.With("component", "test").Error("boom")

	assert.Equal(t, []string{"boom"}, seen)
	assert.Contains(t, stdout.String(), "boom")
}

type recordingHandler struct {
	slog.Handler
	seen *[]string
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	*h.seen = append(*h.seen, r.Message)
	return h.Handler.Handle(ctx, r)
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{Handler: h.Handler.WithAttrs(attrs), seen: h.seen}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestContextWithTraceID(t *testing.T) {
	batch := WithTraceID(context.Background(), "run-1")
	ctx := ContextWithTraceID(batch)

	assert.Len(t, GetTraceID(ctx), 36)
	assert.NotEqual(t, "run-1", GetTraceID(ctx))
	assert.Equal(t, "run-1", GetParentTraceID(ctx))

	fresh := ContextWithTraceID(context.Background())
	assert.Empty(t, GetParentTraceID(fresh))
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(slog.New(slog.NewJSONHandler(&buf, nil)), "report_acquirer")
	logger.Info("Report ready")
	assert.Contains(t, buf.String(), `"component":"report_acquirer"`)
}
