package alerting_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idoosync/internal/alerting"
	"idoosync/internal/shared/testutil"
)

func TestHandlerForwardsErrors(t *testing.T) {
	var buf bytes.Buffer
	sink := &testutil.RecordingSink{}
	logger := slog.New(alerting.NewHandler(slog.NewJSONHandler(&buf, nil), sink, time.Second))

	logger.Info("Catalog loaded")
	logger.Warn("Element not found")
	logger.Error("Account failed", slog.String("error", "frame missing"))

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Account failed", events[0].Message)
	assert.Equal(t, slog.LevelError, events[0].Level)
	assert.Equal(t, "frame missing", events[0].Attrs["error"])

	// every record still reaches the wrapped handler
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestHandlerCarriesAttrsAndGroups(t *testing.T) {
	sink := &testutil.RecordingSink{}
	logger := slog.New(alerting.NewHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), sink, 0))

	logger.With(slog.String("account", "StoreA")).
		WithGroup("report").
		Error("Report generation failed", slog.Int("attempt", 3))

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "StoreA", events[0].Attrs["account"])
	assert.Equal(t, "3", events[0].Attrs["report.attempt"])
}

func TestHandlerSwallowsSinkFailures(t *testing.T) {
	sink := &testutil.RecordingSink{Err: errors.New("webhook down")}
	handler := alerting.NewHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), sink, time.Second)

	record := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	assert.NoError(t, handler.Handle(context.Background(), record))
	assert.Len(t, sink.Events(), 1)
}

func TestHandlerRespectsNextLevel(t *testing.T) {
	handler := alerting.Wrap(alerting.NopSink{}, 0)(
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))

	assert.False(t, handler.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelError))
}
