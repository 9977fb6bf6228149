package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idoosync/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{ServiceName: "test"}, discardLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider, "no trace file means no tracer provider")
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Registry)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Export(ctx))
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestTracingToFile(t *testing.T) {
	traceFile := filepath.Join(t.TempDir(), "spans.json")
	providers, err := InitializeOTel(config.TelemetryConfig{ServiceName: "test", TraceFile: traceFile}, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)

	_, span := providers.Tracer.Start(context.Background(), "account")
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))

	content, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"Name":"account"`)
}

func TestMetricsExport(t *testing.T) {
	textfile := filepath.Join(t.TempDir(), "idoo.prom")

	var pushes atomic.Int32
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	providers, err := InitializeOTel(config.TelemetryConfig{
		ServiceName:    "test",
		MetricsFile:    textfile,
		PushgatewayURL: gateway.URL,
		PushJob:        "idoo_sync_test",
	}, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordAccount(ctx, "succeeded", 3*time.Second)
	metrics.RecordStep(ctx, "login", time.Second, true)
	metrics.RecordStageRetry(ctx, "context_descent")
	metrics.RecordExtraction(ctx, "default", 4)
	metrics.RecordReconciled(ctx, 7)
	metrics.RecordReportWait(ctx, 15*time.Second, "ready")
	metrics.RecordCredentialErrors(ctx, 2)

	require.NoError(t, providers.Export(ctx))

	content, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "idoo_accounts_processed")
	assert.Contains(t, string(content), "idoo_rows_reconciled")
	assert.Contains(t, string(content), `status="succeeded"`)
	assert.Equal(t, int32(1), pushes.Load())
}

func TestNilPipelineMetricsIsSafe(t *testing.T) {
	var metrics *PipelineMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		metrics.RecordAccount(ctx, "failed", time.Second)
		metrics.RecordStep(ctx, "x", time.Second, false)
		metrics.RecordStageRetry(ctx, "x")
		metrics.RecordExtraction(ctx, "cpo", 1)
		metrics.RecordReconciled(ctx, 1)
		metrics.RecordReportWait(ctx, time.Second, "timeout")
		metrics.RecordCredentialErrors(ctx, 1)
	})
}
