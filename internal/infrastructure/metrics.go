package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the batch-level instruments
type PipelineMetrics struct {
	AccountsTotal    metric.Int64Counter
	AccountDuration  metric.Float64Histogram
	StepDuration     metric.Float64Histogram
	StageRetries     metric.Int64Counter
	SkusExtracted    metric.Int64Counter
	RowsReconciled   metric.Int64Counter
	ReportWait       metric.Float64Histogram
	CredentialErrors metric.Int64Counter
}

// CreatePipelineMetrics creates the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	accountsTotal, err := meter.Int64Counter(
		"idoo_accounts_processed_total",
		metric.WithDescription("Accounts processed, by terminal status"),
	)
	if err != nil {
		return nil, err
	}

	accountDuration, err := meter.Float64Histogram(
		"idoo_account_duration_seconds",
		metric.WithDescription("Wall time spent on one account"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"idoo_step_duration_seconds",
		metric.WithDescription("Wall time spent in one pipeline step"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageRetries, err := meter.Int64Counter(
		"idoo_stage_retries_total",
		metric.WithDescription("Recovery actions run by the stage sequencer"),
	)
	if err != nil {
		return nil, err
	}

	skusExtracted, err := meter.Int64Counter(
		"idoo_skus_extracted_total",
		metric.WithDescription("In-stock SKUs extracted from the catalog"),
	)
	if err != nil {
		return nil, err
	}

	rowsReconciled, err := meter.Int64Counter(
		"idoo_rows_reconciled_total",
		metric.WithDescription("Report rows retained after reconciliation"),
	)
	if err != nil {
		return nil, err
	}

	reportWait, err := meter.Float64Histogram(
		"idoo_report_wait_seconds",
		metric.WithDescription("Time until the server-side report became exportable"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	credentialErrors, err := meter.Int64Counter(
		"idoo_credential_errors_total",
		metric.WithDescription("Malformed credential lines skipped"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		AccountsTotal:    accountsTotal,
		AccountDuration:  accountDuration,
		StepDuration:     stepDuration,
		StageRetries:     stageRetries,
		SkusExtracted:    skusExtracted,
		RowsReconciled:   rowsReconciled,
		ReportWait:       reportWait,
		CredentialErrors: credentialErrors,
	}, nil
}

// RecordAccount records one account's terminal status and duration
func (m *PipelineMetrics) RecordAccount(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.AccountsTotal.Add(ctx, 1, attrs)
	m.AccountDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStep records one step's duration and outcome
func (m *PipelineMetrics) RecordStep(ctx context.Context, step string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.StepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("success", success),
	))
}

// RecordStageRetry counts one recovery action for stage
func (m *PipelineMetrics) RecordStageRetry(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.StageRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordExtraction counts SKUs found in one catalog section
func (m *PipelineMetrics) RecordExtraction(ctx context.Context, section string, count int) {
	if m == nil {
		return
	}
	m.SkusExtracted.Add(ctx, int64(count), metric.WithAttributes(attribute.String("section", section)))
}

// RecordReconciled counts rows retained for the output workbook
func (m *PipelineMetrics) RecordReconciled(ctx context.Context, count int) {
	if m == nil {
		return
	}
	m.RowsReconciled.Add(ctx, int64(count))
}

// RecordReportWait records how long report generation took
func (m *PipelineMetrics) RecordReportWait(ctx context.Context, wait time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.ReportWait.Record(ctx, wait.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordCredentialErrors counts skipped credential lines
func (m *PipelineMetrics) RecordCredentialErrors(ctx context.Context, count int) {
	if m == nil || count == 0 {
		return
	}
	m.CredentialErrors.Add(ctx, int64(count))
}
