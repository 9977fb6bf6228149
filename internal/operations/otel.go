package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"idoosync/internal/infrastructure"
)

const (
	TracerName = "idoosync.operation"
)

// RunTracer pairs account and step spans with the pipeline metrics. A nil
// tracer or nil metrics are both valid.
type RunTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewRunTracer creates a RunTracer. A nil tracer records nothing.
func NewRunTracer(tracer trace.Tracer, metrics *infrastructure.PipelineMetrics) *RunTracer {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(TracerName)
	}
	return &RunTracer{tracer: tracer, metrics: metrics}
}

// Metrics returns the pipeline instruments, possibly nil
func (rt *RunTracer) Metrics() *infrastructure.PipelineMetrics {
	return rt.metrics
}

// TraceAccount starts the span covering one account
func (rt *RunTracer) TraceAccount(ctx context.Context, runID, account string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "operation.account",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("account", account),
		),
	)
}

// TraceStep starts a child span for one step
func (rt *RunTracer) TraceStep(ctx context.Context, step string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, fmt.Sprintf("operation.step.%s", step),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("step", step)),
	)
}

// RecordStepCompletion closes out a step span and records its duration
func (rt *RunTracer) RecordStepCompletion(ctx context.Context, span trace.Span, step string, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	rt.metrics.RecordStep(ctx, step, duration, err == nil)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		span.SetAttributes(attribute.String("error.type", string(GetErrorType(err))))
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "step completed")
}

// RecordAccountCompletion closes out an account span and counts the outcome
func (rt *RunTracer) RecordAccountCompletion(ctx context.Context, span trace.Span, status string, duration time.Duration, rows int) {
	span.SetAttributes(
		attribute.String("account.status", status),
		attribute.Float64("account.duration_seconds", duration.Seconds()),
		attribute.Int("account.rows", rows),
	)
	rt.metrics.RecordAccount(ctx, status, duration)
	if status == "failed" {
		span.SetStatus(codes.Error, "account failed")
		return
	}
	span.SetStatus(codes.Ok, status)
}
