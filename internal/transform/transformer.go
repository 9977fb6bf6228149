package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"idoosync/internal/files"
	"idoosync/internal/infrastructure"
	"idoosync/pkg/contracts/domain"
)

// Result describes a rendered output workbook
type Result struct {
	Path   string
	Rows   int
	Stores int
}

// Transformer produces output workbooks in a fixed directory
type Transformer struct {
	outputDir string
	files     *files.Manager
	metrics   *infrastructure.PipelineMetrics
	logger    *slog.Logger
}

// NewTransformer creates a transformer writing into outputDir. The acquired
// report is removed through manager once the output is saved.
func NewTransformer(outputDir string, manager *files.Manager, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{
		outputDir: outputDir,
		files:     manager,
		metrics:   metrics,
		logger:    logger,
	}
}

// Transform reconciles the acquired report against skus and renders the
// output workbook named outputName. The acquired file is deleted only after
// a successful render; a failed delete is logged.
func (t *Transformer) Transform(ctx context.Context, acquired string, skus *domain.SkuSet, stock []domain.StockEntry, outputName string) (Result, error) {
	rows, err := Parse(acquired)
	if err != nil {
		return Result{}, err
	}

	retained, err := Reconcile(rows, skus)
	if errors.Is(err, ErrNoMatchingItems) {
		t.logger.WarnContext(ctx, "No matching items found in report",
			slog.Int("report_rows", len(rows)),
			slog.Int("skus", skus.Len()))
	}
	if err != nil {
		return Result{}, err
	}
	t.metrics.RecordReconciled(ctx, len(retained))

	dist := BuildDistribution(retained)
	layout := PlanDistributionLayout(StoreNames(dist))

	out := filepath.Join(t.outputDir, outputName)
	if err := Render(out, retained, dist, stock); err != nil {
		return Result{}, fmt.Errorf("render %s: %w", outputName, err)
	}
	t.logger.InfoContext(ctx, "Output workbook created",
		slog.String("path", out),
		slog.Int("rows", len(retained)),
		slog.Int("stores", len(layout.Groups)))

	if err := t.files.DeleteFile(acquired); err != nil {
		t.logger.ErrorContext(ctx, "Error removing original file",
			slog.String("path", acquired),
			slog.String("error", err.Error()))
	}

	return Result{Path: out, Rows: len(retained), Stores: len(layout.Groups)}, nil
}
