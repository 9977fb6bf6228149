package operations

import (
	"context"
	"log/slog"

	"idoosync/internal/browser"
	"idoosync/internal/config"
	"idoosync/internal/files"
	"idoosync/internal/infrastructure"
	"idoosync/internal/portal"
	"idoosync/internal/rtpos"
	"idoosync/internal/timing"
	"idoosync/internal/transform"
	"idoosync/pkg/contracts/domain"
)

// Steps are the per-account pipeline stages the orchestrator sequences.
// Login, Prepare and Extract share the batch browser through nav.
type Steps interface {
	Login(ctx context.Context, nav *browser.Navigator, account domain.Account) error
	Prepare(ctx context.Context, nav *browser.Navigator) error
	Extract(ctx context.Context, nav *browser.Navigator) ([]portal.Pass, error)
	Acquire(ctx context.Context, account domain.Account) (string, error)
	Transform(ctx context.Context, acquired string, skus *domain.SkuSet, stock []domain.StockEntry, outputName string) (transform.Result, error)
}

// BrowserSteps implements Steps against the live portals
type BrowserSteps struct {
	cfg         *config.Config
	paths       *config.Paths
	metrics     *infrastructure.PipelineMetrics
	logger      *slog.Logger
	acquirer    *rtpos.Acquirer
	transformer *transform.Transformer
}

// NewBrowserSteps wires the portal, report and transform components. The
// report portal runs in its own browser session that downloads into the
// download directory.
func NewBrowserSteps(cfg *config.Config, paths *config.Paths, headless bool, sleeper timing.Sleeper, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *BrowserSteps {
	if sleeper == nil {
		sleeper = timing.RealSleeper{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	reportSession := func(ctx context.Context) (browser.Driver, error) {
		opts := browser.OptionsFromConfig(cfg.Browser, headless, paths.DownloadDir)
		opts.PageLoadTimeout = config.ReportPageLoadTimeout
		return browser.Launch(ctx, opts, logger)
	}

	watcher := files.NewWatcher(paths, cfg.Report, sleeper, infrastructure.WithComponent(logger, "download_watcher"))
	acquirer := rtpos.NewAcquirer(cfg.Report, reportSession, watcher, paths.BaseDir,
		infrastructure.WithComponent(logger, "report_acquirer"),
		rtpos.WithSleeper(sleeper),
		rtpos.WithMetrics(metrics),
		rtpos.WithElementWait(cfg.Browser.ElementTimeout))

	manager := files.NewManager(paths, logger)
	transformer := transform.NewTransformer(paths.DownloadDir, manager, metrics,
		infrastructure.WithComponent(logger, "report_transformer"))

	return &BrowserSteps{
		cfg:         cfg,
		paths:       paths,
		metrics:     metrics,
		logger:      logger,
		acquirer:    acquirer,
		transformer: transformer,
	}
}

// Login implements Steps
func (b *BrowserSteps) Login(ctx context.Context, nav *browser.Navigator, account domain.Account) error {
	auth := portal.NewAuthenticator(nav, b.cfg.Portal, b.cfg.Browser.ElementTimeout,
		infrastructure.WithComponent(b.logger, "authenticator"))
	return auth.Login(ctx, account.PortalUserID, account.PortalPassword, b.cfg.Portal.LoginAttempts)
}

// Prepare implements Steps
func (b *BrowserSteps) Prepare(ctx context.Context, nav *browser.Navigator) error {
	seq := portal.NewStageSequencer(nav, b.cfg.Portal,
		infrastructure.WithComponent(b.logger, "stage_sequencer"),
		portal.WithRetryHook(b.metrics.RecordStageRetry))
	_, err := seq.Run(ctx)
	return err
}

// Extract implements Steps
func (b *BrowserSteps) Extract(ctx context.Context, nav *browser.Navigator) ([]portal.Pass, error) {
	extractor := portal.NewCatalogExtractor(nav, b.cfg.Portal, b.paths.DownloadDir,
		infrastructure.WithComponent(b.logger, "catalog_extractor"))
	return extractor.Collect(ctx)
}

// Acquire implements Steps
func (b *BrowserSteps) Acquire(ctx context.Context, account domain.Account) (string, error) {
	return b.acquirer.Acquire(ctx, account.ReportUserID, account.ReportPassword)
}

// Transform implements Steps
func (b *BrowserSteps) Transform(ctx context.Context, acquired string, skus *domain.SkuSet, stock []domain.StockEntry, outputName string) (transform.Result, error) {
	return b.transformer.Transform(ctx, acquired, skus, stock, outputName)
}
