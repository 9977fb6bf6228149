package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"idoosync/internal/alerting"
	"idoosync/internal/browser"
	"idoosync/internal/config"
	"idoosync/internal/credentials"
	"idoosync/internal/delivery"
	"idoosync/internal/history"
	"idoosync/internal/infrastructure"
	"idoosync/internal/operations"
	"idoosync/internal/timing"
	"idoosync/pkg/contracts"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// The process always exits 0; failures are reported through the logs.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC RECOVERED: %v\n", r)
			slog.Error("Fatal error",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	configFile := flag.String("config", "", "YAML config file (defaults to config.yaml or configs/config.yaml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "idoo-sync: %v\n", err)
	}
}

// run executes one batch. Errors are returned only when logging could not
// be set up; everything after that is logged.
func run(ctx context.Context, configFile string, getenv func(string) string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	paths, err := config.GetPaths(cfg.Paths, cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create required directories: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging, paths.LogFile,
		alerting.Wrap(alertSink(cfg.Alerts), cfg.Alerts.Timeout))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	logger.InfoContext(ctx, "Starting "+config.AppName,
		slog.String("version", config.AppVersion),
		slog.String("commit", contracts.GitCommit))
	paths.LogPathResolution(logger.Logger)

	providers, metrics := setupTelemetry(cfg.Telemetry, logger.Logger)
	if providers != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := providers.Export(shutdownCtx); err != nil {
				logger.WarnContext(shutdownCtx, "Failed to export metrics", slog.String("error", err.Error()))
			}
			if err := providers.Shutdown(shutdownCtx); err != nil {
				logger.WarnContext(shutdownCtx, "Failed to shut down telemetry", slog.String("error", err.Error()))
			}
		}()
	}

	if !config.FileExists(paths.CredentialsFile) {
		logger.ErrorContext(ctx, "Credentials file not found", slog.String("path", paths.CredentialsFile))
		return nil
	}

	accounts, errs := credentials.ParseFile(paths.CredentialsFile)
	for _, err := range errs {
		logger.ErrorContext(ctx, "Invalid credential format", slog.String("error", err.Error()))
	}
	metrics.RecordCredentialErrors(ctx, len(errs))

	headless := config.DetectHeadless(getenv)
	opts := []operations.Option{
		operations.WithTracer(operations.NewRunTracer(tracerOf(providers), metrics)),
	}

	if paths.HistoryDB != "" {
		store, err := history.Open(paths.HistoryDB)
		if err != nil {
			logger.WarnContext(ctx, "Run history disabled", slog.String("error", err.Error()))
		} else {
			defer store.Close()
			opts = append(opts, operations.WithHistory(store))
		}
	}

	if cfg.Email.Enabled() {
		mailer, err := delivery.NewMailer(cfg.Email, infrastructure.WithComponent(logger.Logger, "mailer"))
		if err != nil {
			logger.WarnContext(ctx, "E-mail delivery disabled", slog.String("error", err.Error()))
		} else {
			opts = append(opts, operations.WithMailer(mailer))
		}
	}

	steps := operations.NewBrowserSteps(cfg, paths, headless, timing.RealSleeper{}, metrics, logger.Logger)
	launch := func(ctx context.Context) (browser.Driver, error) {
		return browser.Launch(ctx, browser.OptionsFromConfig(cfg.Browser, headless, paths.DownloadDir), logger.Logger)
	}

	orchestrator := operations.NewOrchestrator(paths, steps, launch, logger.Logger, opts...)
	orchestrator.Run(ctx, accounts)
	return nil
}

func loadConfig(configFile string) (*config.Config, error) {
	if configFile == "" {
		return config.Load()
	}
	return config.LoadFrom(configFile)
}

// alertSink posts ERROR records to the configured webhook, if any
func alertSink(cfg config.AlertsConfig) alerting.Sink {
	if cfg.WebhookURL == "" {
		return alerting.NopSink{}
	}
	return alerting.NewWebhookSink(cfg.WebhookURL, cfg.ServiceName, cfg.Timeout,
		alerting.WithRateLimit(cfg.RPS, cfg.Burst))
}

// setupTelemetry initializes tracing and metrics. Failures leave both
// disabled.
func setupTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*infrastructure.OTelProviders, *infrastructure.PipelineMetrics) {
	providers, err := infrastructure.InitializeOTel(cfg, logger)
	if err != nil {
		logger.Warn("Telemetry disabled", slog.String("error", err.Error()))
		return nil, nil
	}
	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		logger.Warn("Pipeline metrics disabled", slog.String("error", err.Error()))
		return providers, nil
	}
	return providers, metrics
}

func tracerOf(p *infrastructure.OTelProviders) trace.Tracer {
	if p == nil {
		return nil
	}
	return p.Tracer
}
