package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"idoosync/internal/config"
)

// LaunchOptions selects and configures the automation engine
type LaunchOptions struct {
	Engine          string
	Headless        bool
	ExecPath        string
	Width           int
	Height          int
	DownloadDir     string
	PageLoadTimeout time.Duration
}

// OptionsFromConfig builds LaunchOptions from the browser section
func OptionsFromConfig(cfg config.BrowserConfig, headless bool, downloadDir string) LaunchOptions {
	return LaunchOptions{
		Engine:          cfg.Engine,
		Headless:        headless,
		ExecPath:        cfg.ExecPath,
		Width:           cfg.WindowWidth,
		Height:          cfg.WindowHeight,
		DownloadDir:     downloadDir,
		PageLoadTimeout: cfg.PageLoadTimeout,
	}
}

// Launch starts a browser session. Downloads, when a directory is given,
// are written there without prompting.
func Launch(ctx context.Context, opts LaunchOptions, logger *slog.Logger) (Driver, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1920, 1080
	}

	var (
		drv downloadDriver
		err error
	)
	switch opts.Engine {
	case config.EngineRod:
		drv, err = newRodDriver(opts)
	case config.EngineChromedp, "":
		drv, err = newChromedpDriver(opts)
	default:
		return nil, fmt.Errorf("unknown browser engine %q", opts.Engine)
	}
	if err != nil {
		return nil, err
	}

	if opts.DownloadDir != "" {
		if err := drv.allowDownloads(ctx, opts.DownloadDir); err != nil {
			_ = drv.Close()
			return nil, fmt.Errorf("configure downloads: %w", err)
		}
	}

	if logger != nil {
		logger.InfoContext(ctx, "Browser launched",
			slog.String("engine", opts.Engine),
			slog.Bool("headless", opts.Headless),
			slog.String("download_dir", opts.DownloadDir))
	}
	return drv, nil
}

// downloadDriver is a Driver that can route downloads to a directory
type downloadDriver interface {
	Driver
	allowDownloads(ctx context.Context, dir string) error
}
