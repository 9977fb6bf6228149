package files

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"idoosync/internal/config"
	"idoosync/internal/timing"
)

// ErrDownloadTimeout is returned when no completed download shows up
// before the ceiling
var ErrDownloadTimeout = errors.New("download did not complete in time")

// Watcher waits for the browser to finish writing a report into the
// download directory
type Watcher struct {
	discovery *Discovery
	manager   *Manager
	target    string
	interval  time.Duration
	ceiling   time.Duration
	sleeper   timing.Sleeper
	logger    *slog.Logger
}

// NewWatcher creates a watcher on the download directory. The completed
// file is expected under cfg.TargetFile.
func NewWatcher(paths *config.Paths, cfg config.ReportConfig, sleeper timing.Sleeper, logger *slog.Logger) *Watcher {
	if sleeper == nil {
		sleeper = timing.RealSleeper{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		discovery: NewDiscovery(paths.DownloadDir),
		manager:   NewManager(paths, logger),
		target:    paths.DownloadPath(cfg.TargetFile),
		interval:  cfg.DownloadInterval,
		ceiling:   cfg.DownloadCeiling,
		sleeper:   sleeper,
		logger:    logger,
	}
}

// Target returns the path a completed download ends up at
func (w *Watcher) Target() string {
	return w.target
}

// Wait polls until no partial downloads remain and a target file modified
// since the given time exists, renaming the newest such workbook into place
// when the browser chose a different name. An older target is replaced, never
// returned. A zero since accepts any workbook. It returns the target path or
// ErrDownloadTimeout.
func (w *Watcher) Wait(ctx context.Context, since time.Time) (string, error) {
	polls := timing.Polls(w.ceiling, w.interval)
	for i := 0; ; i++ {
		if path, ok := w.check(ctx, since); ok {
			w.logger.InfoContext(ctx, "Download complete",
				slog.String("path", path),
				slog.Int("polls", i))
			return path, nil
		}
		if i >= polls {
			return "", fmt.Errorf("%w after %s", ErrDownloadTimeout, w.ceiling)
		}
		if err := w.sleeper.Sleep(ctx, w.interval); err != nil {
			return "", err
		}
	}
}

func (w *Watcher) check(ctx context.Context, since time.Time) (string, bool) {
	partial, err := w.discovery.FindPartialDownloads()
	if err != nil || len(partial) > 0 {
		return "", false
	}

	target, hasTarget := w.manager.Stat(w.target)
	if hasTarget && fresh(target, since) {
		return w.target, true
	}

	workbooks, err := w.discovery.FindWorkbooks()
	if err != nil {
		w.logger.DebugContext(ctx, "Download directory not readable", slog.String("error", err.Error()))
		return "", false
	}
	candidates := FilterModifiedSince(excludePath(workbooks, w.target), since)
	newest, ok := GetLatestFile(candidates)
	if !ok {
		return "", false
	}

	// a target older than since belongs to an earlier export
	if hasTarget {
		if err := w.manager.DeleteFile(w.target); err != nil {
			w.logger.DebugContext(ctx, "Stale download not removed",
				slog.String("error", err.Error()))
			return "", false
		}
		w.logger.WarnContext(ctx, "Stale download replaced",
			slog.Time("stale_mod_time", target.ModTime),
			slog.String("file", newest.Name))
	}

	// the browser may still hold the file; try again next poll
	if err := w.manager.Rename(newest.Path, w.target); err != nil {
		w.logger.DebugContext(ctx, "Rename deferred",
			slog.String("file", newest.Name),
			slog.String("error", err.Error()))
		return "", false
	}
	return w.target, true
}

// ClearStale removes a target left behind by an export older than since,
// so a failed earlier transform cannot be mistaken for the next download.
func (w *Watcher) ClearStale(ctx context.Context, since time.Time) error {
	target, ok := w.manager.Stat(w.target)
	if !ok || fresh(target, since) {
		return nil
	}
	w.logger.InfoContext(ctx, "Removing stale download",
		slog.String("path", w.target),
		slog.Time("mod_time", target.ModTime))
	return w.manager.DeleteFile(w.target)
}

// fresh reports whether f was modified at or after since. Everything is
// fresh against a zero since.
func fresh(f FileInfo, since time.Time) bool {
	return since.IsZero() || !f.ModTime.Before(since)
}

func excludePath(files []FileInfo, path string) []FileInfo {
	out := make([]FileInfo, 0, len(files))
	for _, f := range files {
		if f.Path != path {
			out = append(out, f)
		}
	}
	return out
}
