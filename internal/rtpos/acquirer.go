// Package rtpos acquires the re-order report from the reporting portal.
package rtpos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"idoosync/internal/browser"
	"idoosync/internal/config"
	"idoosync/internal/infrastructure"
	"idoosync/internal/timing"
)

var (
	// ErrLoginFailed is returned when every login attempt failed
	ErrLoginFailed = errors.New("report portal login failed")
	// ErrGenerateUnavailable is returned when the Generate control is
	// missing or cannot be clicked
	ErrGenerateUnavailable = errors.New("generate control unavailable")
	// ErrReportError is returned when the page shows an error message
	// while the report is generating
	ErrReportError = errors.New("report generation failed")
	// ErrReportTimeout is returned when the export control never appears
	ErrReportTimeout = errors.New("report generation timed out")
)

// SessionFactory opens a fresh browser session for one acquisition
type SessionFactory func(ctx context.Context) (browser.Driver, error)

// Downloads waits for the exported file to land on disk
type Downloads interface {
	// ClearStale removes a report left over from an export before since
	ClearStale(ctx context.Context, since time.Time) error
	Wait(ctx context.Context, since time.Time) (string, error)
}

// Acquirer drives the reporting portal in its own browser session
type Acquirer struct {
	cfg           config.ReportConfig
	newSession    SessionFactory
	downloads     Downloads
	screenshotDir string
	elementWait   time.Duration

	sleeper timing.Sleeper
	navOpts []browser.NavigatorOption
	metrics *infrastructure.PipelineMetrics
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Acquirer
type Option func(*Acquirer)

// WithSleeper replaces the wall-clock sleeper
func WithSleeper(s timing.Sleeper) Option {
	return func(a *Acquirer) { a.sleeper = s }
}

// WithPollInterval sets how often element waits re-check the page
func WithPollInterval(d time.Duration) Option {
	return func(a *Acquirer) { a.navOpts = append(a.navOpts, browser.WithPollInterval(d)) }
}

// WithMetrics records report wait times
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(a *Acquirer) { a.metrics = m }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(a *Acquirer) { a.now = now }
}

// WithElementWait overrides config.DefaultElementWait
func WithElementWait(d time.Duration) Option {
	return func(a *Acquirer) {
		if d > 0 {
			a.elementWait = d
		}
	}
}

// NewAcquirer creates an acquirer. Diagnostic screenshots are written to
// screenshotDir.
func NewAcquirer(cfg config.ReportConfig, newSession SessionFactory, downloads Downloads, screenshotDir string, logger *slog.Logger, opts ...Option) *Acquirer {
	a := &Acquirer{
		cfg:           cfg,
		newSession:    newSession,
		downloads:     downloads,
		screenshotDir: screenshotDir,
		elementWait:   config.DefaultElementWait,
		sleeper:       timing.RealSleeper{},
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Acquire logs in as user, generates the re-order report, exports it and
// returns the path of the downloaded workbook. The browser session is
// closed on every path, after the download has finished.
func (a *Acquirer) Acquire(ctx context.Context, user, password string) (path string, err error) {
	started := a.now()

	if err := a.downloads.ClearStale(ctx, started); err != nil {
		return "", fmt.Errorf("clear stale report: %w", err)
	}

	driver, err := a.newSession(ctx)
	if err != nil {
		return "", fmt.Errorf("open report session: %w", err)
	}
	defer func() {
		if cerr := driver.Close(); cerr != nil {
			a.logger.ErrorContext(ctx, "Error closing report driver", slog.String("error", cerr.Error()))
			return
		}
		a.logger.InfoContext(ctx, "Report browser closed")
	}()

	nav := browser.NewNavigator(driver, a.sleeper, a.logger, a.navOpts...)

	if err := a.login(ctx, nav, user, password); err != nil {
		return "", err
	}
	if err := a.fillForm(ctx, nav); err != nil {
		return "", err
	}
	if err := a.awaitExport(ctx, nav); err != nil {
		return "", err
	}

	path, err = a.downloads.Wait(ctx, started)
	if err != nil {
		return "", fmt.Errorf("wait for report download: %w", err)
	}
	a.logger.InfoContext(ctx, "Report downloaded successfully", slog.String("path", path))
	return path, nil
}

// login signs in and opens the re-order report. The Inventory Report menu
// marks a successful login; its absence fails the attempt.
func (a *Acquirer) login(ctx context.Context, nav *browser.Navigator, user, password string) error {
	var lastErr error
	for attempt := 0; attempt < a.cfg.LoginAttempts; attempt++ {
		lastErr = a.loginAttempt(ctx, nav, user, password)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < a.cfg.LoginAttempts-1 {
			a.logger.WarnContext(ctx, "RT POS login attempt failed",
				slog.Int("attempt", attempt+1),
				slog.String("error", lastErr.Error()))
			name := fmt.Sprintf("rtpos_error_%s_%d.png", user, attempt)
			nav.Screenshot(ctx, filepath.Join(a.screenshotDir, name))
		}
	}
	a.logger.ErrorContext(ctx, "Failed to login to RT POS",
		slog.Int("attempts", a.cfg.LoginAttempts),
		slog.String("error", errString(lastErr)))
	return fmt.Errorf("%w after %d attempts: %w", ErrLoginFailed, a.cfg.LoginAttempts, lastErr)
}

func (a *Acquirer) loginAttempt(ctx context.Context, nav *browser.Navigator, user, password string) error {
	if err := nav.Navigate(ctx, a.cfg.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if err := nav.Settle(ctx, loginPause); err != nil {
		return err
	}

	if err := a.typeInto(ctx, nav, selUserID, user); err != nil {
		return err
	}
	if err := a.typeInto(ctx, nav, selPassword, password); err != nil {
		return err
	}

	btn, err := nav.Locate(ctx, selLoginButton, a.elementWait, browser.Present)
	if err != nil {
		return err
	}
	if btn != nil {
		if err := btn.Click(ctx); err != nil {
			return fmt.Errorf("click login: %w", err)
		}
		if err := nav.Settle(ctx, loginPause); err != nil {
			return err
		}
	}
	if err := nav.Settle(ctx, postLogin); err != nil {
		return err
	}

	menu, err := nav.AwaitAny(ctx, menuWait, menuSelectors...)
	if err != nil {
		return fmt.Errorf("inventory report menu: %w", err)
	}
	a.logger.InfoContext(ctx, "RT POS login successful")

	how, err := browser.FirstSuccess(ctx, browser.ClickStrategies(menu, browser.EscalatingClick...)...)
	if err != nil {
		return fmt.Errorf("open inventory report menu: %w", err)
	}
	a.logger.DebugContext(ctx, "Inventory Report menu opened", slog.String("strategy", how))
	if err := nav.Settle(ctx, menuPause); err != nil {
		return err
	}

	return a.openReorder(ctx, nav)
}

// openReorder follows the re-order link, or loads its URL when the link
// is nowhere on the page.
func (a *Acquirer) openReorder(ctx context.Context, nav *browser.Navigator) error {
	link, err := nav.LocateAny(ctx, reorderSelectors...)
	switch {
	case errors.Is(err, browser.ErrNotFound):
		a.logger.InfoContext(ctx, "Re-Order link not found, navigating directly",
			slog.String("url", a.cfg.ReorderURL))
		if err := nav.Navigate(ctx, a.cfg.ReorderURL); err != nil {
			return fmt.Errorf("open re-order page: %w", err)
		}
	case err != nil:
		return err
	default:
		how, err := browser.FirstSuccess(ctx, browser.ClickStrategies(link, browser.EscalatingClick...)...)
		if err != nil {
			return fmt.Errorf("open re-order report: %w", err)
		}
		a.logger.InfoContext(ctx, "Opened Re-Order Report By Store", slog.String("strategy", how))
	}
	return nav.Settle(ctx, linkPause)
}

func (a *Acquirer) typeInto(ctx context.Context, nav *browser.Navigator, sel browser.Selector, text string) error {
	el, err := nav.Locate(ctx, sel, a.elementWait, browser.Present)
	if err != nil || el == nil {
		return err
	}
	if err := el.Clear(ctx); err != nil {
		return fmt.Errorf("clear %s: %w", sel, err)
	}
	if err := el.Type(ctx, text); err != nil {
		return fmt.Errorf("type into %s: %w", sel, err)
	}
	return nil
}

// fillForm sets the day range and submits the report form
func (a *Acquirer) fillForm(ctx context.Context, nav *browser.Navigator) error {
	if err := nav.Settle(ctx, formPause); err != nil {
		return err
	}

	days, err := nav.Locate(ctx, selDays, a.elementWait, browser.Present)
	if err != nil {
		return err
	}
	if days != nil {
		if err := a.setDays(ctx, nav, days); err != nil {
			return err
		}
	}

	generate, err := nav.Locate(ctx, selGenerate, a.elementWait, browser.Present)
	if err != nil {
		return err
	}
	if generate == nil {
		a.logger.ErrorContext(ctx, "Generate button not found")
		return ErrGenerateUnavailable
	}
	if _, err := browser.FirstSuccess(ctx, browser.ClickStrategies(generate, browser.DirectClick, browser.ScriptedClick)...); err != nil {
		a.logger.ErrorContext(ctx, "Failed to click Generate button", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrGenerateUnavailable, err)
	}

	a.logger.InfoContext(ctx, "Form submitted, waiting for report generation")
	return nav.Settle(ctx, generatePause)
}

func (a *Acquirer) setDays(ctx context.Context, nav *browser.Navigator, days browser.Element) error {
	if err := days.Click(ctx); err != nil {
		return fmt.Errorf("focus days field: %w", err)
	}
	if err := nav.Settle(ctx, daysClick); err != nil {
		return err
	}
	if err := days.Clear(ctx); err != nil {
		return fmt.Errorf("clear days field: %w", err)
	}
	if err := nav.Settle(ctx, daysPause); err != nil {
		return err
	}
	if err := days.Type(ctx, a.cfg.Days); err != nil {
		return fmt.Errorf("type days: %w", err)
	}
	if err := nav.Settle(ctx, daysPause); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "Set days", slog.String("days", a.cfg.Days))
	return nil
}

// awaitExport polls for the export control or a visible error message
// until the poll ceiling. A timeout leaves a screenshot behind.
func (a *Acquirer) awaitExport(ctx context.Context, nav *browser.Navigator) error {
	interval := a.cfg.PollInterval
	for elapsed := time.Duration(0); elapsed < a.cfg.PollCeiling; elapsed += interval {
		done, err := a.poll(ctx, nav, elapsed)
		if done || err != nil {
			return err
		}

		if err := nav.Settle(ctx, interval); err != nil {
			return err
		}
		if waited := elapsed + interval; a.cfg.ProgressEvery > 0 && waited%a.cfg.ProgressEvery == 0 {
			a.logger.InfoContext(ctx, "Still waiting for report", slog.Duration("elapsed", waited))
		}
	}

	a.metrics.RecordReportWait(ctx, a.cfg.PollCeiling, "timeout")
	a.logger.ErrorContext(ctx, "Report generation timed out", slog.Duration("ceiling", a.cfg.PollCeiling))
	name := fmt.Sprintf("report_timeout_%s.png", a.now().Format("20060102_150405"))
	nav.Screenshot(ctx, filepath.Join(a.screenshotDir, name))
	return fmt.Errorf("%w after %s", ErrReportTimeout, a.cfg.PollCeiling)
}

// poll checks once for the export control and for error text. Lookup
// failures are transient and only logged.
func (a *Acquirer) poll(ctx context.Context, nav *browser.Navigator, elapsed time.Duration) (bool, error) {
	export, err := nav.LocateAny(ctx, selExport)
	switch {
	case err == nil:
		if cerr := export.Click(ctx); cerr != nil {
			a.logger.DebugContext(ctx, "Export click failed", slog.Duration("elapsed", elapsed), slog.String("error", cerr.Error()))
			break
		}
		a.metrics.RecordReportWait(ctx, elapsed, "ready")
		a.logger.InfoContext(ctx, "Report generated, export started", slog.Duration("elapsed", elapsed))
		return true, nav.Settle(ctx, a.cfg.ExportSettle)
	case !errors.Is(err, browser.ErrNotFound):
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		a.logger.DebugContext(ctx, "Polling check failed", slog.Duration("elapsed", elapsed), slog.String("error", err.Error()))
	}

	if msg, found := a.visibleError(ctx, nav); found {
		a.metrics.RecordReportWait(ctx, elapsed, "error")
		a.logger.ErrorContext(ctx, "Error message found", slog.String("message", msg))
		return true, fmt.Errorf("%w: %s", ErrReportError, msg)
	}
	return false, nil
}

func (a *Acquirer) visibleError(ctx context.Context, nav *browser.Navigator) (string, bool) {
	els, err := nav.FindAll(ctx, selError)
	if err != nil {
		return "", false
	}
	for _, el := range els {
		visible, err := el.Visible(ctx)
		if err != nil || !visible {
			continue
		}
		text, err := el.Text(ctx)
		if err == nil && text != "" {
			return text, true
		}
	}
	return "", false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
