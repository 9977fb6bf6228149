package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"idoosync/internal/timing"
)

// DefaultPollInterval is how often Locate re-checks the page
const DefaultPollInterval = 250 * time.Millisecond

// Navigator adds waiting, conditions and logging on top of a Driver.
type Navigator struct {
	driver       Driver
	sleeper      timing.Sleeper
	logger       *slog.Logger
	pollInterval time.Duration
}

// NavigatorOption configures a Navigator
type NavigatorOption func(*Navigator)

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(d time.Duration) NavigatorOption {
	return func(n *Navigator) {
		if d > 0 {
			n.pollInterval = d
		}
	}
}

// NewNavigator creates a Navigator over driver
func NewNavigator(driver Driver, sleeper timing.Sleeper, logger *slog.Logger, opts ...NavigatorOption) *Navigator {
	if sleeper == nil {
		sleeper = timing.RealSleeper{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &Navigator{
		driver:       driver,
		sleeper:      sleeper,
		logger:       logger,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Driver returns the underlying driver
func (n *Navigator) Driver() Driver {
	return n.driver
}

// Locate waits up to timeout for an element matching sel that satisfies
// cond. An element that never shows up yields (nil, nil) and a warning;
// driver failures are returned.
func (n *Navigator) Locate(ctx context.Context, sel Selector, timeout time.Duration, cond Condition) (Element, error) {
	el, err := n.wait(ctx, sel, timeout, cond)
	if errors.Is(err, ErrNotFound) {
		n.logger.WarnContext(ctx, "Element not found within timeout",
			slog.String("selector", sel.String()),
			slog.Duration("timeout", timeout),
			slog.String("condition", cond.String()))
		return nil, nil
	}
	return el, err
}

// Find is Locate without the warning: absence is reported as ErrNotFound.
func (n *Navigator) Find(ctx context.Context, sel Selector, timeout time.Duration, cond Condition) (Element, error) {
	return n.wait(ctx, sel, timeout, cond)
}

// LocateAny tries each selector in order with a single immediate check
// and returns the first match, or ErrNotFound.
func (n *Navigator) LocateAny(ctx context.Context, sels ...Selector) (Element, error) {
	for _, sel := range sels {
		el, err := n.wait(ctx, sel, 0, Present)
		if err == nil {
			n.logger.DebugContext(ctx, "Element located", slog.String("selector", sel.String()))
			return el, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// AwaitAny repeats LocateAny until one of sels matches or timeout
// elapses, returning ErrNotFound in the latter case.
func (n *Navigator) AwaitAny(ctx context.Context, timeout time.Duration, sels ...Selector) (Element, error) {
	polls := timing.Polls(timeout, n.pollInterval)
	for i := 0; ; i++ {
		el, err := n.LocateAny(ctx, sels...)
		if !errors.Is(err, ErrNotFound) {
			return el, err
		}
		if i >= polls {
			return nil, err
		}
		if err := n.sleeper.Sleep(ctx, n.pollInterval); err != nil {
			return nil, err
		}
	}
}

// FindAll returns every element matching sel right now
func (n *Navigator) FindAll(ctx context.Context, sel Selector) ([]Element, error) {
	return n.driver.FindAll(ctx, sel)
}

// Exists reports whether sel currently matches anything
func (n *Navigator) Exists(ctx context.Context, sel Selector) (bool, error) {
	els, err := n.driver.FindAll(ctx, sel)
	if err != nil {
		return false, err
	}
	return len(els) > 0, nil
}

func (n *Navigator) wait(ctx context.Context, sel Selector, timeout time.Duration, cond Condition) (Element, error) {
	polls := timing.Polls(timeout, n.pollInterval)
	for i := 0; ; i++ {
		el, err := n.check(ctx, sel, cond)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}
		if i >= polls {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sel)
		}
		if err := n.sleeper.Sleep(ctx, n.pollInterval); err != nil {
			return nil, err
		}
	}
}

func (n *Navigator) check(ctx context.Context, sel Selector, cond Condition) (Element, error) {
	els, err := n.driver.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	for _, el := range els {
		ok, err := satisfies(ctx, el, cond)
		if errors.Is(err, ErrStaleElement) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if ok {
			return el, nil
		}
	}
	return nil, nil
}

func satisfies(ctx context.Context, el Element, cond Condition) (bool, error) {
	if cond == Present {
		return true, nil
	}
	visible, err := el.Visible(ctx)
	if err != nil || !visible {
		return false, err
	}
	if cond == Visible {
		return true, nil
	}
	return el.Enabled(ctx)
}

// SwitchContext descends into the named frame
func (n *Navigator) SwitchContext(ctx context.Context, name string) error {
	if err := n.driver.EnterFrame(ctx, name); err != nil {
		return fmt.Errorf("switch to %q: %w", name, err)
	}
	return nil
}

// DefaultContext returns to the top-level document
func (n *Navigator) DefaultContext(ctx context.Context) error {
	return n.driver.ExitFrames(ctx)
}

// Descend resets to the top-level document and enters each named frame in
// turn, settling for pause after each one.
func (n *Navigator) Descend(ctx context.Context, pause time.Duration, names ...string) error {
	if err := n.DefaultContext(ctx); err != nil {
		return err
	}
	for _, name := range names {
		if err := n.SwitchContext(ctx, name); err != nil {
			return err
		}
		if err := n.Settle(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

// Navigate loads url in the top-level document
func (n *Navigator) Navigate(ctx context.Context, url string) error {
	n.logger.DebugContext(ctx, "Navigating", slog.String("url", url))
	return n.driver.Navigate(ctx, url)
}

// Reload refreshes the page
func (n *Navigator) Reload(ctx context.Context) error {
	return n.driver.Reload(ctx)
}

// ReloadCurrent navigates to the current URL again
func (n *Navigator) ReloadCurrent(ctx context.Context) error {
	url, err := n.driver.URL(ctx)
	if err != nil {
		return fmt.Errorf("read current url: %w", err)
	}
	return n.driver.Navigate(ctx, url)
}

// Settle waits a fixed delay
func (n *Navigator) Settle(ctx context.Context, d time.Duration) error {
	return n.sleeper.Sleep(ctx, d)
}

// HTML returns the markup of the current context
func (n *Navigator) HTML(ctx context.Context) (string, error) {
	return n.driver.HTML(ctx)
}

// Screenshot saves a diagnostic capture. Failures are logged only.
func (n *Navigator) Screenshot(ctx context.Context, path string) bool {
	if err := n.driver.Screenshot(ctx, path); err != nil {
		n.logger.WarnContext(ctx, "Screenshot failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return false
	}
	n.logger.InfoContext(ctx, "Screenshot saved", slog.String("path", path))
	return true
}
