package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"idoosync/internal/browser"
	"idoosync/internal/config"
)

// ErrLoginFailed means the success marker never appeared in any attempt
var ErrLoginFailed = errors.New("portal login failed")

// Authenticator logs into the dealer-ordering portal
type Authenticator struct {
	nav         *browser.Navigator
	cfg         config.PortalConfig
	elementWait time.Duration
	logger      *slog.Logger
}

// NewAuthenticator creates an Authenticator
func NewAuthenticator(nav *browser.Navigator, cfg config.PortalConfig, elementWait time.Duration, logger *slog.Logger) *Authenticator {
	if elementWait <= 0 {
		elementWait = config.DefaultElementWait
	}
	return &Authenticator{nav: nav, cfg: cfg, elementWait: elementWait, logger: logger}
}

// Login signs in as user, retrying up to maxAttempts times with a page
// refresh in between. Missing form controls fail the attempt rather than
// aborting it. It returns ErrLoginFailed once attempts are exhausted.
func (a *Authenticator) Login(ctx context.Context, user, password string, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		a.logger.InfoContext(ctx, "Login attempt",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts))

		ok, err := a.attempt(ctx, user, password)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ok {
			a.logger.InfoContext(ctx, "Login successful", slog.String("user", user))
			return nil
		}
		if err != nil {
			a.logger.ErrorContext(ctx, "Error during login attempt",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		} else {
			a.logger.WarnContext(ctx, "Login attempt failed", slog.Int("attempt", attempt))
		}

		if attempt < maxAttempts {
			a.logger.InfoContext(ctx, "Refreshing page and retrying")
			if err := a.nav.Reload(ctx); err != nil {
				a.logger.WarnContext(ctx, "Refresh failed", slog.String("error", err.Error()))
			}
			if err := a.nav.Settle(ctx, retryPause); err != nil {
				return err
			}
		}
	}

	a.logger.ErrorContext(ctx, "All login attempts failed", slog.String("user", user))
	return fmt.Errorf("%w for %s after %d attempts", ErrLoginFailed, user, maxAttempts)
}

func (a *Authenticator) attempt(ctx context.Context, user, password string) (bool, error) {
	if err := a.nav.Navigate(ctx, a.cfg.EntryURL); err != nil {
		return false, fmt.Errorf("open entry page: %w", err)
	}
	if err := a.nav.Settle(ctx, a.cfg.LoginSettle); err != nil {
		return false, err
	}

	userField, err := a.nav.Locate(ctx, selUserID, config.DefaultUserFieldWait, browser.Present)
	if err != nil {
		return false, err
	}
	if userField == nil {
		a.logger.ErrorContext(ctx, "Login form not found")
		return false, nil
	}
	if err := a.fill(ctx, userField, user); err != nil {
		return false, fmt.Errorf("enter user id: %w", err)
	}

	passField, err := a.nav.Locate(ctx, selPassword, a.elementWait, browser.Present)
	if err != nil {
		return false, err
	}
	if passField != nil {
		if err := a.fill(ctx, passField, password); err != nil {
			return false, fmt.Errorf("enter password: %w", err)
		}
	}

	if err := a.clickIfPresent(ctx, selAgreeTerms, agreePause); err != nil {
		return false, fmt.Errorf("agree to terms: %w", err)
	}
	if err := a.clickIfPresent(ctx, selLoginButton, submitPause); err != nil {
		return false, fmt.Errorf("submit login: %w", err)
	}

	for i := 0; i < a.cfg.MarkerPolls; i++ {
		found, err := a.nav.Exists(ctx, selLoginMarker)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
		if err := a.nav.Settle(ctx, markerInterval); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (a *Authenticator) fill(ctx context.Context, el browser.Element, value string) error {
	if err := el.Clear(ctx); err != nil {
		return err
	}
	if err := a.nav.Settle(ctx, fieldPause); err != nil {
		return err
	}
	return el.Type(ctx, value)
}

func (a *Authenticator) clickIfPresent(ctx context.Context, sel browser.Selector, pause time.Duration) error {
	el, err := a.nav.Locate(ctx, sel, a.elementWait, browser.Present)
	if err != nil || el == nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return err
	}
	return a.nav.Settle(ctx, pause)
}
