package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"idoosync/internal/browser"
	"idoosync/internal/config"
)

// State is a position in the catalog acquisition sequence
type State int

const (
	Disconnected State = iota
	ContextReady
	MenuActive
	CatalogReady
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case ContextReady:
		return "context_ready"
	case MenuActive:
		return "menu_active"
	case CatalogReady:
		return "catalog_ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrStageFailed means a stage never succeeded within its retry budget
var ErrStageFailed = errors.New("stage retries exhausted")

// StageError names the stage that exhausted its budget and its last failure
type StageError struct {
	Stage    string
	From     State
	Attempts int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts: %v", e.Stage, ErrStageFailed, e.Attempts, e.Err)
}

// Unwrap returns both the sentinel and the last attempt's failure
func (e *StageError) Unwrap() []error {
	return []error{ErrStageFailed, e.Err}
}

// Transition moves the sequence from one state to the next. Action runs up
// to Attempts times; Recover runs between failed attempts.
type Transition struct {
	Stage    string
	From     State
	To       State
	Attempts int
	// Prepare runs once before the first attempt
	Prepare func(ctx context.Context) error
	Action  func(ctx context.Context) error
	// Recovery names the Recover action in logs and metrics
	Recovery string
	Recover  func(ctx context.Context) error
}

// StageSequencer walks Disconnected to CatalogReady through a fixed
// transition table.
type StageSequencer struct {
	nav     *browser.Navigator
	cfg     config.PortalConfig
	logger  *slog.Logger
	policy  []Transition
	state   State
	onRetry func(ctx context.Context, stage string)
}

// SequencerOption configures a StageSequencer
type SequencerOption func(*StageSequencer)

// WithRetryHook is called each time a recovery action runs
func WithRetryHook(fn func(ctx context.Context, stage string)) SequencerOption {
	return func(s *StageSequencer) { s.onRetry = fn }
}

// NewStageSequencer creates a sequencer with the portal's transition policy
func NewStageSequencer(nav *browser.Navigator, cfg config.PortalConfig, logger *slog.Logger, opts ...SequencerOption) *StageSequencer {
	s := &StageSequencer{nav: nav, cfg: cfg, logger: logger}
	s.policy = s.defaultPolicy()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the transition table
func (s *StageSequencer) Policy() []Transition {
	return append([]Transition(nil), s.policy...)
}

// State returns the current state
func (s *StageSequencer) State() State {
	return s.state
}

func (s *StageSequencer) defaultPolicy() []Transition {
	attempts := s.cfg.StageAttempts
	return []Transition{
		{
			Stage:    "context_descent",
			From:     Disconnected,
			To:       ContextReady,
			Attempts: attempts,
			Action:   s.descendHeader,
			Recovery: "refresh",
			Recover:  s.refresh,
		},
		{
			Stage:    "menu_activation",
			From:     ContextReady,
			To:       MenuActive,
			Attempts: attempts,
			Action:   s.clickCatalogView,
			Recovery: "reload_current",
			Recover:  s.reloadAndDescend,
		},
		{
			Stage:    "catalog_render",
			From:     MenuActive,
			To:       CatalogReady,
			Attempts: attempts,
			Prepare:  s.settleCatalog,
			Action:   s.descendForm,
			Recovery: "reclick_menu",
			Recover:  s.reclickMenu,
		},
	}
}

// Run drives the sequence from Disconnected. It stops at the first stage
// whose budget is exhausted, leaving the sequencer in Failed.
func (s *StageSequencer) Run(ctx context.Context) (State, error) {
	s.state = Disconnected

	for _, t := range s.policy {
		if s.state != t.From {
			s.state = Failed
			return s.state, fmt.Errorf("stage %s expects %s, sequencer is %s", t.Stage, t.From, s.state)
		}

		if err := s.runTransition(ctx, t); err != nil {
			s.state = Failed
			s.logger.ErrorContext(ctx, "Stage failed",
				slog.String("stage", t.Stage),
				slog.String("error", err.Error()))
			return s.state, err
		}

		s.logger.InfoContext(ctx, "Stage satisfied",
			slog.String("stage", t.Stage),
			slog.String("state", t.To.String()))
		s.state = t.To
	}
	return s.state, nil
}

func (s *StageSequencer) runTransition(ctx context.Context, t Transition) error {
	if t.Prepare != nil {
		if err := t.Prepare(ctx); err != nil {
			return err
		}
	}

	attempts := max(t.Attempts, 1)
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		last = t.Action(ctx)
		if last == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		s.logger.WarnContext(ctx, "Stage attempt failed",
			slog.String("stage", t.Stage),
			slog.Int("attempt", attempt),
			slog.String("error", last.Error()))

		if attempt == attempts || t.Recover == nil {
			continue
		}
		if s.onRetry != nil {
			s.onRetry(ctx, t.Stage)
		}
		if err := t.Recover(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.WarnContext(ctx, "Recovery failed",
				slog.String("stage", t.Stage),
				slog.String("recovery", t.Recovery),
				slog.String("error", err.Error()))
		}
	}
	return &StageError{Stage: t.Stage, From: t.From, Attempts: attempts, Err: last}
}

func (s *StageSequencer) descendHeader(ctx context.Context) error {
	return s.nav.Descend(ctx, framePause, FrameTop, FrameHeader)
}

func (s *StageSequencer) descendForm(ctx context.Context) error {
	if err := s.nav.DefaultContext(ctx); err != nil {
		return err
	}
	if err := s.nav.SwitchContext(ctx, FrameTop); err != nil {
		return err
	}
	if err := s.nav.Settle(ctx, framePause); err != nil {
		return err
	}
	return s.nav.SwitchContext(ctx, FrameForm)
}

func (s *StageSequencer) clickCatalogView(ctx context.Context) error {
	el, err := s.nav.Find(ctx, selCatalogView, 0, browser.Present)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("click catalog view: %w", err)
	}
	s.logger.InfoContext(ctx, "Clicked catalog view button")
	return nil
}

func (s *StageSequencer) settleCatalog(ctx context.Context) error {
	return s.nav.Settle(ctx, s.cfg.CatalogSettle)
}

// refresh reloads the frameset before descending again
func (s *StageSequencer) refresh(ctx context.Context) error {
	if err := s.nav.Reload(ctx); err != nil {
		return err
	}
	return s.nav.Settle(ctx, refreshPause)
}

// reloadAndDescend reloads the current URL and re-enters the header frame
func (s *StageSequencer) reloadAndDescend(ctx context.Context) error {
	if err := s.reloadCurrent(ctx); err != nil {
		return err
	}
	return s.descendHeader(ctx)
}

func (s *StageSequencer) reloadCurrent(ctx context.Context) error {
	if err := s.nav.ReloadCurrent(ctx); err != nil {
		return err
	}
	return s.nav.Settle(ctx, reloadPause)
}

// reclickMenu activates the catalog view again from the header frame,
// reloading the page when the control cannot be reached.
func (s *StageSequencer) reclickMenu(ctx context.Context) error {
	err := s.nav.Descend(ctx, 0, FrameTop, FrameHeader)
	if err == nil {
		err = s.clickCatalogView(ctx)
	}
	if err == nil {
		return s.nav.Settle(ctx, reclickPause)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Catalog control unreachable, reloading", slog.String("error", err.Error()))
	return s.reloadCurrent(ctx)
}
