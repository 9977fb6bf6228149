package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"idoosync/internal/browser"
	"idoosync/internal/config"
	"idoosync/internal/infrastructure"
	"idoosync/internal/portal"
	"idoosync/internal/timing"
	"idoosync/internal/transform"
	"idoosync/pkg/contracts/domain"
)

// Launcher opens the browser session shared by every account of a batch
type Launcher func(ctx context.Context) (browser.Driver, error)

// Recorder persists account outcomes
type Recorder interface {
	Record(ctx context.Context, outcome domain.RunOutcome) error
}

// Ledger is a Recorder that can read its outcomes back. When the history
// is a Ledger, each account's previous outcome and the stored totals of
// the batch are logged.
type Ledger interface {
	Recorder
	Recent(ctx context.Context, account string, limit int) ([]domain.RunOutcome, error)
	Summary(ctx context.Context, runID string) (map[domain.RunStatus]int, error)
}

// Deliverer sends a rendered workbook
type Deliverer interface {
	Send(ctx context.Context, subject, path string) error
}

// Summary is the result of one batch
type Summary struct {
	RunID    string
	Outcomes []domain.RunOutcome
	Errors   ErrorList
	Duration time.Duration
}

// Count returns how many accounts ended in status
func (s Summary) Count(status domain.RunStatus) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Orchestrator runs the pipeline for a batch of accounts. One account's
// failure never stops the batch.
type Orchestrator struct {
	paths   *config.Paths
	steps   Steps
	launch  Launcher
	history Recorder
	mailer  Deliverer
	tracer  *RunTracer
	sleeper timing.Sleeper
	now     func() time.Time
	logger  *slog.Logger

	driver browser.Driver
	nav    *browser.Navigator
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithHistory records every account outcome in r
func WithHistory(r Recorder) Option {
	return func(o *Orchestrator) { o.history = r }
}

// WithMailer delivers every rendered workbook through d
func WithMailer(d Deliverer) Option {
	return func(o *Orchestrator) { o.mailer = d }
}

// WithTracer sets the span and metrics recorder
func WithTracer(rt *RunTracer) Option {
	return func(o *Orchestrator) {
		if rt != nil {
			o.tracer = rt
		}
	}
}

// WithSleeper sets the sleeper used by the shared navigator
func WithSleeper(s timing.Sleeper) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sleeper = s
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator creates an orchestrator. launch is called lazily, once
// per batch, when the first account needs the browser.
func NewOrchestrator(paths *config.Paths, steps Steps, launch Launcher, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		paths:   paths,
		steps:   steps,
		launch:  launch,
		tracer:  NewRunTracer(nil, nil),
		sleeper: timing.RealSleeper{},
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes accounts in order. The shared browser is closed exactly
// once when the batch ends.
func (o *Orchestrator) Run(ctx context.Context, accounts []domain.Account) (summary Summary) {
	summary.RunID = uuid.NewString()
	ctx = infrastructure.WithTraceID(ctx, summary.RunID)
	start := o.now()

	o.logger.InfoContext(ctx, "Batch started",
		slog.String("run_id", summary.RunID),
		slog.Int("accounts", len(accounts)))

	defer func() {
		o.closeBrowser(ctx)
		summary.Duration = o.now().Sub(start)
		o.logger.InfoContext(ctx, "All users processed.",
			slog.Int("succeeded", summary.Count(domain.RunStatusSucceeded)),
			slog.Int("failed", summary.Count(domain.RunStatusFailed)),
			slog.Int("skipped", summary.Count(domain.RunStatusSkipped)))
		if summary.Errors.HasErrors() {
			o.logger.WarnContext(ctx, "Batch failures",
				slog.String("errors", summary.Errors.Error()),
				slog.Int("retryable", summary.Errors.Retryable()),
				failuresByStep(&summary.Errors))
		}
		o.ledgerSummary(ctx, summary.RunID)
		o.logger.InfoContext(ctx, "Total execution time",
			slog.String("total_time", fmt.Sprintf("%.2f seconds", summary.Duration.Seconds())))
	}()

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			o.logger.WarnContext(ctx, "Batch cancelled", slog.String("error", err.Error()))
			break
		}
		outcome, opErr := o.runAccount(ctx, summary.RunID, account)
		o.record(ctx, outcome)
		summary.Outcomes = append(summary.Outcomes, outcome)
		summary.Errors.Add(opErr)
	}
	return summary
}

func (o *Orchestrator) runAccount(ctx context.Context, runID string, account domain.Account) (outcome domain.RunOutcome, opErr *OperationError) {
	user := account.PortalUserID
	ctx = infrastructure.WithAccount(infrastructure.ContextWithTraceID(ctx), user)
	ctx, span := o.tracer.TraceAccount(ctx, runID, user)
	state := NewAccountState(user, o.now)
	started := o.now()

	outcome = domain.RunOutcome{
		RunID:     runID,
		Account:   user,
		Status:    domain.RunStatusFailed,
		StartedAt: started,
	}

	o.logger.InfoContext(ctx, "Processing user", slog.String("user", user))
	o.previousRun(ctx, user)

	defer func() {
		if r := recover(); r != nil {
			step := state.Active()
			err := NewFatalError(step, "unexpected panic", fmt.Errorf("%v", r))
			opErr = err
			state.Finish(step, err)
			o.logger.ErrorContext(ctx, "Unexpected error processing user",
				slog.String("user", user),
				slog.String("step", step),
				slog.String("error", err.Error()),
				slog.String("stack", string(debug.Stack())))
			o.screenshot(ctx, user)
			outcome.Status = domain.RunStatusFailed
			outcome.FailedStep = step
			outcome.Error = err.Error()
		}

		outcome.Duration = o.now().Sub(started)
		o.tracer.RecordAccountCompletion(ctx, span, string(outcome.Status), outcome.Duration, outcome.RowCount)
		span.End()

		o.logger.InfoContext(ctx, "Completed processing for user",
			slog.String("user", user),
			slog.String("status", string(outcome.Status)),
			slog.Duration("duration", outcome.Duration))
	}()

	if err := o.process(ctx, account, state, &outcome); err != nil {
		opErr = Classify(state.FailedStep(), err)
		outcome.Status = domain.RunStatusFailed
		outcome.FailedStep = opErr.Step
		outcome.Error = opErr.Error()
		o.logger.ErrorContext(ctx, "Account failed",
			slog.String("user", user),
			slog.String("step", opErr.Step),
			slog.String("error_type", string(opErr.Type)),
			slog.Bool("retryable", IsRetryable(opErr)),
			slog.String("error", opErr.Error()))
	}
	return outcome, opErr
}

func (o *Orchestrator) process(ctx context.Context, account domain.Account, state *AccountState, outcome *domain.RunOutcome) error {
	user := account.PortalUserID

	var nav *browser.Navigator
	err := o.step(ctx, state, StepBrowser, func(ctx context.Context) error {
		var err error
		nav, err = o.session(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if err := o.step(ctx, state, StepLogin, func(ctx context.Context) error {
		return o.steps.Login(ctx, nav, account)
	}); err != nil {
		o.logger.ErrorContext(ctx, "Login failed for user", slog.String("user", user))
		o.screenshot(ctx, user)
		return err
	}

	if err := o.step(ctx, state, StepStages, func(ctx context.Context) error {
		return o.steps.Prepare(ctx, nav)
	}); err != nil {
		o.screenshot(ctx, user)
		return err
	}

	var passes []portal.Pass
	if err := o.step(ctx, state, StepExtract, func(ctx context.Context) error {
		var err error
		passes, err = o.steps.Extract(ctx, nav)
		return err
	}); err != nil {
		o.screenshot(ctx, user)
		return err
	}

	skus, stock := portal.StockFromPasses(passes)
	for _, p := range passes {
		o.tracer.Metrics().RecordExtraction(ctx, p.Section, len(p.Entries))
	}
	outcome.SkuCount = skus.Len()

	if skus.Len() == 0 {
		o.logger.InfoContext(ctx, "No products have stock available.")
		state.Skip(StepAcquire)
		state.Skip(StepTransform)
		outcome.Status = domain.RunStatusSkipped
		return nil
	}
	o.logger.InfoContext(ctx, "Found items with stock", slog.Int("count", skus.Len()))

	day := o.now()
	label := account.Label()

	var acquired string
	if err := o.step(ctx, state, StepAcquire, func(ctx context.Context) error {
		var err error
		acquired, err = o.steps.Acquire(ctx, account)
		return err
	}); err != nil {
		o.logger.ErrorContext(ctx, "Failed to download report", slog.String("error", err.Error()))
		return err
	}

	var result transform.Result
	if err := o.step(ctx, state, StepTransform, func(ctx context.Context) error {
		var err error
		result, err = o.steps.Transform(ctx, acquired, skus, stock, config.OutputFileName(label, day))
		return err
	}); err != nil {
		o.logger.ErrorContext(ctx, "Failed to create report", slog.String("error", err.Error()))
		return err
	}

	outcome.Status = domain.RunStatusSucceeded
	outcome.RowCount = result.Rows
	outcome.OutputPath = result.Path
	o.logger.InfoContext(ctx, "Process completed successfully",
		slog.String("output", result.Path),
		slog.Int("rows", result.Rows))

	if o.mailer == nil {
		state.Skip(StepDeliver)
		return nil
	}
	if err := o.step(ctx, state, StepDeliver, func(ctx context.Context) error {
		return o.mailer.Send(ctx, config.MailSubject(label, day), result.Path)
	}); err != nil {
		o.logger.ErrorContext(ctx, "Error sending workbook",
			slog.String("output", result.Path),
			slog.String("error", err.Error()))
	}
	return nil
}

// step runs fn as the named step, recording its state, span and duration.
// Failures come back classified.
func (o *Orchestrator) step(ctx context.Context, state *AccountState, name string, fn func(context.Context) error) error {
	state.Begin(name)
	stepCtx, span := o.tracer.TraceStep(ctx, name)
	defer span.End()

	start := o.now()
	var err error
	if runErr := fn(stepCtx); runErr != nil {
		err = Classify(name, runErr)
	}
	state.Finish(name, err)
	o.tracer.RecordStepCompletion(stepCtx, span, name, o.now().Sub(start), err)
	return err
}

// session returns the shared navigator, launching the browser on first use
func (o *Orchestrator) session(ctx context.Context) (*browser.Navigator, error) {
	if o.nav != nil {
		return o.nav, nil
	}
	driver, err := o.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	o.driver = driver
	o.nav = browser.NewNavigator(driver, o.sleeper, o.logger)
	return o.nav, nil
}

func (o *Orchestrator) closeBrowser(ctx context.Context) {
	if o.driver == nil {
		return
	}
	if err := o.driver.Close(); err != nil {
		o.logger.WarnContext(ctx, "Error closing browser", slog.String("error", err.Error()))
	} else {
		o.logger.InfoContext(ctx, "Browser closed")
	}
	o.driver = nil
	o.nav = nil
}

// screenshot captures the shared browser for a failed account, if one is
// open
func (o *Orchestrator) screenshot(ctx context.Context, user string) {
	if o.nav == nil {
		return
	}
	o.nav.Screenshot(ctx, filepath.Join(o.paths.BaseDir, fmt.Sprintf("error_screenshot_%s.png", user)))
}

func (o *Orchestrator) record(ctx context.Context, outcome domain.RunOutcome) {
	if o.history == nil {
		return
	}
	if err := o.history.Record(ctx, outcome); err != nil {
		o.logger.WarnContext(ctx, "Failed to record run outcome",
			slog.String("account", outcome.Account),
			slog.String("error", err.Error()))
	}
}

// previousRun logs the account's last recorded outcome
func (o *Orchestrator) previousRun(ctx context.Context, account string) {
	ledger, ok := o.history.(Ledger)
	if !ok {
		return
	}
	recent, err := ledger.Recent(ctx, account, 1)
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to load previous run", slog.String("error", err.Error()))
		return
	}
	if len(recent) == 0 {
		return
	}
	prev := recent[0]
	o.logger.InfoContext(ctx, "Previous run",
		slog.String("status", string(prev.Status)),
		slog.String("failed_step", prev.FailedStep),
		slog.Time("started_at", prev.StartedAt))
}

// ledgerSummary logs the stored totals of a batch
func (o *Orchestrator) ledgerSummary(ctx context.Context, runID string) {
	ledger, ok := o.history.(Ledger)
	if !ok {
		return
	}
	counts, err := ledger.Summary(ctx, runID)
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to summarise run", slog.String("error", err.Error()))
		return
	}
	o.logger.InfoContext(ctx, "Run ledger summary",
		slog.String("run_id", runID),
		slog.Int("succeeded", counts[domain.RunStatusSucceeded]),
		slog.Int("failed", counts[domain.RunStatusFailed]),
		slog.Int("skipped", counts[domain.RunStatusSkipped]))
}

// failuresByStep groups failure counts under each step that failed
func failuresByStep(errs *ErrorList) slog.Attr {
	var attrs []any
	for _, step := range stepOrder {
		if n := len(errs.ByStep(step)); n > 0 {
			attrs = append(attrs, slog.Int(step, n))
		}
	}
	return slog.Group("by_step", attrs...)
}
