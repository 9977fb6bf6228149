package operations

import (
	"sync"
	"time"
)

// Step names of the per-account pipeline, in execution order
const (
	StepBrowser   = "browser"
	StepLogin     = "login"
	StepStages    = "stages"
	StepExtract   = "extract"
	StepAcquire   = "acquire"
	StepTransform = "transform"
	StepDeliver   = "deliver"
)

// stepOrder lists the step names in execution order
var stepOrder = []string{
	StepBrowser, StepLogin, StepStages, StepExtract, StepAcquire, StepTransform, StepDeliver,
}

// StepStatus represents the status of one step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState tracks one step of an account run
type StepState struct {
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Error     error      `json:"-"`
}

// Duration returns how long the step ran
func (s *StepState) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// AccountState tracks the steps of one account run in the order they
// started.
type AccountState struct {
	mu sync.RWMutex

	Account string
	order   []string
	steps   map[string]*StepState
	now     func() time.Time
}

// NewAccountState creates an empty state for account
func NewAccountState(account string, now func() time.Time) *AccountState {
	if now == nil {
		now = time.Now
	}
	return &AccountState{
		Account: account,
		steps:   make(map[string]*StepState),
		now:     now,
	}
}

// Begin marks step active
func (a *AccountState) Begin(step string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.steps[step]; !ok {
		a.order = append(a.order, step)
	}
	a.steps[step] = &StepState{Name: step, Status: StepStatusActive, StartTime: a.now()}
}

// Finish closes step with completed or failed depending on err
func (a *AccountState) Finish(step string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.steps[step]
	if !ok {
		return
	}
	s.EndTime = a.now()
	s.Error = err
	s.Status = StepStatusCompleted
	if err != nil {
		s.Status = StepStatusFailed
	}
}

// Skip records step as skipped without running it
func (a *AccountState) Skip(step string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.steps[step]; !ok {
		a.order = append(a.order, step)
	}
	now := a.now()
	a.steps[step] = &StepState{Name: step, Status: StepStatusSkipped, StartTime: now, EndTime: now}
}

// Step returns a copy of the named step state
func (a *AccountState) Step(step string) (StepState, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.steps[step]
	if !ok {
		return StepState{}, false
	}
	return *s, true
}

// Steps returns copies of every step in start order
func (a *AccountState) Steps() []StepState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]StepState, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, *a.steps[name])
	}
	return out
}

// Active returns the name of the step currently running, if any
func (a *AccountState) Active() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for i := len(a.order) - 1; i >= 0; i-- {
		if a.steps[a.order[i]].Status == StepStatusActive {
			return a.order[i]
		}
	}
	return ""
}

// FailedStep returns the first failed step, if any
func (a *AccountState) FailedStep() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, name := range a.order {
		if a.steps[name].Status == StepStatusFailed {
			return name
		}
	}
	return ""
}
