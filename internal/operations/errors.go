package operations

import (
	"context"
	"errors"
	"fmt"

	"idoosync/internal/browser"
	"idoosync/internal/files"
	"idoosync/internal/portal"
	"idoosync/internal/rtpos"
	"idoosync/internal/transform"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeRetryable ErrorType = "retryable"
	ErrorTypeStage     ErrorType = "stage"
	ErrorTypeData      ErrorType = "data"
	ErrorTypeFatal     ErrorType = "fatal"
	ErrorTypeTimeout   ErrorType = "timeout"
)

// OperationError is a step failure for one account
type OperationError struct {
	Type      ErrorType `json:"type"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Retryable bool      `json:"retryable"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewStageError reports a step whose retries are exhausted
func NewStageError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeStage,
		Step:    step,
		Message: "step failed",
		Cause:   cause,
	}
}

// NewDataError reports missing or unusable data for a step
func NewDataError(step, message string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeData,
		Step:    step,
		Message: message,
		Cause:   cause,
	}
}

// NewTimeoutError reports a step that hit its ceiling
func NewTimeoutError(step string, cause error) *OperationError {
	return &OperationError{
		Type:      ErrorTypeTimeout,
		Step:      step,
		Message:   "step timed out",
		Cause:     cause,
		Retryable: true,
	}
}

// NewFatalError reports an unexpected failure such as a recovered panic
func NewFatalError(step, message string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeFatal,
		Step:    step,
		Message: message,
		Cause:   cause,
	}
}

// Classify wraps err from step into an OperationError according to the
// sentinel it carries. OperationErrors pass through with Step filled in.
func Classify(step string, err error) *OperationError {
	if err == nil {
		return nil
	}

	var opErr *OperationError
	if errors.As(err, &opErr) {
		if opErr.Step == "" {
			opErr.Step = step
		}
		return opErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, rtpos.ErrReportTimeout),
		errors.Is(err, files.ErrDownloadTimeout):
		return NewTimeoutError(step, err)
	case errors.Is(err, transform.ErrNoMatchingItems),
		errors.Is(err, transform.ErrMalformedReport):
		return NewDataError(step, "report unusable", err)
	case errors.Is(err, portal.ErrStageFailed):
		return NewStageError(step, err)
	case errors.Is(err, browser.ErrNotFound),
		errors.Is(err, browser.ErrContextNotFound),
		errors.Is(err, browser.ErrStrategiesExhausted):
		return &OperationError{
			Type:      ErrorTypeRetryable,
			Step:      step,
			Message:   "page interaction failed",
			Cause:     err,
			Retryable: true,
		}
	}
	return NewStageError(step, err)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Retryable
	}
	return false
}

// GetErrorType returns the type of the error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeStage
}

// ErrorList collects the failures of a batch
type ErrorList struct {
	Errors []*OperationError `json:"errors"`
}

// Error implements the error interface
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors: %d errors occurred", len(e.Errors))
}

// Add adds an error to the list
func (e *ErrorList) Add(err *OperationError) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// Retryable counts the errors marked retryable
func (e *ErrorList) Retryable() int {
	n := 0
	for _, err := range e.Errors {
		if IsRetryable(err) {
			n++
		}
	}
	return n
}

// HasErrors returns true if there are any errors
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ByStep returns errors for a specific step
func (e *ErrorList) ByStep(step string) []*OperationError {
	var out []*OperationError
	for _, err := range e.Errors {
		if err.Step == step {
			out = append(out, err)
		}
	}
	return out
}
