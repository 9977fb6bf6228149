package operations

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickingClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}

func TestAccountStateLifecycle(t *testing.T) {
	state := NewAccountState("user", tickingClock(batchDay, time.Second))

	state.Begin(StepLogin)
	assert.Equal(t, StepLogin, state.Active())
	state.Finish(StepLogin, nil)
	assert.Empty(t, state.Active())

	state.Begin(StepStages)
	state.Finish(StepStages, errors.New("frame missing"))
	state.Skip(StepDeliver)

	steps := state.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, StepStatusCompleted, steps[0].Status)
	assert.Equal(t, time.Second, steps[0].Duration())
	assert.Equal(t, StepStatusFailed, steps[1].Status)
	assert.EqualError(t, steps[1].Error, "frame missing")
	assert.Equal(t, StepStatusSkipped, steps[2].Status)
	assert.Zero(t, steps[2].Duration())

	assert.Equal(t, StepStages, state.FailedStep())

	login, ok := state.Step(StepLogin)
	require.True(t, ok)
	assert.Equal(t, StepLogin, login.Name)
	_, ok = state.Step(StepAcquire)
	assert.False(t, ok)
}

func TestAccountStateIgnoresUnknownFinish(t *testing.T) {
	state := NewAccountState("user", nil)
	state.Finish(StepLogin, errors.New("never begun"))
	assert.Empty(t, state.Steps())
	assert.Empty(t, state.FailedStep())
}

func TestStepDurationWhileActive(t *testing.T) {
	s := StepState{Status: StepStatusActive, StartTime: batchDay}
	assert.Zero(t, s.Duration())
}
