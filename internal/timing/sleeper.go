// Package timing provides the waiting primitive used by every poll loop.
package timing

import (
	"context"
	"time"
)

// Sleeper blocks for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper sleeps on the wall clock.
type RealSleeper struct{}

// Sleep implements Sleeper
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Polls returns how many re-checks fit into ceiling at the given interval,
// not counting the initial check.
func Polls(ceiling, interval time.Duration) int {
	if interval <= 0 || ceiling <= 0 {
		return 0
	}
	return int(ceiling / interval)
}
