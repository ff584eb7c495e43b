package relationships

import (
	"context"
	"time"
)

// Sleeper pauses between API calls.
type Sleeper interface {
	Sleep(executionContext context.Context, duration time.Duration) error
}

// TimerSleeper waits on a timer and stops early when the context is cancelled.
type TimerSleeper struct{}

// Sleep blocks for duration or until executionContext is done.
func (TimerSleeper) Sleep(executionContext context.Context, duration time.Duration) error {
	if duration <= 0 {
		return executionContext.Err()
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-timer.C:
		return nil
	}
}
