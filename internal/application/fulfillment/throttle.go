package fulfillment

import (
	"context"
	"time"
)

// DefaultInterRequestDelay is the pause inserted between upstream calls in
// any batch loop, keeping the jobs under the upstream's rate limits.
const DefaultInterRequestDelay = 750 * time.Millisecond

// Throttle inserts a fixed delay between upstream calls. The sleep function
// is injectable so batch-job tests run without real delays.
type Throttle struct {
	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

// NewThrottle creates a throttle with the given inter-request delay.
// A non-positive delay disables waiting.
func NewThrottle(delay time.Duration) *Throttle {
	return &Throttle{delay: delay, sleep: sleepContext}
}

// NewThrottleWithSleep creates a throttle with a custom sleep function,
// for tests.
func NewThrottleWithSleep(delay time.Duration, sleep func(ctx context.Context, d time.Duration) error) *Throttle {
	return &Throttle{delay: delay, sleep: sleep}
}

// Wait blocks for the configured delay or until ctx is cancelled.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.delay <= 0 {
		return ctx.Err()
	}
	return t.sleep(ctx, t.delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
