package vision

import (
	"context"
	"time"
)

// RetryDelay is the pause before the next read after failures consecutive
// unreadable frames: base doubled per failure, at most base<<maxShift.
func RetryDelay(base time.Duration, failures, maxShift int) time.Duration {
	if failures < 1 {
		return 0
	}
	shift := min(failures-1, maxShift)
	return base << shift
}

// Wait blocks for d or until ctx is done, returning the context error then.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
