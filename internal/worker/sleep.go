package worker

import (
	"context"
	"time"
)

// sleepAbsolute blocks until deadline (an absolute monotonic-derived
// timestamp), not for a relative duration — the single property spec.md
// calls out as the Worker's most important correctness guarantee,
// because a chain of relative sleeps accumulates scheduling jitter while
// an absolute deadline never drifts. Returns false if ctx is cancelled
// first, the Go equivalent of the original's EINTR-interrupted
// clock_nanosleep.
func sleepAbsolute(ctx context.Context, deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
