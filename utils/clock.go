package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// SleepContext blocks for d on clk and then reports whether ctx ended in the meantime. A
// non-positive d does not sleep.
func SleepContext(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d > 0 {
		clk.Sleep(d)
	}
	return ctx.Err()
}

// ClockOrDefault returns clk, or the wall clock when clk is nil.
func ClockOrDefault(clk clock.Clock) clock.Clock {
	if clk == nil {
		return clock.New()
	}
	return clk
}
