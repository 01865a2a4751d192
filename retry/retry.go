// Package retry runs a fallible operation a bounded number of times with a fixed pause between
// attempts.
package retry

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/bringup/components/board/genericlinux/buses"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/utils"
)

// Policy is a bounded, fixed-delay retry policy.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first. Values below 1 mean 1.
	MaxAttempts int
	// Delay is slept between a failed attempt and the next one. It is not slept after the last.
	Delay  time.Duration
	Clock  clock.Clock
	Logger logging.Logger
}

func (p *Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do calls fn until it succeeds or the attempts run out, and returns the last error. Every
// failure is logged at WARN with keysAndValues, the attempt number and the bound.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error, keysAndValues ...interface{}) error {
	clk := utils.ClockOrDefault(p.Clock)
	maxAttempts := p.attempts()

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Logger != nil {
			p.Logger.Warnw("attempt failed",
				append(append([]interface{}{}, keysAndValues...), "attempt", attempt, "max", maxAttempts, "error", err)...)
		}
		if attempt < maxAttempts {
			if ctxErr := utils.SleepContext(ctx, clk, p.Delay); ctxErr != nil {
				return ctxErr
			}
		}
	}
	return err
}

// Send writes payload to handle under the policy.
func (p *Policy) Send(ctx context.Context, handle buses.I2CHandle, payload []byte, keysAndValues ...interface{}) error {
	return p.Do(ctx, func(ctx context.Context) error {
		return handle.Write(ctx, payload)
	}, keysAndValues...)
}
