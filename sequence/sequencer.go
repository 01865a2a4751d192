package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/bringup/components/board/genericlinux/buses"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/retry"
	"go.viam.com/bringup/utils"
)

// ErrWriteFailed is matched by every *WriteFailedError.
var ErrWriteFailed = errors.New("register write failed")

// WriteFailedError reports the entry that could not be written after all retries.
type WriteFailedError struct {
	Index int
	Addr  uint16
	Val   uint16
	Err   error
}

func (e *WriteFailedError) Error() string {
	return fmt.Sprintf("writing entry %d (%#06x <- %#06x): %v", e.Index, e.Addr, e.Val, e.Err)
}

// Is matches ErrWriteFailed.
func (e *WriteFailedError) Is(target error) bool {
	return target == ErrWriteFailed
}

// Unwrap returns the last transport error.
func (e *WriteFailedError) Unwrap() error {
	return e.Err
}

// Sequencer runs tables against one bus handle.
type Sequencer struct {
	Handle buses.I2CHandle
	Retry  *retry.Policy
	// Encode defaults to EncodeBE16.
	Encode Encoder
	Clock  clock.Clock
	Logger logging.Logger
}

// Run walks table in order. Waits block on the sequencer clock and complete before the next
// write is issued. The first write that exhausts its retries aborts the run; nothing after it is
// sent.
func (s *Sequencer) Run(ctx context.Context, table Table) error {
	if err := table.Validate(); err != nil {
		return err
	}
	clk := utils.ClockOrDefault(s.Clock)
	encode := s.Encode
	if encode == nil {
		encode = EncodeBE16
	}
	policy := s.Retry
	if policy == nil {
		policy = &retry.Policy{MaxAttempts: 1}
	}

	for i, e := range table {
		switch e.Addr {
		case TableEnd:
			return nil
		case WaitMS:
			if err := utils.SleepContext(ctx, clk, time.Duration(e.Val)*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		err := policy.Send(ctx, s.Handle, encode(e), "index", i, "addr", e.Addr, "val", e.Val)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Errorw("register write failed", "index", i, "addr", e.Addr, "val", e.Val, "error", err)
			}
			return &WriteFailedError{Index: i, Addr: e.Addr, Val: e.Val, Err: err}
		}
	}
	// Unreachable for a validated table.
	return ErrUnterminatedTable
}
