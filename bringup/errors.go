package bringup

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrProbeFailed is matched by every *ProbeError.
	ErrProbeFailed = errors.New("device did not acknowledge probe")
	// ErrResourceUnavailable is matched by every *ResourceError.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrInvalidTransition is returned when an operation is not valid from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrUnknownCommand is returned by DoCommand for commands it does not handle.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrClosed is returned by operations on a closed device.
	ErrClosed = errors.New("device is closed")
)

// ResourceError reports a rail or line that could not be acquired or driven while powering on.
type ResourceError struct {
	Step string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrResourceUnavailable, e.Step, e.Err)
}

// Is matches ErrResourceUnavailable.
func (e *ResourceError) Is(target error) bool {
	return target == ErrResourceUnavailable
}

// Unwrap returns the underlying error.
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// ProbeError reports a device that did not answer the presence probe.
type ProbeError struct {
	Addr byte
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probing device at %#02x: %v", e.Addr, e.Err)
}

// Is matches ErrProbeFailed.
func (e *ProbeError) Is(target error) bool {
	return target == ErrProbeFailed
}

// Unwrap returns the transport error.
func (e *ProbeError) Unwrap() error {
	return e.Err
}

func invalidTransition(op string, from State) error {
	return errors.Wrapf(ErrInvalidTransition, "%s from %s", op, from)
}
