package bringup

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/components/board/genericlinux/buses"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/sequence"
	"go.viam.com/bringup/utils"
)

// Env is what an Action sees of its device. It is only valid while the device lock is held,
// that is inside an Action or an Exec callback.
type Env struct {
	dev  *Device
	pass Pass
	// rails newly enabled by this Env, in order.
	acquired []string
}

// Logger returns the device logger.
func (e *Env) Logger() logging.Logger {
	return e.dev.logger
}

// Pass reports whether the current run is an initial configure or a reconfigure.
func (e *Env) Pass() Pass {
	return e.pass
}

// Configured reports whether the device finished its last configure.
func (e *Env) Configured() bool {
	return e.dev.configured.Load()
}

// SetPin drives the named line.
func (e *Env) SetPin(ctx context.Context, name string, high bool) error {
	pin, err := e.dev.board.GPIOPinByName(name)
	if err != nil {
		return err
	}
	return errors.Wrapf(pin.Set(ctx, high, nil), "setting %s", name)
}

// GetPin reads the named line.
func (e *Env) GetPin(ctx context.Context, name string) (bool, error) {
	pin, err := e.dev.board.GPIOPinByName(name)
	if err != nil {
		return false, err
	}
	high, err := pin.Get(ctx, nil)
	return high, errors.Wrapf(err, "reading %s", name)
}

// Pin returns the named line.
func (e *Env) Pin(name string) (board.GPIOPin, error) {
	return e.dev.board.GPIOPinByName(name)
}

// RailOn enables the named rail. A rail that was off is released again if power-on fails later
// in the same Enable.
func (e *Env) RailOn(ctx context.Context, name string) error {
	if e.dev.rails == nil {
		return errors.Errorf("device %s has no rails", e.dev.name)
	}
	wasOn := e.dev.rails.IsOn(name)
	if err := e.dev.rails.Enable(ctx, name); err != nil {
		return err
	}
	if !wasOn {
		e.acquired = append(e.acquired, name)
	}
	return nil
}

// RailOff disables and releases the named rail.
func (e *Env) RailOff(ctx context.Context, name string) error {
	if e.dev.rails == nil {
		return nil
	}
	return e.dev.rails.Disable(ctx, name)
}

// Sleep blocks for d on the device clock.
func (e *Env) Sleep(ctx context.Context, d time.Duration) error {
	return utils.SleepContext(ctx, e.dev.clock, d)
}

// Handle returns the bus handle, or nil for a device without bus traffic.
func (e *Env) Handle() buses.I2CHandle {
	return e.dev.handle
}

// Send writes payload under the device retry policy.
func (e *Env) Send(ctx context.Context, payload []byte) error {
	if e.dev.handle == nil {
		return errors.Errorf("device %s has no bus", e.dev.name)
	}
	return e.dev.retry.Send(ctx, e.dev.handle, payload, "device", e.dev.name)
}

// Run writes table with the device sequencer.
func (e *Env) Run(ctx context.Context, table sequence.Table) error {
	if e.dev.handle == nil {
		return errors.Errorf("device %s has no bus", e.dev.name)
	}
	return e.dev.sequencer.Run(ctx, table)
}

func (e *Env) runActions(ctx context.Context, actions []Action) (string, error) {
	for _, a := range actions {
		e.dev.logger.CDebugw(ctx, "running step", "step", a.Desc)
		if err := a.Run(ctx, e); err != nil {
			return a.Desc, err
		}
	}
	return "", nil
}
