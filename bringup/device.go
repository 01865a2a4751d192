// Package bringup implements the power, reset, probe and configure sequence shared by the
// tablet peripherals, as a small state machine per device.
package bringup

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/components/board/genericlinux/buses"
	"go.viam.com/bringup/components/regulator"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/retry"
	"go.viam.com/bringup/sequence"
	"go.viam.com/bringup/utils"
)

// Config is what New needs to build a Device.
type Config struct {
	Name  string
	Board board.Board
	// Bus and Addr are required when the plan probes or writes a table.
	Bus   buses.I2C
	Addr  byte
	Rails *regulator.Rails
	Plan  Plan
	Clock clock.Clock
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if conf.Board == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "board")
	}
	if conf.Plan.usesBus() && conf.Bus == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "i2c_bus")
	}
	return nil
}

// Device runs one peripheral through its bring-up plan. All operations are serialized.
type Device struct {
	name   string
	board  board.Board
	addr   byte
	rails  *regulator.Rails
	plan   Plan
	clock  clock.Clock
	logger logging.Logger

	retry     *retry.Policy
	sequencer *sequence.Sequencer
	workers   utils.StoppableWorkers

	mu     sync.Mutex
	handle buses.I2CHandle
	closed bool
	// loaded is set once the PassInitial table has been written since the last power on.
	loaded bool

	state      atomic.Int32
	configured atomic.Bool
}

// New opens the device's bus handle and returns it powered off.
func New(conf Config, logger logging.Logger) (*Device, error) {
	if err := conf.Validate(conf.Name); err != nil {
		return nil, err
	}
	clk := utils.ClockOrDefault(conf.Clock)
	policy := conf.Plan.Retry
	if policy.Clock == nil {
		policy.Clock = clk
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}

	d := &Device{
		name:   conf.Name,
		board:  conf.Board,
		addr:   conf.Addr,
		rails:  conf.Rails,
		plan:   conf.Plan,
		clock:  clk,
		logger: logger,
		retry:  &policy,
	}
	if conf.Bus != nil {
		handle, err := conf.Bus.OpenHandle(conf.Addr)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s at %#02x", conf.Name, conf.Addr)
		}
		d.handle = handle
		d.sequencer = &sequence.Sequencer{
			Handle: handle,
			Retry:  d.retry,
			Encode: conf.Plan.Encode,
			Clock:  clk,
			Logger: logger,
		}
	}
	return d, nil
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// State returns the current state without waiting for a running operation.
func (d *Device) State() State {
	return State(d.state.Load())
}

// Configured reports whether the last configure succeeded and power has not been cut since.
func (d *Device) Configured() bool {
	return d.configured.Load()
}

func (d *Device) setState(ctx context.Context, s State) {
	old := State(d.state.Swap(int32(s)))
	if old != s {
		d.logger.CDebugw(ctx, "state change", "from", old, "to", s)
	}
}

func (d *Device) newEnv(pass Pass) *Env {
	return &Env{dev: d, pass: pass}
}

// begin checks that an operation may start and returns ctx without its cancellation. Once
// started, a sequence runs to the end so the chip is never left half written. Must be called
// with mu held.
func (d *Device) begin(ctx context.Context) (context.Context, error) {
	if d.closed {
		return nil, errors.Wrap(ErrClosed, d.name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return context.WithoutCancel(ctx), nil
}

// Enable powers the device, resets and probes it and writes its table. A device latched until
// power off returns immediately once configured. A ctx that is already done fails Enable before
// any step; cancelling ctx later has no effect.
func (d *Device) Enable(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx, err := d.begin(ctx)
	if err != nil {
		return err
	}
	return d.enable(ctx)
}

func (d *Device) enable(ctx context.Context) error {
	if d.plan.Latch == LatchUntilPowerOff && d.configured.Load() {
		d.logger.CDebugw(ctx, "already configured")
		return nil
	}
	d.configured.Store(false)
	d.loaded = false
	env := d.newEnv(PassInitial)

	d.setState(ctx, PoweringOn)
	if step, err := env.runActions(ctx, d.plan.PowerOn); err != nil {
		return d.abortPowerOn(ctx, env, step, err)
	}

	if d.plan.Reset != nil {
		d.setState(ctx, ResetAsserted)
		if err := d.pulseReset(ctx, env); err != nil {
			return d.abortPowerOn(ctx, env, "reset "+d.plan.Reset.Pin, err)
		}
	}
	if step, err := env.runActions(ctx, d.plan.Wake); err != nil {
		return d.abortPowerOn(ctx, env, step, err)
	}

	if d.plan.Probe != nil {
		d.setState(ctx, Probing)
		if err := d.probe(ctx, env); err != nil {
			return err
		}
	}
	return d.configure(ctx, env)
}

// abortPowerOn releases the rails this attempt acquired, newest first.
func (d *Device) abortPowerOn(ctx context.Context, env *Env, step string, err error) error {
	d.logger.Errorw("power on failed", "step", step, "error", err)
	var releaseErr error
	for i := len(env.acquired) - 1; i >= 0; i-- {
		releaseErr = multierr.Combine(releaseErr, d.rails.Disable(ctx, env.acquired[i]))
	}
	if releaseErr != nil {
		d.logger.Warnw("releasing rails after failed power on", "error", releaseErr)
	}
	d.setState(ctx, PoweredOff)
	return &ResourceError{Step: step, Err: err}
}

func (d *Device) pulseReset(ctx context.Context, env *Env) error {
	r := d.plan.Reset
	if err := env.SetPin(ctx, r.Pin, false); err != nil {
		return err
	}
	if err := env.Sleep(ctx, r.Hold); err != nil {
		return err
	}
	if err := env.SetPin(ctx, r.Pin, true); err != nil {
		return err
	}
	return env.Sleep(ctx, r.Wake)
}

// probe sends the probe payload once. With ReadLen set, the write and the read back are one
// combined transfer.
func (d *Device) probe(ctx context.Context, env *Env) error {
	p := d.plan.Probe
	var err error
	switch handle := env.Handle(); {
	case handle == nil:
		err = errors.Errorf("device %s has no bus", d.name)
	case p.ReadLen > 0:
		data := make([]byte, p.ReadLen)
		if err = handle.Tx(ctx, p.Payload, data); err == nil {
			d.logger.CDebugw(ctx, "probe read", "data", data)
		}
	default:
		err = handle.Write(ctx, p.Payload)
	}
	if err == nil {
		return nil
	}

	d.logger.Errorw("probe failed", "addr", d.addr, "error", err)
	if sleepErr := env.Sleep(ctx, p.Backoff); sleepErr != nil {
		err = multierr.Combine(err, sleepErr)
	} else if d.plan.Reset != nil {
		if resetErr := d.pulseReset(ctx, env); resetErr != nil {
			d.logger.Warnw("re-pulsing reset after failed probe", "error", resetErr)
		}
	}
	d.setState(ctx, ProbeFailed)
	return &ProbeError{Addr: d.addr, Err: err}
}

func (d *Device) configure(ctx context.Context, env *Env) error {
	d.setState(ctx, Configuring)
	if err := d.runConfigure(ctx, env); err != nil {
		d.logger.Errorw("configure failed", "error", err)
		d.setState(ctx, ConfigFailed)
		return err
	}
	if env.pass == PassInitial {
		d.loaded = true
	}
	d.configured.Store(true)
	d.setState(ctx, Configured)
	d.logger.Infow("configured")
	return nil
}

func (d *Device) runConfigure(ctx context.Context, env *Env) error {
	if step, err := env.runActions(ctx, d.plan.BeforeConfigure); err != nil {
		return errors.Wrap(err, step)
	}
	if d.plan.Selector != nil {
		table, err := d.plan.Selector.SelectTable(ctx, env.pass)
		if err != nil {
			return errors.Wrap(err, "selecting table")
		}
		if err := env.Run(ctx, table); err != nil {
			return err
		}
	}
	if step, err := env.runActions(ctx, d.plan.AfterConfigure); err != nil {
		return errors.Wrap(err, step)
	}
	return nil
}

// Disable runs the power-off steps and releases every rail. Every step is attempted even if an
// earlier one fails. Disabling a powered off device repeats only redundant line writes. Disable
// runs even on a closed device or a done ctx so that shutdown always powers down.
func (d *Device) Disable(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disable(context.WithoutCancel(ctx))
}

func (d *Device) disable(ctx context.Context) error {
	env := d.newEnv(PassInitial)
	var err error
	for _, a := range d.plan.PowerOff {
		d.logger.CDebugw(ctx, "running step", "step", a.Desc)
		if stepErr := a.Run(ctx, env); stepErr != nil {
			err = multierr.Combine(err, errors.Wrap(stepErr, a.Desc))
		}
	}
	if d.rails != nil {
		err = multierr.Combine(err, d.rails.DisableAll(ctx))
	}
	d.configured.Store(false)
	d.loaded = false
	d.setState(ctx, PoweredOff)
	return err
}

// Reconfigure writes a freshly selected table to a running device without probing or cycling
// power. It is only valid from Configured and ConfigFailed. Until the initial table has been
// written since power on, the selector is asked for it again instead of the reconfigure table.
func (d *Device) Reconfigure(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx, err := d.begin(ctx)
	if err != nil {
		return err
	}

	if s := d.State(); s != Configured && s != ConfigFailed {
		return invalidTransition("reconfigure", s)
	}
	d.configured.Store(false)
	pass := PassReconfigure
	if !d.loaded {
		d.logger.Infow("initial table was never written, reloading it")
		pass = PassInitial
	}
	env := d.newEnv(pass)
	d.setState(ctx, Configuring)
	if step, err := env.runActions(ctx, d.plan.Wake); err != nil {
		d.setState(ctx, ConfigFailed)
		return errors.Wrap(err, step)
	}
	return d.configure(ctx, env)
}

// Exec runs fn with the device lock held. Like Enable it fails on a closed device or a done
// ctx, and is not interrupted once fn runs.
func (d *Device) Exec(ctx context.Context, fn func(ctx context.Context, env *Env) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx, err := d.begin(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, d.newEnv(PassReconfigure))
}

// Start runs Enable once in the background.
func (d *Device) Start() {
	d.StartWith(d.Enable)
}

// StartWith runs enable once in the background, for wrappers that add steps around Enable. Only
// the first Start or StartWith call has an effect, and none after Close. Close waits for the
// background enable to finish.
func (d *Device) StartWith(enable func(ctx context.Context) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.workers != nil || d.closed {
		return
	}
	d.workers = utils.NewStoppableWorkers(func(ctx context.Context) {
		if err := enable(context.WithoutCancel(ctx)); err != nil {
			d.logger.Errorw("initial configure failed", "error", err)
		}
	})
}

// Close waits for the background configure and releases the bus handle. It does not power the
// device off. Afterwards only Disable, State and Status work; the rest return ErrClosed.
func (d *Device) Close(ctx context.Context) error {
	d.mu.Lock()
	workers := d.workers
	d.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.sequencer = nil
	if d.handle == nil {
		return nil
	}
	err := d.handle.Close()
	d.handle = nil
	return err
}
