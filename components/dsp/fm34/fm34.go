// Package fm34 brings up the FM34 noise suppression DSP in front of the microphones and switches
// its profile as recording modes change.
package fm34

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/bringup/boards"
	"go.viam.com/bringup/bringup"
	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/components/board/genericlinux/buses"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/retry"
	"go.viam.com/bringup/sequence"
)

// Addr is the DSP's bus address.
const Addr = 0x60

const (
	dspWriteAttempts  = 5
	dspRetryDelay     = 5 * time.Millisecond
	resetHold         = 10 * time.Millisecond
	resetWake         = 100 * time.Millisecond
	wakeToProgramming = 20 * time.Millisecond
	probeBackoff      = 50 * time.Millisecond
	configSettle      = 100 * time.Millisecond
)

// probeByte is written alone to check the DSP acknowledges.
const probeByte = 0xC0

// Config is what New needs.
type Config struct {
	Info  boards.Info
	Board board.Board
	Bus   buses.I2C
	Latch bringup.Latch
	Clock clock.Clock
	// Tables are the board's parameter tables.
	Tables Tables
	// OnRecording is called with the device lock held whenever recording starts or ends.
	OnRecording func(recording bool)
}

// DSP is the FM34 bring-up device. Modes and recording state are guarded by the device lock.
type DSP struct {
	*bringup.Device

	info        boards.Info
	tables      Tables
	onRecording func(bool)
	logger      logging.Logger

	modes     Modes
	recording bool
	profile   Profile
}

// New returns the DSP, powered off, in default modes.
func New(conf Config, logger logging.Logger) (*DSP, error) {
	if err := conf.Tables.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid DSP tables")
	}
	d := &DSP{
		info:        conf.Info,
		tables:      conf.Tables,
		onRecording: conf.OnRecording,
		logger:      logger,
		modes:       DefaultModes(),
		profile:     ProfileBypass,
	}
	dev, err := bringup.New(bringup.Config{
		Name:  "fm34",
		Board: conf.Board,
		Bus:   conf.Bus,
		Addr:  Addr,
		Plan:  d.plan(conf.Latch),
		Clock: conf.Clock,
	}, logger)
	if err != nil {
		return nil, err
	}
	d.Device = dev
	return d, nil
}

func (d *DSP) plan(latch bringup.Latch) bringup.Plan {
	plan := bringup.Plan{
		Reset: &bringup.Reset{Pin: boards.PinDSPReset, Hold: resetHold, Wake: resetWake},
		Wake: []bringup.Action{
			bringup.SetPin(boards.PinDSPBypass, true, wakeToProgramming),
		},
		Probe:          &bringup.Probe{Payload: []byte{probeByte}, Backoff: probeBackoff},
		Selector:       bringup.TableSelectorFunc(d.selectTable),
		AfterConfigure: []bringup.Action{bringup.Func("release bypass line", d.afterConfigure)},
		PowerOff: []bringup.Action{
			bringup.Func("forget recording", d.forgetRecording),
			bringup.SetPin(boards.PinDSPBypass, false, 0),
		},
		Encode: sequence.EncodeFM34,
		Retry:  retry.Policy{MaxAttempts: dspWriteAttempts, Delay: dspRetryDelay},
		Latch:  latch,
	}
	if pin := d.info.DSPPowerPin; pin != "" {
		plan.PowerOn = []bringup.Action{bringup.SetPin(pin, true, 0)}
		plan.PowerOff = append(plan.PowerOff, bringup.SetPin(pin, false, 0))
	}
	return plan
}

// selectTable loads the board parameters on power on and the profile for the current modes on
// reconfigure.
func (d *DSP) selectTable(ctx context.Context, pass bringup.Pass) (sequence.Table, error) {
	if pass == bringup.PassInitial {
		d.profile = ProfileBypass
		d.logger.Infow("loading DSP parameters", "board", d.info.Variant, "blob", d.info.DSPBlob)
		return d.tables.Init, nil
	}
	d.profile = SelectProfile(d.modes)
	d.logger.Infow("switching DSP profile", "profile", d.profile, "input", d.modes.Input,
		"output", d.modes.Output, "agc", d.modes.AGC, "headset", d.modes.Headset)
	return d.tables.Profile(d.profile), nil
}

// afterConfigure parks the DSP in bypass unless a processing profile is active.
func (d *DSP) afterConfigure(ctx context.Context, env *bringup.Env) error {
	if env.Pass() == bringup.PassInitial {
		if err := env.Sleep(ctx, configSettle); err != nil {
			return err
		}
	}
	if d.profile != ProfileBypass {
		return nil
	}
	return env.SetPin(ctx, boards.PinDSPBypass, false)
}

// Modes returns the current modes.
func (d *DSP) Modes(ctx context.Context) Modes {
	var m Modes
	//nolint:errcheck
	d.Exec(ctx, func(context.Context, *bringup.Env) error {
		m = d.modes
		return nil
	})
	return m
}

// SetInputMode sets the input mode used by the next profile switch.
func (d *DSP) SetInputMode(ctx context.Context, m InputMode) error {
	return d.setModes(ctx, func(modes *Modes) { modes.Input = m })
}

// SetOutputMode sets the output mode used by the next profile switch.
func (d *DSP) SetOutputMode(ctx context.Context, m OutputMode) error {
	return d.setModes(ctx, func(modes *Modes) { modes.Output = m })
}

// SetAGCMode sets the AGC mode used by the next profile switch.
func (d *DSP) SetAGCMode(ctx context.Context, m AGCMode) error {
	return d.setModes(ctx, func(modes *Modes) { modes.AGC = m })
}

// SetHeadset records whether a headset microphone is plugged in.
func (d *DSP) SetHeadset(ctx context.Context, plugged bool) error {
	return d.setModes(ctx, func(modes *Modes) { modes.Headset = plugged })
}

func (d *DSP) setModes(ctx context.Context, update func(*Modes)) error {
	return d.Exec(ctx, func(ctx context.Context, env *bringup.Env) error {
		update(&d.modes)
		env.Logger().Infow("modes updated", "input", d.modes.Input, "output", d.modes.Output,
			"agc", d.modes.AGC, "headset", d.modes.Headset)
		return nil
	})
}

// ApplyModes replaces all modes at once.
func (d *DSP) ApplyModes(ctx context.Context, m Modes) error {
	if _, err := ParseInputMode(string(m.Input)); err != nil {
		return err
	}
	if _, err := ParseOutputMode(string(m.Output)); err != nil {
		return err
	}
	if _, err := ParseAGCMode(string(m.AGC)); err != nil {
		return err
	}
	return d.setModes(ctx, func(modes *Modes) { *modes = m })
}

// Recording starts or ends a capture. Start configures the DSP if needed and switches it to the
// profile for the current modes. End returns a DSP that was recording to bypass.
func (d *DSP) Recording(ctx context.Context, action RecordingAction) error {
	switch action {
	case RecordingStart:
		if err := d.Enable(ctx); err != nil {
			return errors.Wrap(err, "configuring before recording")
		}
		if err := d.Reconfigure(ctx); err != nil {
			return err
		}
		return d.Exec(ctx, func(ctx context.Context, env *bringup.Env) error {
			// Disable may have run since the profile switch.
			if !env.Configured() {
				return errors.Wrap(bringup.ErrInvalidTransition, "recording on a powered off DSP")
			}
			d.setRecording(true)
			return nil
		})
	case RecordingEnd:
		return d.Exec(ctx, d.endRecording)
	case RecordingPlayback:
		d.logger.Debugw("playback is always bypassed")
		return nil
	default:
		return invalid("recording action", action)
	}
}

func (d *DSP) endRecording(ctx context.Context, env *bringup.Env) error {
	if !d.recording {
		env.Logger().Infow("end recording without an active recording")
		return nil
	}
	d.setRecording(false)
	if err := env.SetPin(ctx, boards.PinDSPBypass, true); err != nil {
		return err
	}
	if err := env.Sleep(ctx, wakeToProgramming); err != nil {
		return err
	}
	err := env.Run(ctx, d.tables.Profile(ProfileBypass))
	if err == nil {
		d.profile = ProfileBypass
	}
	return multierr.Combine(err, env.SetPin(ctx, boards.PinDSPBypass, false))
}

func (d *DSP) setRecording(recording bool) {
	d.recording = recording
	if d.onRecording != nil {
		d.onRecording(recording)
	}
}

// forgetRecording runs first on power off, under the same lock as the rest of Disable. A
// recording in progress is dropped and the next power on starts in bypass.
func (d *DSP) forgetRecording(ctx context.Context, env *bringup.Env) error {
	if d.recording {
		env.Logger().Infow("powering off during a recording")
		d.setRecording(false)
	}
	d.profile = ProfileBypass
	return nil
}

// Start configures the DSP once in the background.
func (d *DSP) Start() {
	d.Device.StartWith(d.Enable)
}
