package fm34

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"go.viam.com/bringup/bringup"
)

// DSP specific commands, on top of the generic ones.
const (
	CommandSetInputMode  = "set_input_mode"
	CommandSetOutputMode = "set_output_mode"
	CommandSetAGCMode    = "set_agc_mode"
	CommandSetHeadset    = "set_headset"
	CommandRecording     = "recording"
)

// Status adds the modes, recording flag and active profile to the device status.
func (d *DSP) Status() map[string]interface{} {
	status := d.Device.Status()
	//nolint:errcheck
	d.Exec(context.Background(), func(context.Context, *bringup.Env) error {
		status["input"] = string(d.modes.Input)
		status["output"] = string(d.modes.Output)
		status["agc"] = string(d.modes.AGC)
		status["headset"] = d.modes.Headset
		status["recording"] = d.recording
		status["profile"] = string(d.profile)
		return nil
	})
	return status
}

// DoCommand runs a generic command or one of the mode and recording commands. Mode values
// are names or control codes under "mode"; recording takes "action".
func (d *DSP) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, err := bringup.CommandName(cmd)
	if err != nil {
		return nil, err
	}
	ctx = bringup.CommandContext(ctx, cmd)
	switch name {
	case CommandSetInputMode:
		m, err := ParseInputMode(cmd["mode"])
		if err != nil {
			return nil, err
		}
		err = d.SetInputMode(ctx, m)
		return d.Status(), err
	case CommandSetOutputMode:
		m, err := ParseOutputMode(cmd["mode"])
		if err != nil {
			return nil, err
		}
		err = d.SetOutputMode(ctx, m)
		return d.Status(), err
	case CommandSetAGCMode:
		m, err := ParseAGCMode(cmd["mode"])
		if err != nil {
			return nil, err
		}
		err = d.SetAGCMode(ctx, m)
		return d.Status(), err
	case CommandSetHeadset:
		raw, ok := cmd["headset"]
		if !ok {
			return nil, errors.Wrap(ErrInvalidMode, "missing 'headset'")
		}
		plugged, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidMode, err.Error())
		}
		err = d.SetHeadset(ctx, plugged)
		return d.Status(), err
	case CommandRecording:
		action, err := ParseRecordingAction(cmd["action"])
		if err != nil {
			return nil, err
		}
		err = d.Recording(ctx, action)
		return d.Status(), err
	default:
		return bringup.DoControlCommand(ctx, d, name)
	}
}
