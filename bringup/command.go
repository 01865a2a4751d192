package bringup

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/bringup/logging"
)

// Commands understood by DoCommand under the "command" key.
const (
	CommandEnable      = "enable"
	CommandDisable     = "disable"
	CommandReconfigure = "reconfigure"
	CommandStatus      = "status"
)

// Status returns the device state as a DoCommand response.
func (d *Device) Status() map[string]interface{} {
	return map[string]interface{}{
		"name":       d.name,
		"state":      d.State().String(),
		"configured": d.Configured(),
	}
}

// Controllable is what the generic commands drive.
type Controllable interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Reconfigure(ctx context.Context) error
	Status() map[string]interface{}
}

// CommandName returns the "command" value of a DoCommand request.
func CommandName(cmd map[string]interface{}) (string, error) {
	name, ok := cmd["command"].(string)
	if !ok {
		return "", errors.New("missing 'command' string")
	}
	return name, nil
}

// CommandContext returns ctx traced under the command name when the request sets "debug", so the
// debug lines of that one command are logged whatever the logger level.
func CommandContext(ctx context.Context, cmd map[string]interface{}) context.Context {
	if debug, _ := cmd["debug"].(bool); !debug {
		return ctx
	}
	name, _ := cmd["command"].(string)
	return logging.WithTrace(ctx, name)
}

// DoControlCommand runs one of enable, disable, reconfigure or status on c and returns the
// resulting status. Other commands return ErrUnknownCommand.
func DoControlCommand(ctx context.Context, c Controllable, name string) (map[string]interface{}, error) {
	var err error
	switch name {
	case CommandEnable:
		err = c.Enable(ctx)
	case CommandDisable:
		err = c.Disable(ctx)
	case CommandReconfigure:
		err = c.Reconfigure(ctx)
	case CommandStatus:
	default:
		return nil, errors.Wrap(ErrUnknownCommand, name)
	}
	return c.Status(), err
}

// DoCommand runs one of enable, disable, reconfigure or status and returns the resulting status.
func (d *Device) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, err := CommandName(cmd)
	if err != nil {
		return nil, err
	}
	return DoControlCommand(CommandContext(ctx, cmd), d, name)
}
