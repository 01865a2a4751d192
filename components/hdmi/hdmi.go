// Package hdmi sequences the HDMI supplies: the connector I/O rail and the analog and PLL rails of
// the transmitter.
package hdmi

import (
	"context"

	"github.com/benbjohnson/clock"
	goutils "go.viam.com/utils"

	"go.viam.com/bringup/bringup"
	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/components/regulator"
	"go.viam.com/bringup/logging"
)

// Rail names.
const (
	RailVddio = "vdd_hdmi_con"
	RailAVDD  = "avdd_hdmi"
	RailPLL   = "avdd_hdmi_pll"
)

// CommandSuspend drops the connector rail and keeps the transmitter supplies.
const CommandSuspend = "suspend"

// Plan brings the connector rail up before the transmitter, analog supply first. A rail that fails
// releases the ones this attempt turned on. Enable is not latched so that it restores the
// connector rail after Suspend.
func Plan() bringup.Plan {
	return bringup.Plan{
		PowerOn: []bringup.Action{
			bringup.RailOn(RailVddio, 0),
			bringup.RailOn(RailAVDD, 0),
			bringup.RailOn(RailPLL, 0),
		},
		PowerOff: []bringup.Action{
			bringup.RailOff(RailAVDD, 0),
			bringup.RailOff(RailPLL, 0),
			bringup.RailOff(RailVddio, 0),
		},
		Latch: bringup.LatchNone,
	}
}

// Config is what New needs.
type Config struct {
	Board board.Board
	Rails *regulator.Rails
	Clock clock.Clock
}

// HDMI is the HDMI power path. It has no bus.
type HDMI struct {
	*bringup.Device

	rails *regulator.Rails
}

// New returns the HDMI supplies, powered off.
func New(conf Config, logger logging.Logger) (*HDMI, error) {
	if conf.Rails == nil {
		return nil, goutils.NewConfigValidationFieldRequiredError("hdmi", "rails")
	}
	dev, err := bringup.New(bringup.Config{
		Name:  "hdmi",
		Board: conf.Board,
		Rails: conf.Rails,
		Plan:  Plan(),
		Clock: conf.Clock,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &HDMI{Device: dev, rails: conf.Rails}, nil
}

// Suspend releases the connector rail after the display controller suspends. The next Enable
// turns it back on.
func (h *HDMI) Suspend(ctx context.Context) error {
	return h.Exec(ctx, func(ctx context.Context, env *bringup.Env) error {
		env.Logger().Infow("suspending", "rail", RailVddio)
		return env.RailOff(ctx, RailVddio)
	})
}

// Status adds the rails that are on.
func (h *HDMI) Status() map[string]interface{} {
	status := h.Device.Status()
	status["rails"] = h.rails.On()
	return status
}

// DoCommand runs a generic command or suspend.
func (h *HDMI) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, err := bringup.CommandName(cmd)
	if err != nil {
		return nil, err
	}
	ctx = bringup.CommandContext(ctx, cmd)
	if name == CommandSuspend {
		err := h.Suspend(ctx)
		return h.Status(), err
	}
	return bringup.DoControlCommand(ctx, h, name)
}
