// Package panel sequences the LCD panel supplies and, on the TF700T, the bridge in front of it.
package panel

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
	"go.viam.com/bringup/components/bridge/tc358768"
	"go.viam.com/bringup/components/regulator"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/utils"
)

// Rail names.
const (
	RailPanel     = "vdd_lcd_panel"
	RailLVDS      = "vdd_lvds"
	RailBacklight = "vdd_backlight"
)

const (
	panelSettle        = 20 * time.Millisecond
	lvdsSettle         = 210 * time.Millisecond
	backlightSettle    = 10 * time.Millisecond
	backlightOffSettle = 200 * time.Millisecond
	lvdsShutdownSettle = 10 * time.Millisecond
)

// postPowerOn brings up LVDS and then the backlight supply.
func postPowerOn() []bringup.Action {
	return []bringup.Action{
		bringup.RailOn(RailLVDS, 0),
		bringup.SetPin(boards.PinLVDSShutdown, true, lvdsSettle),
		bringup.RailOn(RailBacklight, backlightSettle),
	}
}

func prePowerOff() []bringup.Action {
	return []bringup.Action{
		bringup.RailOff(RailBacklight, backlightOffSettle),
		bringup.SetPin(boards.PinLVDSShutdown, false, lvdsShutdownSettle),
	}
}

func panelOff() []bringup.Action {
	return []bringup.Action{
		bringup.RailOff(RailLVDS, 0),
		bringup.RailOff(RailPanel, 0),
	}
}

// Plan returns the panel power sequence for info.
func Plan(info boards.Info) bringup.Plan {
	if info.Display.Bridge {
		return bringup.Plan{
			PowerOn: append([]bringup.Action{
				bringup.Func("check panel type", disableHydisBacklightSupply),
			}, append(postPowerOn(), bringup.RailOn(RailPanel, panelSettle))...),
			PowerOff: append(panelOff(), prePowerOff()...),
		}
	}
	return bringup.Plan{
		PowerOn:  append([]bringup.Action{bringup.RailOn(RailPanel, panelSettle)}, postPowerOn()...),
		PowerOff: append(prePowerOff(), panelOff()...),
	}
}

// Hydis panels take the backlight supply from elsewhere.
func disableHydisBacklightSupply(ctx context.Context, env *bringup.Env) error {
	hydis, err := env.GetPin(ctx, boards.PinPanelID)
	if err != nil {
		return err
	}
	if !hydis {
		return nil
	}
	return env.SetPin(ctx, boards.PinVddBacklightEn, false)
}

// Panel is the display power path of one board.
type Panel struct {
	*bringup.Device

	bridge    *tc358768.Bridge
	backlight *Backlight
	logger    logging.Logger
}

// Config is what New needs.
type Config struct {
	Info  boards.Info
	Board board.Board
	Rails *regulator.Rails
	// BridgeBus is required on boards with a bridge.
	BridgeBus buses.I2C
	Clock     clock.Clock
}

// New returns the panel, powered off.
func New(conf Config, logger logging.Logger) (*Panel, error) {
	dev, err := bringup.New(bringup.Config{
		Name:  "panel",
		Board: conf.Board,
		Rails: conf.Rails,
		Plan:  Plan(conf.Info),
		Clock: conf.Clock,
	}, logger)
	if err != nil {
		return nil, err
	}
	p := &Panel{
		Device:    dev,
		backlight: NewBacklight(conf.Board, conf.Info, logger),
		logger:    logger,
	}
	if conf.Info.Display.Bridge {
		p.bridge, err = tc358768.New(conf.Board, conf.BridgeBus, conf.Clock, logger.Sublogger("tc358768"))
		if err != nil {
			return nil, multierr.Combine(err, dev.Close(context.Background()))
		}
	}
	return p, nil
}

// Backlight returns the panel backlight.
func (p *Panel) Backlight() *Backlight {
	return p.backlight
}

// Bridge returns the bridge, or nil on boards without one.
func (p *Panel) Bridge() *tc358768.Bridge {
	return p.bridge
}

// Enable powers the panel and configures the bridge.
func (p *Panel) Enable(ctx context.Context) error {
	if err := p.Device.Enable(ctx); err != nil {
		return err
	}
	if p.bridge == nil {
		return nil
	}
	return p.bridge.Enable(ctx)
}

// Disable takes the bridge down first, then the panel supplies.
func (p *Panel) Disable(ctx context.Context) error {
	var err error
	if p.bridge != nil {
		err = p.bridge.Disable(ctx)
	}
	return multierr.Combine(err, p.Device.Disable(ctx))
}

// Reconfigure rewrites the bridge table. A panel without a bridge has nothing to rewrite.
func (p *Panel) Reconfigure(ctx context.Context) error {
	if p.bridge == nil {
		return p.Device.Reconfigure(ctx)
	}
	return p.bridge.Reconfigure(ctx)
}

// Configured reports whether the panel and its bridge are up.
func (p *Panel) Configured() bool {
	return p.Device.Configured() && (p.bridge == nil || p.bridge.Configured())
}

// Close releases the bridge bus handle.
func (p *Panel) Close(ctx context.Context) error {
	var err error
	if p.bridge != nil {
		err = p.bridge.Close(ctx)
	}
	return multierr.Combine(err, p.Device.Close(ctx))
}

// Start enables the panel once in the background.
func (p *Panel) Start() {
	p.Device.StartWith(p.Enable)
}

// Status reports the panel and bridge states.
func (p *Panel) Status() map[string]interface{} {
	status := p.Device.Status()
	status["configured"] = p.Configured()
	status["sd_brightness"] = p.backlight.SDBrightness()
	if p.bridge != nil {
		status["bridge"] = p.bridge.Status()
	}
	return status
}

// Panel specific commands.
const (
	CommandSetBrightness   = "set_brightness"
	CommandSetSDBrightness = "set_sd_brightness"
)

type commandArgs struct {
	Command    string `json:"command"`
	Brightness *int   `json:"brightness"`
	Value      *int   `json:"value"`
	Debug      bool   `json:"debug"`
}

// DoCommand handles the generic commands plus set_brightness {"brightness": 0-255}, which returns
// the PWM duty, and set_sd_brightness {"value": 0-255}.
func (p *Panel) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	var args commandArgs
	if err := utils.DecodeAttributes(cmd, &args); err != nil {
		return nil, err
	}
	ctx = bringup.CommandContext(ctx, cmd)
	switch args.Command {
	case CommandSetBrightness:
		if args.Brightness == nil {
			return nil, errors.New("missing 'brightness'")
		}
		duty, err := p.backlight.Notify(ctx, *args.Brightness)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"pwm": duty}, nil
	case CommandSetSDBrightness:
		if args.Value == nil {
			return nil, errors.New("missing 'value'")
		}
		if err := p.backlight.SetSDBrightness(*args.Value); err != nil {
			return nil, err
		}
		return p.Status(), nil
	case "":
		return nil, errors.New("missing 'command' string")
	default:
		return bringup.DoControlCommand(ctx, p, args.Command)
	}
}
