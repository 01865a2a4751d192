// Package tc358768 brings up the TC358768 RGB to MIPI DSI bridge that feeds the TF700T panel.
package tc358768

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/bringup/boards"
	"go.viam.com/bringup/bringup"
	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/components/board/genericlinux/buses"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/retry"
)

// Addr is the bridge's bus address.
const Addr = 0x07

// Register writes are tried up to four times with no pause.
const bridgeWriteAttempts = 4

// Settle time after the table before the panel sees video, by panel type.
const (
	hydisSettle     = 70 * time.Millisecond
	panasonicSettle = 35 * time.Millisecond
)

// Bridge is the bring-up device for the bridge.
type Bridge struct {
	*bringup.Device
}

// Plan returns the bridge bring-up. The supply, I2C switch and oscillator lines come up first;
// the table is written once per power cycle.
func Plan() bringup.Plan {
	return bringup.Plan{
		PowerOn: []bringup.Action{
			bringup.SetPin(boards.PinBridge1V2, true, 0),
			bringup.SetPin(boards.PinBridge1V8, true, 0),
			bringup.SetPin(boards.PinBridgeI2CSwitch, true, 0),
			bringup.SetPin(boards.PinBridgeOSC, true, 0),
		},
		// Read back the chip ID register.
		Probe:    &bringup.Probe{Payload: []byte{0x00, 0x00}, ReadLen: 2},
		Selector: bringup.StaticTable(InitTable),
		AfterConfigure: []bringup.Action{
			bringup.Func("panel settle", settle),
		},
		PowerOff: []bringup.Action{
			bringup.SetPin(boards.PinBridgeOSC, false, 0),
			bringup.SetPin(boards.PinBridgeI2CSwitch, false, 0),
			bringup.SetPin(boards.PinBridge1V8, false, 0),
			bringup.SetPin(boards.PinBridge1V2, false, 0),
		},
		Retry: retry.Policy{MaxAttempts: bridgeWriteAttempts},
		Latch: bringup.LatchUntilPowerOff,
	}
}

func settle(ctx context.Context, env *bringup.Env) error {
	hydis, err := env.GetPin(ctx, boards.PinPanelID)
	if err != nil {
		return err
	}
	if hydis {
		env.Logger().Infow("panel is hydis")
		return env.Sleep(ctx, hydisSettle)
	}
	env.Logger().Infow("panel is panasonic")
	return env.Sleep(ctx, panasonicSettle)
}

// New returns the bridge on bus, powered off.
func New(b board.Board, bus buses.I2C, clk clock.Clock, logger logging.Logger) (*Bridge, error) {
	dev, err := bringup.New(bringup.Config{
		Name:  "tc358768",
		Board: b,
		Bus:   bus,
		Addr:  Addr,
		Plan:  Plan(),
		Clock: clk,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &Bridge{Device: dev}, nil
}
