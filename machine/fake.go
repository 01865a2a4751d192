package machine

import (
	"github.com/benbjohnson/clock"

	"go.viam.com/bringup/components/board/fake"
	"go.viam.com/bringup/components/bridge/tc358768"
	"go.viam.com/bringup/components/dsp/fm34"
	"go.viam.com/bringup/components/regulator"
	fakeregulator "go.viam.com/bringup/components/regulator/fake"
	"go.viam.com/bringup/config"
	"go.viam.com/bringup/logging"
)

// NewFakeBoard returns a fake board with every configured bus and an acknowledging chip at
// each configured device address.
func NewFakeBoard(cfg *config.Config, clk clock.Clock, logger logging.Logger) *fake.Board {
	b := fake.NewBoard(clk, logger)
	for _, c := range cfg.I2Cs {
		b.AddI2C(c.Name)
	}
	for _, comp := range cfg.Components {
		switch attrs := comp.ConvertedAttributes.(type) {
		case *config.PanelAttributes:
			if bus, ok := b.I2Cs[attrs.BridgeI2CBus]; ok {
				// Chip id and revision.
				bus.Attach(tc358768.Addr, &fake.I2CDevice{ReadData: []byte{0x44, 0x01}})
			}
		case *config.FM34Attributes:
			if bus, ok := b.I2Cs[comp.I2CBus]; ok {
				bus.Attach(fm34.Addr, nil)
			}
		}
	}
	return b
}

// FakeOptions switches rails on a fake supplier recording onto b's timeline and lets DSPs
// without a tables file use the fixture tables.
func FakeOptions(b *fake.Board, clk clock.Clock) Options {
	supplier := fakeregulator.NewSupplier(b.Timeline)
	return Options{
		Clock:         clk,
		FixtureTables: true,
		NewSupplier: func(map[string]string) regulator.Supplier {
			return supplier
		},
	}
}
