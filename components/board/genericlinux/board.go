// Package genericlinux implements a board on Linux using periph for GPIO lines and I2C buses.
package genericlinux

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/components/board/genericlinux/buses"
	"go.viam.com/bringup/logging"
)

// Board is a Linux board whose lines are looked up by name in the periph gpio registry.
type Board struct {
	mu     sync.Mutex
	lookup func(name string) gpio.PinIO
	gpios  map[string]*gpioPin
	i2cs   map[string]*buses.I2cBus
	logger logging.Logger
}

var _ = board.Board(&Board{})

// NewBoard initializes the periph host drivers and returns a board for the configured buses.
func NewBoard(ctx context.Context, conf *Config, logger logging.Logger) (*Board, error) {
	state, err := host.Init()
	if err != nil {
		return nil, errors.Wrap(err, "initializing periph host drivers")
	}
	if len(state.Failed) > 0 {
		for _, failure := range state.Failed {
			logger.Debugw("periph driver failed to load", "driver", failure.D.String(), "error", failure.Err)
		}
	}
	return newBoard(conf, gpioreg.ByName, logger), nil
}

func newBoard(conf *Config, lookup func(string) gpio.PinIO, logger logging.Logger) *Board {
	b := &Board{
		lookup: lookup,
		gpios:  map[string]*gpioPin{},
		i2cs:   map[string]*buses.I2cBus{},
		logger: logger,
	}
	for _, c := range conf.I2Cs {
		b.i2cs[c.Name] = buses.NewI2cBus(c.Bus)
	}
	return b
}

// GPIOPinByName returns the line registered under name.
func (b *Board) GPIOPinByName(name string) (board.GPIOPin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pin, ok := b.gpios[name]; ok {
		return pin, nil
	}
	line := b.lookup(name)
	if line == nil {
		return nil, errors.Errorf("no gpio line named %q", name)
	}
	pin := newGPIOPin(line)
	b.gpios[name] = pin
	return pin, nil
}

// I2CByName returns the configured bus.
func (b *Board) I2CByName(name string) (buses.I2C, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bus, ok := b.i2cs[name]
	return bus, ok
}

// I2CNames returns the configured bus names in sorted order.
func (b *Board) I2CNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.i2cs))
	for name := range b.i2cs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every opened bus.
func (b *Board) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	for name, bus := range b.i2cs {
		err = multierr.Combine(err, errors.Wrapf(bus.Close(), "closing i2c bus %s", name))
	}
	return err
}
