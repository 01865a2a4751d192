// Package fake implements a fake board that records every line change and bus transfer on a
// shared timeline.
package fake

import (
	"context"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/components/board/genericlinux/buses"
	"go.viam.com/bringup/logging"
)

// Board is a fake board. Pins are created on first lookup.
type Board struct {
	Timeline *Timeline

	mu       sync.Mutex
	GPIOPins map[string]*GPIOPin
	I2Cs     map[string]*I2C
	logger   logging.Logger
	closed   bool
}

var _ = board.Board(&Board{})

// NewBoard returns a new fake board whose timeline is stamped with clk.
func NewBoard(clk clock.Clock, logger logging.Logger) *Board {
	if clk == nil {
		clk = clock.New()
	}
	return &Board{
		Timeline: NewTimeline(clk),
		GPIOPins: map[string]*GPIOPin{},
		I2Cs:     map[string]*I2C{},
		logger:   logger,
	}
}

// GPIOPinByName returns the GPIO pin by the given name, creating it low if needed.
func (b *Board) GPIOPinByName(name string) (board.GPIOPin, error) {
	return b.Pin(name), nil
}

// Pin is GPIOPinByName returning the concrete fake.
func (b *Board) Pin(name string) *GPIOPin {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.GPIOPins[name]
	if !ok {
		p = &GPIOPin{name: name, timeline: b.Timeline}
		b.GPIOPins[name] = p
	}
	return p
}

// AddI2C adds a named bus to the board.
func (b *Board) AddI2C(name string) *I2C {
	b.mu.Lock()
	defer b.mu.Unlock()

	bus := &I2C{name: name, timeline: b.Timeline, devices: map[byte]*I2CDevice{}, open: map[byte]bool{}}
	b.I2Cs[name] = bus
	return bus
}

// I2CByName returns the bus added under name.
func (b *Board) I2CByName(name string) (buses.I2C, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bus, ok := b.I2Cs[name]
	if !ok {
		return nil, false
	}
	return bus, true
}

// I2CNames returns the names of the added buses.
func (b *Board) I2CNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.I2Cs))
	for name := range b.I2Cs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close marks the board closed.
func (b *Board) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *Board) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// A GPIOPin reads back the same set values.
type GPIOPin struct {
	name     string
	timeline *Timeline

	mu     sync.Mutex
	high   bool
	SetErr error
}

// Set sets the pin to either low or high. A configured SetErr fails the call without changing the
// level.
func (gp *GPIOPin) Set(ctx context.Context, high bool, extra map[string]interface{}) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.SetErr != nil {
		return gp.SetErr
	}
	gp.high = high
	gp.timeline.record(Event{Kind: EventGPIO, Name: gp.name, High: high})
	return nil
}

// Get gets the high/low state of the pin.
func (gp *GPIOPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	return gp.high, nil
}

// Drive forces the level without recording an event, like an external pull.
func (gp *GPIOPin) Drive(high bool) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.high = high
}

// FailWith makes subsequent Set calls return err. A nil err clears it.
func (gp *GPIOPin) FailWith(err error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.SetErr = err
}

// ErrNoDevice is returned for transfers to an address with no device behind it.
var ErrNoDevice = errors.New("no device acknowledged")
