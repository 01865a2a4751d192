package buses

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// I2cBus is an I2C bus backed by periph. The underlying bus is opened on the first OpenHandle and
// stays open until Close.
type I2cBus struct {
	mu      sync.Mutex
	name    string
	opener  func(name string) (i2c.BusCloser, error)
	bus     i2c.BusCloser
	handles map[byte]bool
}

// NewI2cBus returns a bus that opens the periph bus registered under name (e.g. "0" or
// "/dev/i2c-0") when first used.
func NewI2cBus(name string) *I2cBus {
	return &I2cBus{name: name, opener: i2creg.Open, handles: map[byte]bool{}}
}

// NewI2cBusFrom wraps an already opened periph bus.
func NewI2cBusFrom(name string, bus i2c.BusCloser) *I2cBus {
	return &I2cBus{name: name, bus: bus, handles: map[byte]bool{}}
}

// OpenHandle binds a handle to addr. Only one handle per address may be open at a time.
func (bus *I2cBus) OpenHandle(addr byte) (I2CHandle, error) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.handles[addr] {
		return nil, errors.Errorf("i2c bus %s: address %#x already has an open handle", bus.name, addr)
	}
	if bus.bus == nil {
		opened, err := bus.opener(bus.name)
		if err != nil {
			return nil, errors.Wrapf(err, "opening i2c bus %s", bus.name)
		}
		bus.bus = opened
	}
	bus.handles[addr] = true
	return &i2cHandle{parent: bus, addr: addr, dev: &i2c.Dev{Bus: bus.bus, Addr: uint16(addr)}}, nil
}

// Close closes the underlying periph bus.
func (bus *I2cBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.bus == nil {
		return nil
	}
	err := bus.bus.Close()
	bus.bus = nil
	return err
}

func (bus *I2cBus) release(addr byte) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.handles, addr)
}

type i2cHandle struct {
	parent *I2cBus
	addr   byte

	mu     sync.Mutex
	dev    *i2c.Dev
	closed bool
}

func (h *i2cHandle) Write(ctx context.Context, tx []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.Errorf("i2c handle for %#x is closed", h.addr)
	}
	return h.dev.Tx(tx, nil)
}

func (h *i2cHandle) Read(ctx context.Context, count int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.Errorf("i2c handle for %#x is closed", h.addr)
	}
	buffer := make([]byte, count)
	if err := h.dev.Tx(nil, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

// Tx is a combined transfer: the read follows the write after a repeated start.
func (h *i2cHandle) Tx(ctx context.Context, w, r []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.Errorf("i2c handle for %#x is closed", h.addr)
	}
	return h.dev.Tx(w, r)
}

func (h *i2cHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.parent.release(h.addr)
	return nil
}
