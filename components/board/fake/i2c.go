package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/bringup/components/board/genericlinux/buses"
)

// I2C is a fake bus. Transfers go to the I2CDevice attached at the handle's address.
type I2C struct {
	name     string
	timeline *Timeline

	mu      sync.Mutex
	devices map[byte]*I2CDevice
	open    map[byte]bool
}

// I2CDevice scripts how a fake device answers.
type I2CDevice struct {
	mu sync.Mutex
	// WriteFunc decides the outcome of each write. attempt counts every write seen so far,
	// starting at 0. A nil WriteFunc acknowledges everything.
	WriteFunc func(attempt int, tx []byte) error
	// ReadData is returned by reads, truncated or zero padded to the requested length.
	ReadData []byte
	ReadErr  error
	attempts int
}

// Attach places dev at addr.
func (bus *I2C) Attach(addr byte, dev *I2CDevice) *I2CDevice {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if dev == nil {
		dev = &I2CDevice{}
	}
	bus.devices[addr] = dev
	return dev
}

// OpenHandle returns a handle bound to addr.
func (bus *I2C) OpenHandle(addr byte) (buses.I2CHandle, error) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.open[addr] {
		return nil, errors.Errorf("fake i2c bus %s: address %#x already open", bus.name, addr)
	}
	bus.open[addr] = true
	return &I2CHandle{bus: bus, addr: addr}, nil
}

// IsOpen reports whether a handle to addr is open.
func (bus *I2C) IsOpen(addr byte) bool {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.open[addr]
}

func (bus *I2C) device(addr byte) *I2CDevice {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.devices[addr]
}

// I2CHandle is a handle on a fake bus.
type I2CHandle struct {
	bus    *I2C
	addr   byte
	closed bool
}

// Write sends tx to the attached device.
func (h *I2CHandle) Write(ctx context.Context, tx []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := append([]byte(nil), tx...)
	err := h.write(data)
	h.bus.timeline.record(Event{Kind: EventI2CWrite, Addr: h.addr, Data: data, Err: err})
	return err
}

func (h *I2CHandle) write(tx []byte) error {
	if h.closed {
		return errors.New("handle closed")
	}
	dev := h.bus.device(h.addr)
	if dev == nil {
		return ErrNoDevice
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	attempt := dev.attempts
	dev.attempts++
	if dev.WriteFunc == nil {
		return nil
	}
	return dev.WriteFunc(attempt, tx)
}

// Read returns count bytes from the attached device.
func (h *I2CHandle) Read(ctx context.Context, count int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := h.read(count)
	h.bus.timeline.record(Event{Kind: EventI2CRead, Addr: h.addr, Data: data, Err: err})
	return data, err
}

func (h *I2CHandle) read(count int) ([]byte, error) {
	if h.closed {
		return nil, errors.New("handle closed")
	}
	dev := h.bus.device(h.addr)
	if dev == nil {
		return nil, ErrNoDevice
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.ReadErr != nil {
		return nil, dev.ReadErr
	}
	out := make([]byte, count)
	copy(out, dev.ReadData)
	return out, nil
}

// Tx writes w and fills r from the attached device in one transfer. The write counts as an
// attempt for the device's WriteFunc.
func (h *I2CHandle) Tx(ctx context.Context, w, r []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := append([]byte(nil), w...)
	err := h.write(data)
	if err == nil {
		var got []byte
		if got, err = h.read(len(r)); err == nil {
			copy(r, got)
		}
	}
	h.bus.timeline.record(Event{Kind: EventI2CTx, Addr: h.addr, Data: data, Read: append([]byte(nil), r...), Err: err})
	return err
}

// Close releases the address.
func (h *I2CHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()
	delete(h.bus.open, h.addr)
	return nil
}

// FailAlways is a WriteFunc that NACKs every write.
func FailAlways(attempt int, tx []byte) error {
	return ErrNoDevice
}

// FailFirst returns a WriteFunc that NACKs the first n writes and acknowledges the rest.
func FailFirst(n int) func(int, []byte) error {
	return func(attempt int, tx []byte) error {
		if attempt < n {
			return ErrNoDevice
		}
		return nil
	}
}

// FailPayload returns a WriteFunc that NACKs every write of exactly payload.
func FailPayload(payload []byte) func(int, []byte) error {
	return func(attempt int, tx []byte) error {
		if string(tx) == string(payload) {
			return ErrNoDevice
		}
		return nil
	}
}
