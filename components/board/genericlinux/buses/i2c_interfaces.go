// Package buses provides the I2C buses the bring-up devices talk over.
package buses

import (
	"context"
)

// I2C is a bus shared by several devices. Each device address gets its own handle.
type I2C interface {
	// OpenHandle claims addr on the bus. A second claim on the same address fails until the
	// first handle is closed.
	OpenHandle(addr byte) (I2CHandle, error)
}

// I2CHandle talks to a single device address. Every write is one bus transaction.
type I2CHandle interface {
	Write(ctx context.Context, tx []byte) error
	Read(ctx context.Context, count int) ([]byte, error)
	// Tx writes w and then reads len(r) bytes into r in one transaction, with a repeated start
	// in between.
	Tx(ctx context.Context, w, r []byte) error

	// Close gives the address back to the bus.
	Close() error
}
