// Package board defines the interfaces for the SoC a tablet's peripherals hang off of: named GPIO
// lines and I2C buses.
package board

import (
	"context"

	"go.viam.com/bringup/components/board/genericlinux/buses"
)

// A Board gives access to the GPIO lines and I2C buses used during bring-up.
type Board interface {
	// GPIOPinByName returns a GPIOPin by name, e.g. "PN6" or "GPIO_PBB3".
	GPIOPinByName(name string) (GPIOPin, error)

	// I2CByName returns an I2C bus by its configured name.
	I2CByName(name string) (buses.I2C, bool)

	// I2CNames returns the names of all known I2C buses.
	I2CNames() []string

	// Close releases every bus and line.
	Close(ctx context.Context) error
}
