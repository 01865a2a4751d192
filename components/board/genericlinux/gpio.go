package genericlinux

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
)

// gpioPin drives a periph line. The line is switched to output on the first Set, so a Get before
// any Set samples it as an input.
type gpioPin struct {
	mu     sync.Mutex
	line   gpio.PinIO
	output bool
}

func newGPIOPin(line gpio.PinIO) *gpioPin {
	return &gpioPin{line: line}
}

func (pin *gpioPin) Set(ctx context.Context, isHigh bool, extra map[string]interface{}) error {
	pin.mu.Lock()
	defer pin.mu.Unlock()

	level := gpio.Low
	if isHigh {
		level = gpio.High
	}
	if err := pin.line.Out(level); err != nil {
		return errors.Wrapf(err, "setting %s", pin.line.Name())
	}
	pin.output = true
	return nil
}

func (pin *gpioPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	pin.mu.Lock()
	defer pin.mu.Unlock()

	if !pin.output {
		if err := pin.line.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return false, errors.Wrapf(err, "reading %s", pin.line.Name())
		}
	}
	return pin.line.Read() == gpio.High, nil
}
