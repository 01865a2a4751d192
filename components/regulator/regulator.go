// Package regulator defines power rails and the set of rails a device holds while powered.
package regulator

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/logging"
)

// A Regulator is one acquired power rail.
type Regulator interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	// Close releases the rail back to its supplier.
	Close() error
}

// A Supplier hands out rails by name, e.g. "vdd_lcd_panel".
type Supplier interface {
	Get(ctx context.Context, name string) (Regulator, error)
}

// GPIOSupplier supplies rails that are switched by a single enable line each.
type GPIOSupplier struct {
	board  board.Board
	lines  map[string]string
	logger logging.Logger
}

// NewGPIOSupplier returns a supplier for the given rail name to enable line mapping.
func NewGPIOSupplier(b board.Board, lines map[string]string, logger logging.Logger) *GPIOSupplier {
	return &GPIOSupplier{board: b, lines: lines, logger: logger}
}

// Names returns the rails this supplier knows, sorted.
func (s *GPIOSupplier) Names() []string {
	names := make([]string, 0, len(s.lines))
	for name := range s.lines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the rail named name.
func (s *GPIOSupplier) Get(ctx context.Context, name string) (Regulator, error) {
	line, ok := s.lines[name]
	if !ok {
		return nil, errors.Errorf("no regulator named %q", name)
	}
	pin, err := s.board.GPIOPinByName(line)
	if err != nil {
		return nil, errors.Wrapf(err, "regulator %s", name)
	}
	return &gpioRegulator{name: name, pin: pin, logger: s.logger}, nil
}

type gpioRegulator struct {
	name   string
	pin    board.GPIOPin
	logger logging.Logger
}

func (r *gpioRegulator) Enable(ctx context.Context) error {
	r.logger.CDebugw(ctx, "regulator enable", "rail", r.name)
	return errors.Wrapf(r.pin.Set(ctx, true, nil), "enabling %s", r.name)
}

func (r *gpioRegulator) Disable(ctx context.Context) error {
	r.logger.CDebugw(ctx, "regulator disable", "rail", r.name)
	return errors.Wrapf(r.pin.Set(ctx, false, nil), "disabling %s", r.name)
}

func (r *gpioRegulator) Close() error {
	return nil
}

// Rails tracks the rails a device currently holds enabled. A rail is acquired from the supplier
// on first Enable and released on Disable.
type Rails struct {
	supplier Supplier
	logger   logging.Logger

	mu    sync.Mutex
	rails map[string]*railSlot
}

// NewRails returns an empty set of rails drawn from supplier.
func NewRails(supplier Supplier, logger logging.Logger) *Rails {
	return &Rails{supplier: supplier, logger: logger, rails: map[string]*railSlot{}}
}
