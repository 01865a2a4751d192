// Package machine assembles the configured devices of a tablet and drives them as a whole.
package machine

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/bringup/boards"
	"go.viam.com/bringup/bringup"
	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/components/board/genericlinux/buses"
	"go.viam.com/bringup/components/dsp/fm34"
	"go.viam.com/bringup/components/hdmi"
	"go.viam.com/bringup/components/panel"
	"go.viam.com/bringup/components/regulator"
	"go.viam.com/bringup/config"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/utils"
)

// LoggerName is the name the machine logger is expected to have. Device loggers are registered
// as LoggerName.<component>.
const LoggerName = "bringupd"

// A Device is one configured component.
type Device interface {
	bringup.Controllable
	Start()
	DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error)
	Close(ctx context.Context) error
}

var (
	_ = Device(&panel.Panel{})
	_ = Device(&fm34.DSP{})
	_ = Device(&hdmi.HDMI{})
)

// Options tune how devices are built.
type Options struct {
	Clock clock.Clock
	// NewSupplier builds the rail supplier of a panel or the HDMI supplies from its rail to line
	// map. Rails are switched by GPIO lines on the board by default.
	NewSupplier func(lines map[string]string) regulator.Supplier
	// FixtureTables lets a DSP without a tables file run on the fixture tables. Only the fake
	// board sets it.
	FixtureTables bool
}

// Machine owns the devices of one board.
type Machine struct {
	info       boards.Info
	board      board.Board
	logger     logging.Logger
	configPath string

	mu      sync.Mutex
	names   []string
	devices map[string]Device
	panels  []*panel.Panel
	loggers []string
}

// New resolves the board variant, parks the HDMI supply line and builds every configured
// component powered off.
func New(ctx context.Context, cfg *config.Config, b board.Board, logger logging.Logger, opts Options) (*Machine, error) {
	variant, err := boards.Resolve(cfg.Board, cfg.ModelPath, logger)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		info:       boards.InfoFor(variant),
		board:      b,
		logger:     logger,
		configPath: cfg.ConfigFilePath,
		devices:    map[string]Device{},
	}
	if opts.NewSupplier == nil {
		opts.NewSupplier = func(lines map[string]string) regulator.Supplier {
			return regulator.NewGPIOSupplier(b, lines, logger.Sublogger("rails"))
		}
	}

	guard := utils.NewGuard(func() {
		if err := m.Close(ctx); err != nil {
			logger.Warnw("closing partially built machine", "error", err)
		}
	})
	defer guard.OnFail()

	if err := m.parkHDMI(ctx); err != nil {
		return nil, err
	}

	// Panels first, the DSP forces their backlight while recording.
	for _, comp := range cfg.ComponentsOfType(config.TypePanel) {
		if err := m.addPanel(comp, opts); err != nil {
			return nil, errors.Wrapf(err, "building %s", comp.Name)
		}
	}
	for _, comp := range cfg.ComponentsOfType(config.TypeHDMI) {
		if err := m.addHDMI(comp, opts); err != nil {
			return nil, errors.Wrapf(err, "building %s", comp.Name)
		}
	}
	for _, comp := range cfg.ComponentsOfType(config.TypeFM34) {
		if err := m.addDSP(comp, opts); err != nil {
			return nil, errors.Wrapf(err, "building %s", comp.Name)
		}
	}

	guard.Success()
	logger.Infow("machine ready", "board", variant, "devices", m.Names())
	return m, nil
}

func (m *Machine) parkHDMI(ctx context.Context) error {
	pin, err := m.board.GPIOPinByName(boards.PinHDMIEnable)
	if err != nil {
		return err
	}
	return errors.Wrap(pin.Set(ctx, m.info.HDMIEnableHigh, nil), "parking hdmi_5v_en")
}

func (m *Machine) sublogger(name string) logging.Logger {
	sub := m.logger.Sublogger(name)
	registered := LoggerName + "." + name
	logging.RegisterLogger(registered, sub)
	m.loggers = append(m.loggers, registered)
	return sub
}

func (m *Machine) bus(name string) (buses.I2C, error) {
	if name == "" {
		return nil, nil
	}
	bus, ok := m.board.I2CByName(name)
	if !ok {
		return nil, errors.Errorf("no i2c bus named %q", name)
	}
	return bus, nil
}

func (m *Machine) addPanel(comp config.Component, opts Options) error {
	attrs, ok := comp.ConvertedAttributes.(*config.PanelAttributes)
	if !ok {
		return utils.NewUnexpectedTypeError(attrs, comp.ConvertedAttributes)
	}
	bridgeBus, err := m.bus(attrs.BridgeI2CBus)
	if err != nil {
		return err
	}
	logger := m.sublogger(comp.Name)
	p, err := panel.New(panel.Config{
		Info:      m.info,
		Board:     m.board,
		Rails:     regulator.NewRails(opts.NewSupplier(attrs.Rails), logger),
		BridgeBus: bridgeBus,
		Clock:     opts.Clock,
	}, logger)
	if err != nil {
		return err
	}
	m.add(comp.Name, p)
	m.panels = append(m.panels, p)
	return nil
}

func (m *Machine) addHDMI(comp config.Component, opts Options) error {
	attrs, ok := comp.ConvertedAttributes.(*config.HDMIAttributes)
	if !ok {
		return utils.NewUnexpectedTypeError(attrs, comp.ConvertedAttributes)
	}
	logger := m.sublogger(comp.Name)
	h, err := hdmi.New(hdmi.Config{
		Board: m.board,
		Rails: regulator.NewRails(opts.NewSupplier(attrs.Rails), logger),
		Clock: opts.Clock,
	}, logger)
	if err != nil {
		return err
	}
	m.add(comp.Name, h)
	return nil
}

// dspTables loads the tables file named by attrs, or the fixture tables when opts allow it.
func (m *Machine) dspTables(attrs *config.FM34Attributes, opts Options) (fm34.Tables, error) {
	if path := attrs.TablesPath(m.configPath); path != "" {
		return fm34.LoadTables(path)
	}
	if !opts.FixtureTables {
		return fm34.Tables{}, errors.New("no DSP parameter tables, set the tables attribute")
	}
	m.logger.Warnw("using fixture DSP tables, not for real hardware", "board", m.info.Variant)
	return fm34.FixtureTables(m.info), nil
}

func (m *Machine) addDSP(comp config.Component, opts Options) error {
	attrs, ok := comp.ConvertedAttributes.(*config.FM34Attributes)
	if !ok {
		return utils.NewUnexpectedTypeError(attrs, comp.ConvertedAttributes)
	}
	bus, err := m.bus(comp.I2CBus)
	if err != nil {
		return err
	}
	modes, err := attrs.Modes()
	if err != nil {
		return err
	}
	tables, err := m.dspTables(attrs, opts)
	if err != nil {
		return err
	}
	panels := append([]*panel.Panel(nil), m.panels...)
	d, err := fm34.New(fm34.Config{
		Info:   m.info,
		Tables: tables,
		Board:  m.board,
		Bus:    bus,
		Latch:  attrs.LatchMode(),
		Clock:  opts.Clock,
		OnRecording: func(recording bool) {
			for _, p := range panels {
				p.Backlight().SetRecording(recording)
			}
		},
	}, m.sublogger(comp.Name))
	if err != nil {
		return err
	}
	m.add(comp.Name, d)
	return d.ApplyModes(context.Background(), modes)
}

func (m *Machine) add(name string, d Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	m.devices[name] = d
}

// Info describes the resolved board.
func (m *Machine) Info() boards.Info {
	return m.info
}

// Names returns the device names in the order they were built.
func (m *Machine) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...)
}

// Device returns the named device.
func (m *Machine) Device(name string) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[name]
	if !ok {
		return nil, errors.Errorf("no device named %q", name)
	}
	return d, nil
}

func (m *Machine) all() []Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Device, 0, len(m.names))
	for _, name := range m.names {
		out = append(out, m.devices[name])
	}
	return out
}

// Start runs the initial configure of every device in the background.
func (m *Machine) Start() {
	for _, d := range m.all() {
		d.Start()
	}
}

// EnableAll enables every device concurrently. The devices share no lines, so their power-on
// sequences are independent.
func (m *Machine) EnableAll(ctx context.Context) error {
	var g errgroup.Group
	for _, name := range m.Names() {
		d, err := m.Device(name)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return errors.Wrap(d.Enable(ctx), name)
		})
	}
	return g.Wait()
}

// DisableAll disables every device, newest first, and reports every failure.
func (m *Machine) DisableAll(ctx context.Context) error {
	names := m.Names()
	var err error
	for i := len(names) - 1; i >= 0; i-- {
		d, derr := m.Device(names[i])
		if derr != nil {
			err = multierr.Combine(err, derr)
			continue
		}
		err = multierr.Combine(err, errors.Wrap(d.Disable(ctx), names[i]))
	}
	return err
}

// DoCommand runs cmd on the named device.
func (m *Machine) DoCommand(ctx context.Context, name string, cmd map[string]interface{}) (map[string]interface{}, error) {
	d, err := m.Device(name)
	if err != nil {
		return nil, err
	}
	return d.DoCommand(ctx, cmd)
}

// Status returns the status of every device by name.
func (m *Machine) Status() map[string]map[string]interface{} {
	out := map[string]map[string]interface{}{}
	for _, name := range m.Names() {
		if d, err := m.Device(name); err == nil {
			out[name] = d.Status()
		}
	}
	return out
}

// ApplyConfig applies the parts of cfg that can change while running: log levels and DSP modes.
// Other changes need a restart.
func (m *Machine) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	err := config.ApplyLogConfig(cfg, m.logger)
	for _, comp := range cfg.ComponentsOfType(config.TypeFM34) {
		d, derr := m.Device(comp.Name)
		if derr != nil {
			m.logger.Warnw("new component needs a restart", "name", comp.Name)
			continue
		}
		dsp, ok := d.(*fm34.DSP)
		if !ok {
			err = multierr.Combine(err, utils.NewUnexpectedTypeError(dsp, d))
			continue
		}
		attrs, ok := comp.ConvertedAttributes.(*config.FM34Attributes)
		if !ok {
			continue
		}
		modes, merr := attrs.Modes()
		if merr == nil {
			merr = dsp.ApplyModes(ctx, modes)
		}
		err = multierr.Combine(err, merr)
	}
	return err
}

// Close stops background work and releases the bus handles. Devices keep their power state.
func (m *Machine) Close(ctx context.Context) error {
	var err error
	for _, d := range m.all() {
		err = multierr.Combine(err, d.Close(ctx))
	}
	m.mu.Lock()
	for _, name := range m.loggers {
		logging.DeregisterLogger(name)
	}
	m.loggers = nil
	m.mu.Unlock()
	return err
}
