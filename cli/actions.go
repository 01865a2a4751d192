package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/bringup/bringup"
	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/components/board/genericlinux"
	"go.viam.com/bringup/components/dsp/fm34"
	"go.viam.com/bringup/config"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/machine"
)

// session is a machine built from the global flags.
type session struct {
	cfg     *config.Config
	board   board.Board
	machine *machine.Machine
	logFile *logging.FileAppender
	logger  logging.Logger
}

func newSession(c *cli.Context, logger logging.Logger) (*session, error) {
	path := c.String(flagConfig)
	if path == "" {
		return nil, errors.Errorf("--%s is required", flagConfig)
	}
	ctx := c.Context
	config.InitLoggingSettings(logger, c.Bool(flagDebug))
	cfg, err := config.Read(ctx, path, logger)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger}
	logFile := c.String(flagLogFile)
	if logFile == "" {
		logFile = cfg.LogFile
	}
	if logFile != "" {
		s.logFile = logging.NewFileAppender(logFile)
		logger.AddAppender(s.logFile)
	}

	var opts machine.Options
	if c.Bool(flagFake) {
		fb := machine.NewFakeBoard(cfg, nil, logger.Sublogger("board"))
		s.board = fb
		opts = machine.FakeOptions(fb, nil)
	} else {
		s.board, err = genericlinux.NewBoard(ctx, &genericlinux.Config{I2Cs: cfg.I2Cs}, logger.Sublogger("board"))
		if err != nil {
			return nil, multierr.Combine(err, s.Close(ctx))
		}
	}

	s.machine, err = machine.New(ctx, cfg, s.board, logger, opts)
	if err != nil {
		return nil, multierr.Combine(err, s.Close(ctx))
	}
	if err := config.ApplyLogConfig(cfg, logger); err != nil {
		return nil, multierr.Combine(err, s.Close(ctx))
	}
	return s, nil
}

// Close releases the machine and the board. Devices keep their power state.
func (s *session) Close(ctx context.Context) error {
	var err error
	if s.machine != nil {
		err = multierr.Combine(err, s.machine.Close(ctx))
	}
	if s.board != nil {
		err = multierr.Combine(err, s.board.Close(ctx))
	}
	if s.logFile != nil {
		err = multierr.Combine(err, s.logFile.Close())
	}
	return err
}

func withSession(c *cli.Context, logger logging.Logger, fn func(s *session) error) (err error) {
	s, err := newSession(c, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, s.Close(context.Background()))
	}()
	return fn(s)
}

// RunAction configures every device in the background and keeps the config file applied until
// interrupted, then powers everything down.
func RunAction(c *cli.Context, logger logging.Logger) error {
	return withSession(c, logger, func(s *session) error {
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		watcher, err := config.NewWatcher(s.cfg, func(ctx context.Context, cfg *config.Config) {
			if err := s.machine.ApplyConfig(ctx, cfg); err != nil {
				logger.Warnw("applying config", "error", err)
			}
		}, logger)
		if err != nil {
			return err
		}
		s.machine.Start()
		logger.Infow("running", "config", s.cfg.ConfigFilePath)

		<-ctx.Done()
		logger.Info("shutting down")
		return multierr.Combine(watcher.Close(), s.machine.DisableAll(context.Background()))
	})
}

// EnableAction enables the named devices, or all of them.
func EnableAction(c *cli.Context, logger logging.Logger) error {
	return withSession(c, logger, func(s *session) error {
		err := forDevices(c, s, func(ctx context.Context, d machine.Device) error { return d.Enable(ctx) }, s.machine.EnableAll)
		return multierr.Combine(err, printStatus(c.App.Writer, s.machine))
	})
}

// DisableAction disables the named devices, or all of them.
func DisableAction(c *cli.Context, logger logging.Logger) error {
	return withSession(c, logger, func(s *session) error {
		err := forDevices(c, s, func(ctx context.Context, d machine.Device) error { return d.Disable(ctx) }, s.machine.DisableAll)
		return multierr.Combine(err, printStatus(c.App.Writer, s.machine))
	})
}

// ReconfigureAction enables one device and rewrites its table.
func ReconfigureAction(c *cli.Context, logger logging.Logger) error {
	if c.Args().Len() != 1 {
		return errors.New("reconfigure takes exactly one device name")
	}
	return withSession(c, logger, func(s *session) error {
		d, err := s.machine.Device(c.Args().First())
		if err != nil {
			return err
		}
		if err := d.Enable(c.Context); err != nil {
			return err
		}
		err = d.Reconfigure(c.Context)
		return multierr.Combine(err, printStatus(c.App.Writer, s.machine))
	})
}

// StatusAction prints every configured device.
func StatusAction(c *cli.Context, logger logging.Logger) error {
	return withSession(c, logger, func(s *session) error {
		return printStatus(c.App.Writer, s.machine)
	})
}

func forDevices(
	c *cli.Context,
	s *session,
	each func(ctx context.Context, d machine.Device) error,
	all func(ctx context.Context) error,
) error {
	if c.Args().Len() == 0 {
		return all(c.Context)
	}
	var err error
	for _, name := range c.Args().Slice() {
		d, derr := s.machine.Device(name)
		if derr == nil {
			derr = each(c.Context, d)
		}
		err = multierr.Combine(err, errors.Wrap(derr, name))
	}
	return err
}

// DSPAction applies the given mode flags to the DSP, then runs the recording action if any.
func DSPAction(c *cli.Context, logger logging.Logger) error {
	return withSession(c, logger, func(s *session) error {
		name := c.String(flagDevice)
		if name == "" {
			dsps := s.cfg.ComponentsOfType(config.TypeFM34)
			if len(dsps) == 0 {
				return errors.New("no fm34 component configured")
			}
			name = dsps[0].Name
		}

		var cmds []map[string]interface{}
		for flag, command := range map[string]string{
			flagInput:  fm34.CommandSetInputMode,
			flagOutput: fm34.CommandSetOutputMode,
			flagAGC:    fm34.CommandSetAGCMode,
		} {
			if c.IsSet(flag) {
				cmds = append(cmds, map[string]interface{}{"command": command, "mode": c.String(flag)})
			}
		}
		if c.IsSet(flagHeadset) {
			cmds = append(cmds, map[string]interface{}{"command": fm34.CommandSetHeadset, "headset": c.Bool(flagHeadset)})
		}
		if c.IsSet(flagRecording) {
			cmds = append(cmds, map[string]interface{}{"command": fm34.CommandRecording, "action": c.String(flagRecording)})
		}
		if len(cmds) == 0 {
			cmds = append(cmds, map[string]interface{}{"command": bringup.CommandStatus})
		}

		for _, cmd := range cmds {
			if _, err := s.machine.DoCommand(c.Context, name, cmd); err != nil {
				return errors.Wrapf(err, "%s %v", name, cmd["command"])
			}
		}
		return printStatus(c.App.Writer, s.machine)
	})
}
