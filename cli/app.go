// Package cli contains the bringupd command line: one-shot device control, the long running
// daemon and table inspection.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/bringup/boards"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/machine"
)

const (
	// Global flags.
	flagConfig  = "config"
	flagDebug   = "debug"
	flagFake    = "fake"
	flagLogFile = "log-file"

	// dsp flags.
	flagDevice    = "device"
	flagInput     = "input"
	flagOutput    = "output"
	flagAGC       = "agc"
	flagHeadset   = "headset"
	flagRecording = "recording"

	// table flags.
	flagBoard   = "board"
	flagProfile = "profile"
	flagRaw     = "raw"
	flagTables  = "tables"
)

// Table names accepted by the table command.
const (
	tableBridge      = "bridge"
	tableFM34Init    = "fm34-init"
	tableFM34Profile = "fm34-profile"
)

// NewApp returns the bringupd command line writing its output to out.
func NewApp(out io.Writer) *cli.App {
	var logger logging.Logger

	return &cli.App{
		Name:   "bringupd",
		Usage:  "bring up tablet display and audio peripherals",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE` (JSON, or YAML by extension)",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  flagFake,
				Usage: "drive a simulated board instead of the hardware",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated by size",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger(machine.LoggerName)
			} else {
				logger = logging.NewLogger(machine.LoggerName)
			}
			logging.ReplaceGlobal(logger)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "configure every device, apply config changes and power down on exit",
				Action: func(c *cli.Context) error { return RunAction(c, logger) },
			},
			{
				Name:      "enable",
				Usage:     "power on and configure devices",
				ArgsUsage: "[device...]",
				Action:    func(c *cli.Context) error { return EnableAction(c, logger) },
			},
			{
				Name:      "disable",
				Usage:     "power off devices",
				ArgsUsage: "[device...]",
				Action:    func(c *cli.Context) error { return DisableAction(c, logger) },
			},
			{
				Name:      "reconfigure",
				Usage:     "enable a device, then rewrite its table without cycling power",
				ArgsUsage: "<device>",
				Action:    func(c *cli.Context) error { return ReconfigureAction(c, logger) },
			},
			{
				Name:   "status",
				Usage:  "show the configured devices",
				Action: func(c *cli.Context) error { return StatusAction(c, logger) },
			},
			{
				Name:  "dsp",
				Usage: "set DSP modes and start or end a recording",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagDevice,
						Usage: "DSP component name, the first fm34 component when empty",
					},
					&cli.StringFlag{Name: flagInput, Usage: "input mode: normal or vr"},
					&cli.StringFlag{Name: flagOutput, Usage: "output mode: normal or voice"},
					&cli.StringFlag{Name: flagAGC, Usage: "automatic gain control: off or on"},
					&cli.BoolFlag{Name: flagHeadset, Usage: "a headset microphone is plugged in"},
					&cli.StringFlag{Name: flagRecording, Usage: "recording action: start, end or playback"},
				},
				Action: func(c *cli.Context) error { return DSPAction(c, logger) },
			},
			{
				Name:      "table",
				Usage:     "print a register table",
				ArgsUsage: tableBridge + "|" + tableFM34Init + "|" + tableFM34Profile,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagBoard,
						Value: string(boards.TF700T),
						Usage: "board variant the table is for",
					},
					&cli.StringFlag{
						Name:  flagProfile,
						Value: "enable_ns",
						Usage: "DSP profile for " + tableFM34Profile,
					},
					&cli.BoolFlag{
						Name:  flagRaw,
						Usage: "print one entry per line with the encoded bytes",
					},
					&cli.StringFlag{
						Name:  flagTables,
						Usage: "DSP tables `FILE`, the fake board fixtures for --board when empty",
					},
				},
				Action: TableAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the config file",
				Action: SchemaAction,
			},
		},
	}
}
