// Package config defines the bring-up daemon configuration: the board, its I2C buses, log levels
// and the devices to bring up.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/bringup/boards"
	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/logging"
)

// A Config describes the configuration of a tablet.
type Config struct {
	// ConfigFilePath is the file the config was read from, if any.
	ConfigFilePath string `json:"-" yaml:"-"`

	// Board is a variant name or "auto" to read it from ModelPath.
	Board     string `json:"board,omitempty" yaml:"board,omitempty"`
	ModelPath string `json:"model_path,omitempty" yaml:"model_path,omitempty"`

	Debug   bool                          `json:"debug,omitempty" yaml:"debug,omitempty"`
	Log     []logging.LoggerPatternConfig `json:"log,omitempty" yaml:"log,omitempty"`
	LogFile string                        `json:"log_file,omitempty" yaml:"log_file,omitempty"`

	I2Cs       []board.I2CConfig `json:"i2cs,omitempty" yaml:"i2cs,omitempty"`
	Components []Component       `json:"components,omitempty" yaml:"components,omitempty"`
}

// Ensure validates the config and converts the component attributes.
func (c *Config) Ensure() error {
	if c.Board != "" && c.Board != boards.Auto {
		if _, err := boards.ParseVariant(c.Board); err != nil {
			return utils.NewConfigValidationError("board", err)
		}
	}

	for idx, lpc := range c.Log {
		path := fmt.Sprintf("%s.%d", "log", idx)
		if !logging.ValidatePattern(lpc.Pattern) {
			return utils.NewConfigValidationError(path, errors.Errorf("invalid logger pattern %q", lpc.Pattern))
		}
		if _, err := logging.LevelFromString(lpc.Level); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}

	buses := map[string]bool{}
	for idx := range c.I2Cs {
		path := fmt.Sprintf("%s.%d", "i2cs", idx)
		if err := c.I2Cs[idx].Validate(path); err != nil {
			return err
		}
		if buses[c.I2Cs[idx].Name] {
			return utils.NewConfigValidationError(path, errors.Errorf("duplicate i2c bus %q", c.I2Cs[idx].Name))
		}
		buses[c.I2Cs[idx].Name] = true
	}

	names := map[string]bool{}
	for idx := range c.Components {
		path := fmt.Sprintf("%s.%d", "components", idx)
		comp := &c.Components[idx]
		if err := comp.Validate(path); err != nil {
			return err
		}
		if names[comp.Name] {
			return utils.NewConfigValidationError(path, errors.Errorf("duplicate component name %q", comp.Name))
		}
		names[comp.Name] = true
		for _, bus := range comp.Buses() {
			if !buses[bus] {
				return utils.NewConfigValidationError(path, errors.Errorf("i2c bus %q is not configured", bus))
			}
		}
	}
	return nil
}

// FindComponent finds a particular component by name.
func (c Config) FindComponent(name string) *Component {
	for _, cmp := range c.Components {
		if cmp.Name == name {
			return &cmp
		}
	}
	return nil
}

// ComponentsOfType returns the components of the given type, in config order.
func (c Config) ComponentsOfType(typ string) []Component {
	var out []Component
	for _, cmp := range c.Components {
		if cmp.Type == typ {
			out = append(out, cmp)
		}
	}
	return out
}

// LogPatterns returns the logger level patterns. Debug puts every logger at debug unless a
// later pattern says otherwise.
func (c Config) LogPatterns() []logging.LoggerPatternConfig {
	if !c.Debug {
		return c.Log
	}
	return append([]logging.LoggerPatternConfig{{Pattern: "*", Level: "debug"}}, c.Log...)
}
