package genericlinux

import (
	"fmt"

	"go.viam.com/bringup/components/board"
)

// A Config describes the configuration of a generic Linux board.
type Config struct {
	I2Cs []board.I2CConfig `json:"i2cs,omitempty" yaml:"i2cs,omitempty" mapstructure:"i2cs"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	seen := map[string]bool{}
	for idx, c := range conf.I2Cs {
		if err := c.Validate(fmt.Sprintf("%s.%s.%d", path, "i2cs", idx)); err != nil {
			return err
		}
		if seen[c.Name] {
			return fmt.Errorf("%s.i2cs.%d: duplicate i2c bus name %q", path, idx, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}
