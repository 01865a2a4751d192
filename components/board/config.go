package board

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// I2CConfig maps a name used by components (e.g. "gen1", "gen2") to an i2c-dev bus.
type I2CConfig struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	// Bus is the i2c-dev bus number or its device node, "1" or "/dev/i2c-1".
	Bus string `json:"bus" yaml:"bus" mapstructure:"bus"`
}

// Validate checks that both fields are set and that Bus names an i2c-dev bus.
func (config *I2CConfig) Validate(path string) error {
	switch {
	case config.Name == "":
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	case config.Bus == "":
		return utils.NewConfigValidationFieldRequiredError(path, "bus")
	}
	number := strings.TrimPrefix(config.Bus, "/dev/i2c-")
	if n, err := strconv.Atoi(number); err != nil || n < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("bus %q is not an i2c-dev bus", config.Bus))
	}
	return nil
}
