package config

import (
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/bringup/bringup"
	"go.viam.com/bringup/components/dsp/fm34"
	"go.viam.com/bringup/components/hdmi"
	"go.viam.com/bringup/components/panel"
	rutils "go.viam.com/bringup/utils"
)

// Component types.
const (
	TypePanel = "panel"
	TypeFM34  = "fm34"
	TypeHDMI  = "hdmi"
)

// Component is one device to bring up.
type Component struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	// I2CBus is the bus the device itself sits on.
	I2CBus     string                 `json:"i2c_bus,omitempty" yaml:"i2c_bus,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	// ConvertedAttributes is set by Validate to *PanelAttributes, *FM34Attributes or
	// *HDMIAttributes.
	ConvertedAttributes interface{} `json:"-" yaml:"-"`
}

// Validate checks the component fields and converts its attributes.
func (c *Component) Validate(path string) error {
	if c.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if c.Type == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "type")
	}
	attrPath := path + ".attributes"
	switch c.Type {
	case TypePanel:
		attrs := &PanelAttributes{}
		if err := rutils.DecodeAttributes(c.Attributes, attrs); err != nil {
			return utils.NewConfigValidationError(attrPath, err)
		}
		if err := attrs.Validate(attrPath); err != nil {
			return err
		}
		c.ConvertedAttributes = attrs
	case TypeFM34:
		if c.I2CBus == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "i2c_bus")
		}
		attrs := &FM34Attributes{}
		if err := rutils.DecodeAttributes(c.Attributes, attrs); err != nil {
			return utils.NewConfigValidationError(attrPath, err)
		}
		if err := attrs.Validate(attrPath); err != nil {
			return err
		}
		c.ConvertedAttributes = attrs
	case TypeHDMI:
		attrs := &HDMIAttributes{}
		if err := rutils.DecodeAttributes(c.Attributes, attrs); err != nil {
			return utils.NewConfigValidationError(attrPath, err)
		}
		if err := attrs.Validate(attrPath); err != nil {
			return err
		}
		c.ConvertedAttributes = attrs
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown component type %q", c.Type))
	}
	return nil
}

// Buses returns every I2C bus name the component refers to.
func (c *Component) Buses() []string {
	var out []string
	if c.I2CBus != "" {
		out = append(out, c.I2CBus)
	}
	if attrs, ok := c.ConvertedAttributes.(*PanelAttributes); ok && attrs.BridgeI2CBus != "" {
		out = append(out, attrs.BridgeI2CBus)
	}
	return out
}

// PanelAttributes configures the LCD panel.
type PanelAttributes struct {
	// Rails maps each panel rail to the GPIO line that switches it.
	Rails map[string]string `json:"rails"`
	// BridgeI2CBus is the bus of the MIPI bridge on boards that have one.
	BridgeI2CBus string `json:"bridge_i2c_bus,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (attrs *PanelAttributes) Validate(path string) error {
	for _, rail := range []string{panel.RailPanel, panel.RailLVDS, panel.RailBacklight} {
		if attrs.Rails[rail] == "" {
			return utils.NewConfigValidationFieldRequiredError(path+".rails", rail)
		}
	}
	return nil
}

// HDMIAttributes configures the HDMI supplies.
type HDMIAttributes struct {
	// Rails maps each HDMI rail to the GPIO line that switches it.
	Rails map[string]string `json:"rails"`
}

// Validate ensures all parts of the config are valid.
func (attrs *HDMIAttributes) Validate(path string) error {
	for _, rail := range []string{hdmi.RailVddio, hdmi.RailAVDD, hdmi.RailPLL} {
		if attrs.Rails[rail] == "" {
			return utils.NewConfigValidationFieldRequiredError(path+".rails", rail)
		}
	}
	return nil
}

// FM34Attributes configures the DSP. Unset modes keep their defaults.
type FM34Attributes struct {
	// Tables is a YAML or JSON file of the board's parameter tables. A relative path is
	// resolved against the config file's directory.
	Tables string `json:"tables,omitempty"`
	// Latch is "until_power_off" (the default) or "none".
	Latch   string `json:"latch,omitempty"`
	Input   string `json:"input,omitempty"`
	Output  string `json:"output,omitempty"`
	AGC     string `json:"agc,omitempty"`
	Headset bool   `json:"headset,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (attrs *FM34Attributes) Validate(path string) error {
	if _, ok := bringup.LatchFromString(attrs.Latch); !ok {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown latch %q", attrs.Latch))
	}
	if _, err := attrs.Modes(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// TablesPath returns the tables file resolved against configPath's directory, or "" when unset.
func (attrs *FM34Attributes) TablesPath(configPath string) string {
	if attrs.Tables == "" || filepath.IsAbs(attrs.Tables) || configPath == "" {
		return attrs.Tables
	}
	return filepath.Join(filepath.Dir(configPath), attrs.Tables)
}

// LatchMode returns the configured latch.
func (attrs *FM34Attributes) LatchMode() bringup.Latch {
	latch, _ := bringup.LatchFromString(attrs.Latch)
	return latch
}

// Modes returns the default modes overridden by the configured ones.
func (attrs *FM34Attributes) Modes() (fm34.Modes, error) {
	m := fm34.DefaultModes()
	m.Headset = attrs.Headset
	var err error
	if attrs.Input != "" {
		if m.Input, err = fm34.ParseInputMode(attrs.Input); err != nil {
			return m, err
		}
	}
	if attrs.Output != "" {
		if m.Output, err = fm34.ParseOutputMode(attrs.Output); err != nil {
			return m, err
		}
	}
	if attrs.AGC != "" {
		if m.AGC, err = fm34.ParseAGCMode(attrs.AGC); err != nil {
			return m, err
		}
	}
	return m, nil
}

// AttributeSchemas describes the attributes of each component type.
var AttributeSchemas = map[string]*jsonschema.Schema{
	TypePanel: jsonschema.Reflect(&PanelAttributes{}),
	TypeFM34:  jsonschema.Reflect(&FM34Attributes{}),
	TypeHDMI:  jsonschema.Reflect(&HDMIAttributes{}),
}

// Schema describes the whole config file.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
