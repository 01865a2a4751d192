// Package boards describes the tablet variants and what differs between them: GPIO assignments,
// display mode and DSP parameters.
package boards

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/bringup/logging"
)

// Variant is a tablet SKU.
type Variant string

// Known variants.
const (
	TF201   Variant = "tf201"
	TF300T  Variant = "tf300t"
	TF300TG Variant = "tf300tg"
	TF700T  Variant = "tf700t"
	Unknown Variant = "unknown"
)

// Auto asks Resolve to read the model from the device tree.
const Auto = "auto"

// DefaultModelPath is where the kernel exposes the machine model.
const DefaultModelPath = "/proc/device-tree/model"

// Variants lists the known variants, most specific model match first.
var Variants = []Variant{TF300TG, TF300T, TF700T, TF201}

// ParseVariant parses a configured variant name.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	if v == Unknown || lo.Contains(Variants, v) {
		return v, nil
	}
	return Unknown, errors.Errorf("unknown board %q, expected one of %v", s, append(append([]Variant{}, Variants...), Unknown))
}

// FromModel matches a device tree model string such as "ASUS Transformer Pad TF300TG".
func FromModel(model string) Variant {
	model = strings.ToLower(model)
	v, ok := lo.Find(Variants, func(v Variant) bool {
		return strings.Contains(model, string(v))
	})
	if !ok {
		return Unknown
	}
	return v
}

// Resolve returns the configured variant, or reads it from modelPath when name is empty or
// "auto". An unreadable or unrecognized model resolves to Unknown with a warning.
func Resolve(name, modelPath string, logger logging.Logger) (Variant, error) {
	if name != "" && name != Auto {
		return ParseVariant(name)
	}
	if modelPath == "" {
		modelPath = DefaultModelPath
	}
	//nolint:gosec
	raw, err := os.ReadFile(modelPath)
	if err != nil {
		logger.Warnw("cannot read board model, assuming unknown board", "path", modelPath, "error", err)
		return Unknown, nil
	}
	model := strings.TrimRight(string(raw), "\x00\n")
	v := FromModel(model)
	if v == Unknown {
		logger.Warnw("unrecognized board model", "model", model)
	} else {
		logger.Infow("detected board", "model", model, "board", v)
	}
	return v, nil
}
