package fm34

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/bringup/sequence"
)

// Tables holds the parameter blocks written to the DSP. Init is written once per power cycle, the
// others switch a running DSP between profiles. The values are tuning data for one board and are
// loaded from a file.
type Tables struct {
	Init      sequence.Table `json:"init" yaml:"init"`
	Bypass    sequence.Table `json:"bypass" yaml:"bypass"`
	EnableNS  sequence.Table `json:"enable_ns" yaml:"enable_ns"`
	DisableNS sequence.Table `json:"disable_ns" yaml:"disable_ns"`
}

// Validate checks that every table is present and terminated.
func (t Tables) Validate() error {
	for _, named := range []struct {
		name  string
		table sequence.Table
	}{
		{"init", t.Init},
		{string(ProfileBypass), t.Bypass},
		{string(ProfileEnableNS), t.EnableNS},
		{string(ProfileDisableNS), t.DisableNS},
	} {
		if len(named.table) == 0 {
			return errors.Errorf("%s table is missing", named.name)
		}
		if err := named.table.Validate(); err != nil {
			return errors.Wrapf(err, "%s table", named.name)
		}
	}
	return nil
}

// Profile returns the table that switches a running DSP to p. Unknown profiles bypass.
func (t Tables) Profile(p Profile) sequence.Table {
	switch p {
	case ProfileEnableNS:
		return t.EnableNS
	case ProfileDisableNS:
		return t.DisableNS
	default:
		return t.Bypass
	}
}

// LoadTables reads and validates the tables at path, YAML for .yaml and .yml and JSON otherwise.
func LoadTables(path string) (Tables, error) {
	var t Tables
	data, err := os.ReadFile(path)
	if err != nil {
		return t, errors.Wrap(err, "reading DSP tables")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &t)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&t)
	}
	if err != nil {
		return t, errors.Wrapf(err, "decoding DSP tables %s", path)
	}
	if err := t.Validate(); err != nil {
		return t, errors.Wrap(err, path)
	}
	return t, nil
}
