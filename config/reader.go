package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/bringup/logging"
)

// Read loads the config file at filePath after expanding ${VAR} references from the environment.
func Read(ctx context.Context, filePath string, logger logging.Logger) (*Config, error) {
	expanded, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filePath)
	}
	return FromReader(ctx, filePath, bytes.NewReader(expanded), logger)
}

// FromReader decodes a config from r. originalPath picks the format, YAML for .yaml and .yml and
// JSON otherwise, and is recorded in the result.
func FromReader(ctx context.Context, originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := &Config{ConfigFilePath: originalPath}
	format, decode := decoderFor(originalPath, r)
	if err := decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "decoding %s config", format)
	}
	if err := cfg.Ensure(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	logger.CDebugw(ctx, "read config", "path", originalPath, "board", cfg.Board, "components", len(cfg.Components))
	return cfg, nil
}

func decoderFor(path string, r io.Reader) (string, func(interface{}) error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml", func(v interface{}) error {
			// An empty document is an empty config.
			if err := yaml.NewDecoder(r).Decode(v); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		}
	default:
		return "json", json.NewDecoder(r).Decode
	}
}
