package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/bopeval/logging"
)

// Read reads a config from the given file. Environment variables in the file
// are expanded before it is parsed.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
// Relative model paths are resolved against that file's directory.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := Config{ConfigFilePath: originalPath}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	return processConfig(&cfg, logger)
}

func processConfig(cfg *Config, logger logging.Logger) (*Config, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath != "" {
		base := filepath.Dir(cfg.ConfigFilePath)
		for id, p := range cfg.Models {
			if !filepath.IsAbs(p) {
				cfg.Models[id] = filepath.Join(base, p)
			}
		}
		if cfg.Database != "" && !filepath.IsAbs(cfg.Database) {
			cfg.Database = filepath.Join(base, cfg.Database)
		}
	}
	logger.Debugw("loaded config",
		"path", cfg.ConfigFilePath,
		"metrics", cfg.Metrics,
		"workers", cfg.Workers,
		"models", len(cfg.Models),
	)
	return cfg, nil
}
