package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/redpkg/codec"
	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/source"
)

// Config is the on-disk form of codec options.
type Config struct {
	Kind                 string `yaml:"kind" json:"kind"`
	Compression          string `yaml:"compression" json:"compression"`
	MinVersion           uint16 `yaml:"min_version" json:"min_version"`
	MaxVersion           uint16 `yaml:"max_version" json:"max_version"`
	ImportsAsHash        bool   `yaml:"imports_as_hash" json:"imports_as_hash"`
	Collect              bool   `yaml:"collect" json:"collect"`
	ReportUnresolvedWeak bool   `yaml:"report_unresolved_weak" json:"report_unresolved_weak"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Kind:        codec.KindDefault.String(),
		Compression: source.CompressionAuto.String(),
		MinVersion:  codec.DefaultMinVersion,
		MaxVersion:  codec.DefaultMaxVersion,
	}
}

// LoadFile reads path over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read "+path)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes data over the defaults. ext selects the syntax the way
// LoadFile does.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse JSONC options")
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document leaves the defaults in place.
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse YAML options")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field without building options.
func (c *Config) Validate() error {
	if _, err := codec.ParseSubKind(c.Kind); err != nil {
		return err
	}
	if _, err := c.CompressionMode(); err != nil {
		return err
	}
	if c.MinVersion != 0 && c.MaxVersion != 0 && c.MinVersion > c.MaxVersion {
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("min_version %d above max_version %d", c.MinVersion, c.MaxVersion))
	}
	return nil
}

// Options builds codec options. Collection is left for the caller to set.
func (c *Config) Options() (codec.Options, error) {
	if err := c.Validate(); err != nil {
		return codec.Options{}, err
	}
	kind, _ := codec.ParseSubKind(c.Kind)
	return codec.Options{
		Kind:                 kind,
		MinVersion:           c.MinVersion,
		MaxVersion:           c.MaxVersion,
		ImportsAsHash:        c.ImportsAsHash,
		CollectData:          c.Collect,
		ReportUnresolvedWeak: c.ReportUnresolvedWeak,
	}, nil
}

// CompressionMode parses the compression field.
func (c *Config) CompressionMode() (source.Compression, error) {
	return source.ParseCompression(c.Compression)
}
