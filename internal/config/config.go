// Package config loads the fifobus command line configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-fifobus/protocol"
)

// Link types accepted in the type key.
const (
	TypeFTDI      = "ftdi"
	TypeFTDIAsync = "ftdi_async"
	TypeSerial    = "serial"
	TypeSim       = "sim"
)

// Types lists the valid link types.
var Types = []string{TypeFTDI, TypeFTDIAsync, TypeSerial, TypeSim}

// Config holds settings shared by every fifobus command.
// Zero chunk sizes and baud mean the profile or transport default.
type Config struct {
	Type       string `yaml:"type"`
	Device     string `yaml:"device"`
	LogLevel   string `yaml:"log_level"`
	WriteChunk int    `yaml:"write_chunk"`
	ReadChunk  int    `yaml:"read_chunk"`
	Baud       uint   `yaml:"baud"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Type:     TypeFTDI,
		LogLevel: "warn",
	}
}

// DefaultPath returns ~/.config/fifobus/config.yaml, or "" if the home
// directory cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fifobus", "config.yaml")
}

// Load reads the file at path over the defaults. An empty path means
// DefaultPath, which is allowed to be missing; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the link type and chunk sizes.
func (c Config) Validate() error {
	valid := false
	for _, t := range Types {
		if c.Type == t {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown link type %q (valid: %v)", c.Type, Types)
	}

	if c.WriteChunk < 0 || c.WriteChunk > protocol.MaxLength {
		return fmt.Errorf("write_chunk %d out of range 0-%d", c.WriteChunk, protocol.MaxLength)
	}
	if c.ReadChunk < 0 || c.ReadChunk > protocol.MaxLength {
		return fmt.Errorf("read_chunk %d out of range 0-%d", c.ReadChunk, protocol.MaxLength)
	}
	return nil
}
