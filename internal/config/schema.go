package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Storage    StorageConfig    `yaml:"storage"`
	Conversion ConversionConfig `yaml:"conversion"`
	Log        LogConfig        `yaml:"log"`
}

// StorageConfig selects the register backend
type StorageConfig struct {
	// Location is a database file path, or ":memory:" for volatile storage
	Location string `yaml:"location"`
	// Timeout bounds how long an operation waits on a locked database
	Timeout Duration `yaml:"timeout"`
}

// ConversionConfig controls how written values are coerced
type ConversionConfig struct {
	NumericPolicy string `yaml:"numeric_policy"` // reject, saturate, wrap
}

// LogConfig controls diagnostic output
type LogConfig struct {
	Verbose bool   `yaml:"verbose"`
	Prefix  string `yaml:"prefix"`
}

// Duration wraps time.Duration for YAML marshaling. Loading parses it
// with the mapstructure hook in decode.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
