// Package config provides configuration management for the register store.
//
// Config file locations (priority order):
//  1. $REGSTORE_CONFIG
//  2. ./regstore.yaml or ./regstore.toml
//  3. $XDG_CONFIG_HOME/regstore/config.yaml
//  4. ~/.config/regstore/config.yaml
//  5. /etc/regstore/config.yaml
//
// Environment variables (REGSTORE_STORAGE_LOCATION, REGSTORE_STORAGE_TIMEOUT,
// REGSTORE_NUMERIC_POLICY, REGSTORE_LOG_VERBOSE, REGSTORE_LOG_PREFIX)
// override values read from the file.
package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"regstore/internal/domain"
)

const (
	defaultLocation = "./registers.db"
	defaultTimeout  = 500 * time.Millisecond
	defaultPrefix   = "regstore: "
)

// envOverrides maps environment variables to config paths
var envOverrides = map[string][]string{
	"REGSTORE_STORAGE_LOCATION": {"storage", "location"},
	"REGSTORE_STORAGE_TIMEOUT":  {"storage", "timeout"},
	"REGSTORE_NUMERIC_POLICY":   {"conversion", "numeric_policy"},
	"REGSTORE_LOG_VERBOSE":      {"log", "verbose"},
	"REGSTORE_LOG_PREFIX":       {"log", "prefix"},
}

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides apply in both cases.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		cfg := DefaultConfig()
		if err := cfg.applyEnv(); err != nil {
			return nil, "", err
		}
		return cfg, "", cfg.Validate()
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path. Files ending in .toml are
// parsed as TOML, everything else as YAML.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	raw := make(map[string]any)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, path, fmt.Errorf("parse config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, path, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := decode(raw, cfg); err != nil {
		return nil, path, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, path, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Save writes config to the specified path as YAML
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Location: defaultLocation,
			Timeout:  Duration(defaultTimeout),
		},
		Conversion: ConversionConfig{NumericPolicy: domain.Reject.Name()},
		Log:        LogConfig{Prefix: defaultPrefix},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Storage.Timeout <= 0 {
		c.Storage.Timeout = Duration(defaultTimeout)
	}
	if c.Conversion.NumericPolicy == "" {
		c.Conversion.NumericPolicy = domain.Reject.Name()
	}
}

// applyEnv overlays REGSTORE_* environment variables
func (c *Config) applyEnv() error {
	raw := make(map[string]any)
	for env, path := range envOverrides {
		val, ok := os.LookupEnv(env)
		if !ok {
			continue
		}
		section, _ := raw[path[0]].(map[string]any)
		if section == nil {
			section = make(map[string]any)
			raw[path[0]] = section
		}
		section[path[1]] = val
	}

	if len(raw) == 0 {
		return nil
	}
	if err := decode(raw, c); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

// Validate checks that the config can be used to open a repository
func (c *Config) Validate() error {
	if _, err := domain.ParsePolicy(c.Conversion.NumericPolicy); err != nil {
		return fmt.Errorf("conversion.numeric_policy: %w", err)
	}
	if c.Storage.Timeout < 0 {
		return fmt.Errorf("storage.timeout must not be negative")
	}
	return nil
}

// NumericPolicy returns the configured conversion policy
func (c *Config) NumericPolicy() domain.NumericPolicy {
	p, err := domain.ParsePolicy(c.Conversion.NumericPolicy)
	if err != nil {
		return domain.DefaultPolicy
	}
	return p
}

// Logger builds the diagnostic logger. Output is discarded unless verbose.
func (c *Config) Logger() *log.Logger {
	if !c.Log.Verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, c.Log.Prefix, log.LstdFlags|log.Lshortfile)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	return fmt.Sprintf("Storage: %s (timeout %s), numeric policy: %s",
		c.Storage.Location, c.Storage.Timeout.Duration(), c.Conversion.NumericPolicy)
}

// decode merges a generic map into cfg. Only keys present in raw change.
func decode(raw map[string]any, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}
	return decoder.Decode(raw)
}

// stringToDurationHookFunc parses duration strings such as "500ms" into Duration
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(Duration(0)) || f.Kind() != reflect.String {
			return data, nil
		}
		d, err := time.ParseDuration(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", data, err)
		}
		return Duration(d), nil
	}
}
