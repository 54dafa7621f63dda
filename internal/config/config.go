// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

// Config is the top-level Kairn configuration.
type Config struct {
	Workspace  string           `mapstructure:"workspace"`
	LogLevel   string           `mapstructure:"log_level"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Events     EventsConfig     `mapstructure:"events"`
	Activity   ActivityConfig   `mapstructure:"activity"`

	// File is the config file that was read, empty when only defaults and
	// environment were used.
	File string `mapstructure:"-"`
}

// StorageConfig selects the storage backend and its database file.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	WALMode bool   `mapstructure:"wal_mode"`
}

// PaginationConfig bounds list and query page sizes.
type PaginationConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// EventsConfig controls the notification bus.
type EventsConfig struct {
	ListenerTimeout time.Duration `mapstructure:"listener_timeout"`
}

// ActivityConfig controls the persisted activity log.
type ActivityConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration with environment overrides (prefix KAIRN_). When
// path is empty, <workspace>/kairn.yaml is read if it exists.
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides is Load with explicit values, typically from command-line
// flags, that take precedence over the file and the environment.
func LoadWithOverrides(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()

	v.SetDefault("workspace", DefaultWorkspace())
	v.SetDefault("log_level", "info")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.wal_mode", true)
	v.SetDefault("pagination.default_limit", 10)
	v.SetDefault("pagination.max_limit", 50)
	v.SetDefault("events.listener_timeout", "5s")
	v.SetDefault("activity.enabled", true)

	v.SetEnvPrefix("KAIRN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, val := range overrides {
		v.Set(k, val)
	}

	if path == "" {
		candidate := ConfigPath(expandHome(v.GetString("workspace")))
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	cfg.File = path
	cfg.Workspace = expandHome(cfg.Workspace)
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(cfg.Workspace, DatabaseFileName)
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, kairnerr.Errorf(kairnerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting every
// problem rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error

	if strings.TrimSpace(c.Workspace) == "" {
		errs = append(errs, kairnerr.New(kairnerr.CodeConfigValidateInvalidValue, "config: workspace must not be empty"))
	}
	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		errs = append(errs, kairnerr.Errorf(kairnerr.CodeConfigValidateInvalidValue,
			"config: log_level must be one of [debug, info, warn, error], got %q", c.LogLevel))
	}

	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validatePagination()...)

	if c.Events.ListenerTimeout <= 0 {
		errs = append(errs, kairnerr.Errorf(kairnerr.CodeConfigValidateInvalidValue,
			"config: events.listener_timeout must be positive, got %s", c.Events.ListenerTimeout))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, kairnerr.Errorf(kairnerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite], got %q",
			c.Storage.Backend,
		))
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, kairnerr.New(kairnerr.CodeConfigValidateInvalidValue, "config: storage.path must not be empty"))
	}

	return errs
}

func (c *Config) validatePagination() []error {
	var errs []error

	if c.Pagination.DefaultLimit <= 0 {
		errs = append(errs, kairnerr.Errorf(kairnerr.CodeConfigValidateInvalidValue,
			"config: pagination.default_limit must be greater than 0, got %d",
			c.Pagination.DefaultLimit,
		))
	}
	if c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		errs = append(errs, kairnerr.Errorf(kairnerr.CodeConfigValidateInvalidValue,
			"config: pagination.max_limit (%d) must not be less than default_limit (%d)",
			c.Pagination.MaxLimit, c.Pagination.DefaultLimit,
		))
	}

	return errs
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	if l, ok := logLevels[strings.ToLower(c.LogLevel)]; ok {
		return l
	}
	return slog.LevelInfo
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
