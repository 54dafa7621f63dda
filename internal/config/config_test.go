// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kairn-ai/kairn/internal/config"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

// isolate points the default workspace at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	t.Setenv("KAIRN_WORKSPACE", ws)
	return ws
}

func TestLoad_DefaultValues(t *testing.T) {
	ws := isolate(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ws, cfg.Workspace)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(ws, "kairn.db"), cfg.Storage.Path)
	assert.True(t, cfg.Storage.WALMode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 50, cfg.Pagination.MaxLimit)
	assert.Equal(t, 5*time.Second, cfg.Events.ListenerTimeout)
	assert.True(t, cfg.Activity.Enabled)
	assert.Empty(t, cfg.File)
}

func TestLoad_FromFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := `
log_level: debug
storage:
  path: /tmp/elsewhere.db
  wal_mode: false
events:
  listener_timeout: 250ms
activity:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "/tmp/elsewhere.db", cfg.Storage.Path)
	assert.False(t, cfg.Storage.WALMode)
	assert.Equal(t, 250*time.Millisecond, cfg.Events.ListenerTimeout)
	assert.False(t, cfg.Activity.Enabled)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_WorkspaceConfigDiscovered(t *testing.T) {
	ws := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(ws, "kairn.yaml"), []byte("log_level: warn\n"), 0o600))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws, "kairn.yaml"), cfg.File)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("KAIRN_LOG_LEVEL", "error")
	t.Setenv("KAIRN_PAGINATION_DEFAULT_LIMIT", "25")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 25, cfg.Pagination.DefaultLimit)
}

func TestLoad_MissingFile(t *testing.T) {
	isolate(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, kairnerr.HasCode(err, kairnerr.CodeConfigLoadReadFailure))
}

func TestLoad_ValidationCalledAtLoadTime(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "kairn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: chatty\n"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.True(t, kairnerr.IsInvalidInput(err))
}

func validConfig() *config.Config {
	return &config.Config{
		Workspace: "/tmp/kairn",
		LogLevel:  "info",
		Storage: config.StorageConfig{
			Backend: "sqlite",
			Path:    "/tmp/kairn/kairn.db",
		},
		Pagination: config.PaginationConfig{DefaultLimit: 10, MaxLimit: 50},
		Events:     config.EventsConfig{ListenerTimeout: time.Second},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr int
	}{
		{"valid", func(*config.Config) {}, 0},
		{"bad backend", func(c *config.Config) { c.Storage.Backend = "postgres" }, 1},
		{"empty path", func(c *config.Config) { c.Storage.Path = "" }, 1},
		{"zero default limit", func(c *config.Config) { c.Pagination.DefaultLimit = 0 }, 1},
		{"max below default", func(c *config.Config) { c.Pagination.MaxLimit = 5 }, 1},
		{"zero timeout", func(c *config.Config) { c.Events.ListenerTimeout = 0 }, 1},
		{"collects all", func(c *config.Config) {
			c.Workspace = ""
			c.LogLevel = "loud"
			c.Storage.Backend = ""
		}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Len(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestBootstrapConfig(t *testing.T) {
	ws := filepath.Join(t.TempDir(), "nested", "ws")

	path, created, err := config.BootstrapConfig(ws)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, filepath.Join(ws, config.ConfigFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, "info", parsed["log_level"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, created, err = config.BootstrapConfig(ws)
	require.NoError(t, err)
	assert.False(t, created, "an existing config is left alone")

	t.Setenv("KAIRN_WORKSPACE", ws)
	cfg, err := config.Load("")
	require.NoError(t, err, "the default config loads cleanly")
	assert.Equal(t, path, cfg.File)
}

func TestLoadWithOverrides(t *testing.T) {
	isolate(t)
	ws := t.TempDir()
	t.Setenv("KAIRN_LOG_LEVEL", "error")

	cfg, err := config.LoadWithOverrides("", map[string]any{"workspace": ws, "log_level": "debug"})
	require.NoError(t, err)
	assert.Equal(t, ws, cfg.Workspace)
	assert.Equal(t, filepath.Join(ws, "kairn.db"), cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.LogLevel, "overrides beat the environment")
}
