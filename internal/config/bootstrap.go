// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

// File names inside a workspace.
const (
	ConfigFileName   = "kairn.yaml"
	DatabaseFileName = "kairn.db"
)

//go:embed kairn.yaml.default
var DefaultConfigYAML []byte

// DefaultWorkspace returns ~/.kairn, or .kairn when there is no home
// directory.
func DefaultWorkspace() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("no home directory, using relative workspace", "error", err)
		return ".kairn"
	}
	return filepath.Join(home, ".kairn")
}

// ConfigPath returns the config file location inside workspace.
func ConfigPath(workspace string) string {
	return filepath.Join(workspace, ConfigFileName)
}

// BootstrapConfig writes the default commented config into workspace if no
// config exists there yet. It returns the config path and whether it was
// written.
func BootstrapConfig(workspace string) (string, bool, error) {
	cfgPath := ConfigPath(workspace)

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, kairnerr.Errorf(kairnerr.CodeConfigLoadReadFailure, "checking %s: %w", cfgPath, err)
	}

	var probe map[string]any
	if err := yaml.Unmarshal(DefaultConfigYAML, &probe); err != nil {
		return "", false, kairnerr.Errorf(kairnerr.CodeConfigParseInvalidFormat, "embedded default config: %w", err)
	}

	if err := os.MkdirAll(workspace, 0o700); err != nil {
		return "", false, kairnerr.Errorf(kairnerr.CodeConfigLoadReadFailure, "creating workspace %s: %w", workspace, err)
	}
	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		return "", false, kairnerr.Errorf(kairnerr.CodeConfigLoadReadFailure, "writing %s: %w", cfgPath, err)
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath, true, nil
}
