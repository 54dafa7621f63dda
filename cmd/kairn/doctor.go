// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/kairn-ai/kairn/internal/config"
)

// integrityChecker is implemented by backends that can verify themselves.
type integrityChecker interface {
	IntegrityCheck(ctx context.Context) (string, error)
	SchemaVersion() (int, error)
}

func newDoctorCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, configuration, database integrity and free disk space of the workspace.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runDoctor(cmd)
		},
	}
}

func (c *cli) runDoctor(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", func() string { return checkConfig(c.cfg) }},
		{"Database", func() string { return c.checkDatabase(cmd) }},
		{"Disk Space", func() string { return checkDiskSpace(c.cfg.Workspace) }},
	}

	for _, ch := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", ch.name+":", ch.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("kairn %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(cfg *config.Config) string {
	if cfg.File == "" {
		return "using defaults (no config file found)"
	}
	if config.WarnInsecurePermissions(cfg.File) {
		return fmt.Sprintf("loaded from %s (insecure permissions, want 0600)", cfg.File)
	}
	return fmt.Sprintf("loaded from %s", cfg.File)
}

func (c *cli) checkDatabase(cmd *cobra.Command) string {
	path := c.cfg.Storage.Path
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Sprintf("not initialised at %s (run 'kairn init')", path)
	}

	app, err := c.open(cmd.Context())
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	defer func() { _ = app.Close() }()

	ic, ok := app.Store.(integrityChecker)
	if !ok {
		return fmt.Sprintf("%s backend at %s", c.cfg.Storage.Backend, path)
	}
	result, err := ic.IntegrityCheck(cmd.Context())
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	schema, err := ic.SchemaVersion()
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s (schema v%d) at %s", result, schema, path)
}

func checkDiskSpace(workspace string) string {
	path := workspace
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Fall back to home directory if the workspace doesn't exist yet.
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
