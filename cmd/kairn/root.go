// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kairn-ai/kairn/internal/config"
	"github.com/kairn-ai/kairn/internal/kairn"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

// cli is the state shared by every subcommand of one root command.
type cli struct {
	cfg    *config.Config
	logger *slog.Logger
	format string
}

// NewRootCmd creates the root kairn command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "kairn",
		Short:         "Kairn: persistent knowledge memory for AI agents",
		Long:          "Kairn stores knowledge as a graph of nodes, decaying experiences, keyword routes, ideas and projects.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	// Global flags. --workspace and --verbose become config overrides in setup.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("workspace", "", "path to the workspace directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.format, "format", formatJSON, "output format: json, yaml or text")

	root.AddCommand(
		newInitCmd(c),
		newStatusCmd(c),
		newDoctorCmd(c),
		newVersionCmd(c),
		newLearnCmd(c),
		newRecallCmd(c),
		newCrossrefCmd(c),
		newContextCmd(c),
		newRelatedCmd(c),
		newNodeCmd(c),
		newConnectCmd(c),
		newExperienceCmd(c),
		newIdeaCmd(c),
		newProjectCmd(c),
		newActivityCmd(c),
	)

	return root
}

// setup loads configuration (flag > env > file > defaults) and installs the
// stderr logger.
func (c *cli) setup(cmd *cobra.Command) error {
	if !validFormat(c.format) {
		return kairnerr.Errorf(kairnerr.CodeCLIInputInvalid, "unknown output format %q (want json, yaml or text)", c.format)
	}

	flags := cmd.Root().PersistentFlags()
	overrides := map[string]any{}
	if ws, _ := flags.GetString("workspace"); ws != "" {
		overrides["workspace"] = ws
	}
	verbose, _ := flags.GetBool("verbose")
	if verbose {
		overrides["log_level"] = "debug"
	}

	cfgFile, _ := flags.GetString("config")
	cfg, err := config.LoadWithOverrides(cfgFile, overrides)
	if err != nil {
		return err
	}
	c.cfg = cfg

	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(c.logger)

	config.WarnInsecurePermissions(cfg.File)
	return nil
}

// open builds the App for one command invocation. Callers must Close it.
func (c *cli) open(ctx context.Context) (*kairn.App, error) {
	if err := os.MkdirAll(c.cfg.Workspace, 0o700); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeCLISetupFailure, "creating workspace %s: %w", c.cfg.Workspace, err)
	}
	return kairn.Open(ctx, c.cfg, c.logger)
}

// withApp opens the App, runs fn and closes the App again.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *kairn.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			c.logger.Warn("closing kairn", "error", err)
		}
	}()
	return fn(ctx, app)
}
