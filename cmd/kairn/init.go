// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kairn-ai/kairn/internal/config"
	"github.com/kairn-ai/kairn/internal/kairn"
)

func newInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialise a workspace",
		Long:  "Write the default kairn.yaml into the workspace (if absent) and create the database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, created, err := config.BootstrapConfig(c.cfg.Workspace)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(_ context.Context, app *kairn.App) error {
				return c.print(cmd, payload{
					"workspace":      c.cfg.Workspace,
					"config":         path,
					"config_created": created,
					"database":       app.Store.Path(),
				})
			})
		},
	}
}
