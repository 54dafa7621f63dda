// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kairn-ai/kairn/internal/kairn"
)

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				stats, err := app.Graph.Stats(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"stats": toStatsView(stats)})
			})
		},
	}
}
