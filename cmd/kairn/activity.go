// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kairn-ai/kairn/internal/kairn"
	"github.com/kairn-ai/kairn/internal/store"
)

func newActivityCmd(c *cli) *cobra.Command {
	var (
		filter store.ActivityFilter
		since  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent notifications from the activity log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				entries, err := app.Activity.Recent(ctx, filter)
				if err != nil {
					return err
				}
				views := make([]activityView, 0, len(entries))
				for _, a := range entries {
					views = append(views, activityView{
						ID:        a.ID,
						Type:      a.Type,
						Payload:   a.Payload,
						CreatedAt: stamp(a.CreatedAt),
					})
				}
				return c.print(cmd, payload{"count": len(views), "activity": views})
			})
		},
	}
	cmd.Flags().StringVarP(&filter.Type, "type", "t", "", "only this notification type")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries newer than this, e.g. 24h")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "maximum number of entries")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "page offset")
	return cmd
}
