// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kairn-ai/kairn/internal/store/sqlite"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newVersionCmd(c *cli) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the kairn build, schema and output versions",
		Long: `Show the kairn build together with the database schema version this
binary migrates to and the output envelope version ("_v") it writes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
				return err
			}
			return c.print(cmd, payload{
				"version":        version,
				"commit":         commit,
				"built":          date,
				"go":             runtime.Version(),
				"schema_version": sqlite.LatestSchemaVersion(),
				"output_version": outputVersion,
			})
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the release version")
	return cmd
}
