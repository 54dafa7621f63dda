// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kairn-ai/kairn/internal/kairn"
	"github.com/kairn-ai/kairn/internal/project"
	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

func newProjectCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects and their progress logs",
	}
	cmd.AddCommand(
		newProjectCreateCmd(c),
		newProjectActivateCmd(c),
		newProjectPhaseCmd(c),
		newProjectListCmd(c),
		newProjectLogCmd(c),
		newProjectProgressCmd(c),
	)
	return cmd
}

func projectNotFound(id string) error {
	return kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "project %s: %w", id, store.ErrNotFound)
}

func newProjectCreateCmd(c *cli) *cobra.Command {
	var (
		in       project.CreateInput
		activate bool
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project in the planning phase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = strings.Join(args, " ")
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				p, err := app.Projects.Create(ctx, in)
				if err != nil {
					return err
				}
				if activate {
					if _, err := app.Projects.SetActive(ctx, p.ID); err != nil {
						return err
					}
					if p, err = app.Projects.Get(ctx, p.ID); err != nil {
						return err
					}
				}
				return c.print(cmd, payload{"project": toProjectView(p)})
			})
		},
	}
	cmd.Flags().StringSliceVar(&in.Goals, "goal", nil, "project goal (repeatable)")
	cmd.Flags().StringSliceVar(&in.Stakeholders, "stakeholder", nil, "stakeholder (repeatable)")
	cmd.Flags().StringSliceVar(&in.SuccessMetrics, "metric", nil, "success metric (repeatable)")
	cmd.Flags().BoolVar(&activate, "activate", false, "make the new project the active one")
	return cmd
}

func newProjectActivateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Make a project the single active project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				ok, err := app.Projects.SetActive(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return projectNotFound(args[0])
				}
				p, err := app.Projects.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"project": toProjectView(p)})
			})
		},
	}
}

func newProjectPhaseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "phase <id> <phase>",
		Short: "Move a project to another phase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase := store.ProjectPhase(args[1])
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				p, err := app.Projects.Update(ctx, args[0], project.Update{Phase: &phase})
				if err != nil {
					return err
				}
				if p == nil {
					return projectNotFound(args[0])
				}
				return c.print(cmd, payload{"project": toProjectView(p)})
			})
		},
	}
}

func newProjectListCmd(c *cli) *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				list, err := app.Projects.List(ctx, activeOnly)
				if err != nil {
					return err
				}
				views := make([]projectView, 0, len(list))
				for _, p := range list {
					views = append(views, toProjectView(p))
				}
				return c.print(cmd, payload{"count": len(views), "projects": views})
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only the active project")
	return cmd
}

func newProjectLogCmd(c *cli) *cobra.Command {
	var (
		in      project.ProgressInput
		failure bool
	)
	cmd := &cobra.Command{
		Use:   "log <project-id> <action>",
		Short: "Append a progress or failure entry",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Action = strings.Join(args[1:], " ")
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				log := app.Projects.LogProgress
				if failure {
					log = app.Projects.LogFailure
				}
				entry, err := log(ctx, args[0], in)
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"project_id": args[0], "entry": toProgressView(entry)})
			})
		},
	}
	cmd.Flags().StringVar(&in.Result, "result", "", "what happened")
	cmd.Flags().StringVar(&in.NextStep, "next", "", "the next step")
	cmd.Flags().BoolVar(&failure, "failure", false, "record a failure instead of progress")
	return cmd
}

func newProjectProgressCmd(c *cli) *cobra.Command {
	var (
		typ   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "progress <project-id>",
		Short: "Show a project's progress log, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				entries, err := app.Projects.Progress(ctx, args[0], store.ProgressType(typ), limit)
				if err != nil {
					return err
				}
				views := make([]progressView, 0, len(entries))
				for _, e := range entries {
					views = append(views, toProgressView(e))
				}
				return c.print(cmd, payload{"project_id": args[0], "count": len(views), "entries": views})
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "progress or failure (default both)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of entries")
	return cmd
}
