// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kairn-ai/kairn/internal/ideas"
	"github.com/kairn-ai/kairn/internal/kairn"
	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

func newIdeaCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idea",
		Short: "Manage ideas and their lifecycle",
	}
	cmd.AddCommand(
		newIdeaCreateCmd(c),
		newIdeaAdvanceCmd(c),
		newIdeaStatusCmd(c),
		newIdeaListCmd(c),
		newIdeaLinkCmd(c),
	)
	return cmd
}

func ideaNotFound(id string) error {
	return kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "idea %s: %w", id, store.ErrNotFound)
}

func newIdeaCreateCmd(c *cli) *cobra.Command {
	var (
		category   string
		score      float64
		visibility string
	)
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Capture an idea as a draft",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := ideas.CreateInput{
				Title:      strings.Join(args, " "),
				Category:   category,
				Visibility: visibility,
			}
			if cmd.Flags().Changed("score") {
				in.Score = &score
			}
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				idea, err := app.Ideas.Create(ctx, in)
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"idea": toIdeaView(idea)})
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "idea category")
	cmd.Flags().Float64Var(&score, "score", 0, "priority score")
	cmd.Flags().StringVar(&visibility, "visibility", "", "idea visibility (default \"private\")")
	return cmd
}

func newIdeaAdvanceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <id>",
		Short: "Move an idea one step towards done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				current, err := app.Ideas.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if current == nil {
					return ideaNotFound(args[0])
				}
				next, err := app.Ideas.Advance(ctx, args[0])
				if err != nil {
					return err
				}
				if next == nil {
					return c.print(cmd, payload{"idea": toIdeaView(current), "advanced": false})
				}
				return c.print(cmd, payload{"idea": toIdeaView(next), "advanced": true})
			})
		},
	}
}

func newIdeaStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set an idea's status",
		Long:  "Move an idea to any status its lifecycle allows, including archived.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := store.IdeaStatus(args[1])
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				idea, err := app.Ideas.Update(ctx, args[0], ideas.Update{Status: &status})
				if err != nil {
					return err
				}
				if idea == nil {
					return ideaNotFound(args[0])
				}
				return c.print(cmd, payload{"idea": toIdeaView(idea)})
			})
		},
	}
}

func newIdeaListCmd(c *cli) *cobra.Command {
	var (
		q      store.IdeaQuery
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ideas by score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.Status = store.IdeaStatus(status)
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				list, err := app.Ideas.List(ctx, q)
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"count": len(list), "ideas": toIdeaViews(list)})
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only ideas with this status")
	cmd.Flags().StringVar(&q.Category, "category", "", "only ideas in this category")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 10, "page size")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "page offset")
	return cmd
}

func newIdeaLinkCmd(c *cli) *cobra.Command {
	var edgeType string
	cmd := &cobra.Command{
		Use:   "link <idea-id> <node-id>",
		Short: "Link an idea to a graph node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				edge, err := app.Ideas.LinkToNode(ctx, args[0], args[1], edgeType)
				if err != nil {
					return err
				}
				if edge == nil {
					return kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound,
						"linking idea %s to node %s: %w", args[0], args[1], store.ErrNotFound)
				}
				return c.print(cmd, payload{"edge": toEdgeView(edge)})
			})
		},
	}
	cmd.Flags().StringVarP(&edgeType, "type", "t", ideas.DefaultEdgeType, "edge type")
	return cmd
}
