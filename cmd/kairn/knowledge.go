// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kairn-ai/kairn/internal/intelligence"
	"github.com/kairn-ai/kairn/internal/kairn"
	"github.com/kairn-ai/kairn/internal/router"
	"github.com/kairn-ai/kairn/internal/store"
)

func newLearnCmd(c *cli) *cobra.Command {
	var (
		typ, confidence, origin string
		tags                    []string
	)
	cmd := &cobra.Command{
		Use:   "learn <content>",
		Short: "Store knowledge learned during a conversation",
		Long: "Save the content as an experience. High-confidence knowledge also becomes a " +
			"graph node with keyword routes.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				res, err := app.Intelligence.Learn(ctx, intelligence.LearnInput{
					Content:    strings.Join(args, " "),
					Type:       store.ExperienceType(typ),
					Context:    origin,
					Confidence: store.Confidence(confidence),
					Tags:       tags,
				})
				if err != nil {
					return err
				}
				return c.print(cmd, res)
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(store.ExperienceSolution), "solution, pattern, decision, workaround or gotcha")
	cmd.Flags().StringVar(&confidence, "confidence", string(store.ConfidenceHigh), "high, medium or low")
	cmd.Flags().StringVar(&origin, "context", "", "where the knowledge came from")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to attach (repeatable)")
	return cmd
}

func newRecallCmd(c *cli) *cobra.Command {
	var (
		limit        int
		minRelevance float64
	)
	cmd := &cobra.Command{
		Use:   "recall [topic]",
		Short: "Recall nodes and experiences about a topic",
		Long:  "Search nodes and experiences together, ranked by relevance. Without a topic everything is listed.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				hits, err := app.Intelligence.Recall(ctx, topic, limit, minRelevance)
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"topic": topic, "count": len(hits), "results": nonNil(hits)})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().Float64Var(&minRelevance, "min-relevance", 0, "drop experiences below this relevance")
	return cmd
}

func newCrossrefCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "crossref <problem>",
		Short: "Find prior solutions and workarounds for a problem",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			problem := strings.Join(args, " ")
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				hits, err := app.Intelligence.Crossref(ctx, problem, limit)
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"problem": problem, "count": len(hits), "results": nonNil(hits)})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	return cmd
}

func newContextCmd(c *cli) *cobra.Command {
	var (
		detail string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "context <keywords>",
		Short: "Return routed context for keywords",
		Long:  "Resolve keywords through the context router, falling back to full-text search.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				res, err := app.Intelligence.Context(ctx, strings.Join(args, " "), detail, limit)
				if err != nil {
					return err
				}
				return c.print(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&detail, "detail", router.DetailSummary, "summary or full")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of nodes")
	return cmd
}

func newRelatedCmd(c *cli) *cobra.Command {
	var (
		depth    int
		edgeType string
	)
	cmd := &cobra.Command{
		Use:   "related <node-id>",
		Short: "List nodes reachable from a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				related, err := app.Intelligence.Related(ctx, args[0], depth, edgeType)
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"node_id": args[0], "count": len(related), "related": toRelatedViews(related)})
			})
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 1, "maximum traversal depth")
	cmd.Flags().StringVar(&edgeType, "edge-type", "", "only follow edges of this type")
	return cmd
}

// nonNil keeps empty result lists as [] rather than null in JSON output.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
