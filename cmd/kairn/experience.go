// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kairn-ai/kairn/internal/experience"
	"github.com/kairn-ai/kairn/internal/kairn"
	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

func newExperienceCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "experience",
		Aliases: []string{"exp"},
		Short:   "Manage decaying experiences",
	}
	cmd.AddCommand(
		newExperienceSaveCmd(c),
		newExperienceSearchCmd(c),
		newExperienceAccessCmd(c),
		newExperiencePruneCmd(c),
		newExperiencePromoteCmd(c),
	)
	return cmd
}

func newExperienceSaveCmd(c *cli) *cobra.Command {
	var (
		typ, confidence, origin string
		tags                    []string
	)
	cmd := &cobra.Command{
		Use:   "save <content>",
		Short: "Save an experience",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				exp, err := app.Experience.Save(ctx, experience.SaveInput{
					Content:    strings.Join(args, " "),
					Type:       store.ExperienceType(typ),
					Context:    origin,
					Confidence: store.Confidence(confidence),
					Tags:       tags,
				})
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"experience": toExperienceView(exp, app.Experience.Relevance(exp))})
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(store.ExperienceSolution), "solution, pattern, decision, workaround or gotcha")
	cmd.Flags().StringVar(&confidence, "confidence", string(store.ConfidenceHigh), "high, medium or low")
	cmd.Flags().StringVar(&origin, "context", "", "where the experience came from")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to attach (repeatable)")
	return cmd
}

func newExperienceSearchCmd(c *cli) *cobra.Command {
	var (
		in  experience.SearchInput
		typ string
	)
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search experiences by current relevance",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Text = strings.Join(args, " ")
			in.Type = store.ExperienceType(typ)
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				scored, err := app.Experience.Search(ctx, in)
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"count": len(scored), "experiences": toScoredViews(scored)})
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "only this experience type")
	cmd.Flags().Float64Var(&in.MinRelevance, "min-relevance", 0, "drop experiences below this relevance")
	cmd.Flags().IntVarP(&in.Limit, "limit", "n", 10, "page size")
	cmd.Flags().IntVar(&in.Offset, "offset", 0, "page offset")
	return cmd
}

func newExperienceAccessCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "access <id>",
		Short: "Record a read of an experience",
		Long:  "Count an access. The experience is promoted to a graph node on its fifth access.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				exp, err := app.Experience.Access(ctx, args[0])
				if err != nil {
					return err
				}
				if exp == nil {
					return kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "experience %s: %w", args[0], store.ErrNotFound)
				}
				return c.print(cmd, payload{"experience": toExperienceView(exp, app.Experience.Relevance(exp))})
			})
		},
	}
}

func newExperiencePruneCmd(c *cli) *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete experiences whose relevance has decayed below a threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				pruned, err := app.Experience.Prune(ctx, threshold)
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"count": len(pruned), "pruned": nonNil(pruned)})
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", experience.DefaultPruneThreshold, "delete experiences with relevance below this value (0 deletes nothing)")
	return cmd
}

func newExperiencePromoteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "promote",
		Short: "Promote every experience that reached the access threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				done, err := app.Experience.PromotePending(ctx)
				if err != nil {
					return err
				}
				promoted := make([]map[string]string, 0, len(done))
				for _, p := range done {
					promoted = append(promoted, map[string]string{"experience_id": p.ExperienceID, "node_id": p.NodeID})
				}
				return c.print(cmd, payload{"count": len(promoted), "promoted": promoted})
			})
		},
	}
}
