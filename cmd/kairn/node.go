// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kairn-ai/kairn/internal/graph"
	"github.com/kairn-ai/kairn/internal/kairn"
	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

// defaultConnectType is the edge type used by "kairn connect" without --type.
const defaultConnectType = "related_to"

func newNodeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage knowledge graph nodes",
	}
	cmd.AddCommand(
		newNodeAddCmd(c),
		newNodeGetCmd(c),
		newNodeRemoveCmd(c),
		newNodeRestoreCmd(c),
		newNodeQueryCmd(c),
	)
	return cmd
}

func newNodeAddCmd(c *cli) *cobra.Command {
	var (
		in    graph.NodeInput
		route bool
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a node",
		Long:  "Add a node and link it to similar nodes. With --route its keywords are added to the context router.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = strings.Join(args, " ")
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				node, err := app.Graph.AddNode(ctx, in)
				if err != nil {
					return err
				}
				out := payload{"node": toNodeView(node)}
				if route {
					kws, err := app.Router.UpdateRoutesForNode(ctx, node.ID, node.Name, node.Description)
					if err != nil {
						return err
					}
					out["keywords"] = nonNil(kws)
				}
				return c.print(cmd, out)
			})
		},
	}
	cmd.Flags().StringVarP(&in.Type, "type", "t", "", "node type (required)")
	cmd.Flags().StringVar(&in.Namespace, "namespace", "", "node namespace (default \"knowledge\")")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "node description")
	cmd.Flags().StringSliceVar(&in.Tags, "tag", nil, "tag to attach (repeatable)")
	cmd.Flags().StringVar(&in.Visibility, "visibility", "", "node visibility (default \"private\")")
	cmd.Flags().StringVar(&in.SourceType, "source-type", "", "where the node came from")
	cmd.Flags().StringVar(&in.SourceRef, "source-ref", "", "reference into the source")
	cmd.Flags().BoolVar(&route, "route", false, "register the node's keywords with the context router")
	return cmd
}

func newNodeGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				node, err := app.Graph.GetNode(ctx, args[0])
				if err != nil {
					return err
				}
				if node == nil {
					return kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "node %s: %w", args[0], store.ErrNotFound)
				}
				edges, err := app.Graph.Edges(ctx, node.ID, store.DirectionBoth, "")
				if err != nil {
					return err
				}
				views := make([]edgeView, 0, len(edges))
				for _, e := range edges {
					views = append(views, toEdgeView(e))
				}
				return c.print(cmd, payload{"node": toNodeView(node), "edges": views})
			})
		},
	}
}

func newNodeRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Soft-delete a node",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				ok, err := app.Graph.RemoveNode(ctx, args[0])
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"node_id": args[0], "removed": ok})
			})
		},
	}
}

func newNodeRestoreCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a soft-deleted node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				ok, err := app.Graph.RestoreNode(ctx, args[0])
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"node_id": args[0], "restored": ok})
			})
		},
	}
}

func newNodeQueryCmd(c *cli) *cobra.Command {
	var q store.NodeQuery
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Search live nodes",
		Long:  "Full-text search over node names, descriptions and tags, filtered by namespace, type and tags.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				nodes, err := app.Graph.Search(ctx, strings.Join(args, " "), q)
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"count": len(nodes), "nodes": toNodeViews(nodes)})
			})
		},
	}
	cmd.Flags().StringVar(&q.Namespace, "namespace", "", "only this namespace")
	cmd.Flags().StringVarP(&q.Type, "type", "t", "", "only this node type")
	cmd.Flags().StringSliceVar(&q.Tags, "tag", nil, "require this tag (repeatable)")
	cmd.Flags().StringVar(&q.Visibility, "visibility", "", "only this visibility")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 0, "page size")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "page offset")
	return cmd
}

func newConnectCmd(c *cli) *cobra.Command {
	var (
		edgeType string
		weight   float64
	)
	cmd := &cobra.Command{
		Use:   "connect <source-id> <target-id>",
		Short: "Create a typed edge between two nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *kairn.App) error {
				edge, err := app.Graph.Connect(ctx, args[0], args[1], edgeType, weight, nil)
				if err != nil {
					return err
				}
				return c.print(cmd, payload{"edge": toEdgeView(edge)})
			})
		},
	}
	cmd.Flags().StringVarP(&edgeType, "type", "t", defaultConnectType, "edge type")
	cmd.Flags().Float64VarP(&weight, "weight", "w", 1.0, "edge weight within [0,1]")
	return cmd
}
