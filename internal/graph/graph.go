// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

// Package graph owns knowledge-graph nodes and edges: CRUD, full-text query,
// automatic weak linking and bounded traversal.
package graph

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kairn-ai/kairn/internal/events"
	"github.com/kairn-ai/kairn/internal/keywords"
	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

const (
	// AutoRelatedType is the edge type created by auto-linking.
	AutoRelatedType = "auto_related"
	autoLinkWeight  = 0.5
	autoLinkMax     = 5

	defaultLimit = 10
	maxLimit     = 50
)

// Engine is the Graph Engine.
type Engine struct {
	store        store.Store
	bus          events.Emitter
	logger       *slog.Logger
	now          func() time.Time
	defaultLimit int
	maxLimit     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for best-effort paths.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPagination sets the default and maximum page size for Query.
func WithPagination(def, max int) Option {
	return func(e *Engine) {
		if def > 0 {
			e.defaultLimit = def
		}
		if max > 0 {
			e.maxLimit = max
		}
	}
}

// New creates a Graph Engine over s that publishes to bus.
func New(s store.Store, bus events.Emitter, opts ...Option) *Engine {
	e := &Engine{
		store:        s,
		bus:          bus,
		logger:       slog.Default(),
		now:          time.Now,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = events.Nop{}
	}
	return e
}

// NodeInput describes a node to create. Empty Namespace and Visibility take
// the store defaults; an empty ID is generated.
type NodeInput struct {
	ID          string
	Name        string
	Type        string
	Namespace   string
	Description string
	Properties  map[string]any
	Tags        []string
	Visibility  string
	SourceType  string
	SourceRef   string
	CreatedBy   string
}

// NodeUpdate carries the fields to change. Nil fields are left alone.
type NodeUpdate struct {
	Name        *string
	Type        *string
	Namespace   *string
	Description *string
	Properties  map[string]any
	Tags        []string
	Visibility  *string
}

// RelatedNode is a traversal hit and its distance from the start node.
type RelatedNode struct {
	Node  *store.Node
	Depth int
}

// AddNode persists a node and links it to similar existing nodes.
func (e *Engine) AddNode(ctx context.Context, in NodeInput) (*store.Node, error) {
	name := strings.TrimSpace(in.Name)
	typ := strings.TrimSpace(in.Type)
	if name == "" {
		return nil, kairnerr.New(kairnerr.CodeGraphNodeInvalid, "node name is required")
	}
	if typ == "" {
		return nil, kairnerr.New(kairnerr.CodeGraphNodeInvalid, "node type is required")
	}

	node := &store.Node{
		ID:          in.ID,
		Namespace:   orDefault(in.Namespace, store.DefaultNamespace),
		Type:        typ,
		Name:        name,
		Description: in.Description,
		Properties:  in.Properties,
		Tags:        in.Tags,
		Visibility:  orDefault(in.Visibility, store.DefaultVisibility),
		SourceType:  orDefault(in.SourceType, "manual"),
		SourceRef:   in.SourceRef,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   e.now().UTC(),
	}
	if node.ID == "" {
		node.ID = uuid.NewString()
	}

	if err := e.store.Nodes().Insert(ctx, node); err != nil {
		return nil, err
	}

	e.autoLink(ctx, node)

	if err := e.bus.Emit(ctx, events.NodeCreated, map[string]any{
		"node_id":   node.ID,
		"name":      node.Name,
		"namespace": node.Namespace,
		"type":      node.Type,
	}); err != nil {
		return nil, err
	}
	return node, nil
}

// autoLink connects node to up to autoLinkMax nodes that share keywords with
// it. Every failure is logged and ignored.
func (e *Engine) autoLink(ctx context.Context, node *store.Node) {
	terms := keywords.AutoLink(node.Name + " " + node.Description)
	if len(terms) == 0 {
		return
	}

	hits, err := e.store.Nodes().Query(ctx, store.NodeQuery{
		Match:     keywords.OrQuery(terms),
		ExcludeID: node.ID,
		Limit:     autoLinkMax + 1,
	})
	if err != nil {
		e.logger.Warn("auto-link search failed", "node_id", node.ID, "error", err)
		return
	}

	linked := 0
	for _, hit := range hits {
		if linked == autoLinkMax {
			break
		}
		if hit.ID == node.ID {
			continue
		}
		err := e.store.Edges().Insert(ctx, &store.Edge{
			SourceID:  node.ID,
			TargetID:  hit.ID,
			Type:      AutoRelatedType,
			Weight:    autoLinkWeight,
			CreatedAt: node.CreatedAt,
		})
		if err != nil {
			e.logger.Debug("auto-link edge skipped", "source", node.ID, "target", hit.ID, "error", err)
			continue
		}
		linked++
	}
}

// GetNode returns the live node with id, or nil when there is none.
func (e *Engine) GetNode(ctx context.Context, id string) (*store.Node, error) {
	n, err := e.store.Nodes().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return n, err
}

// UpdateNode applies upd and stamps the update time. It returns nil when the
// node is absent or deleted.
func (e *Engine) UpdateNode(ctx context.Context, id string, upd NodeUpdate) (*store.Node, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, kairnerr.New(kairnerr.CodeGraphNodeInvalid, "node name cannot be empty", kairnerr.FieldNodeID(id))
	}
	if upd.Type != nil && strings.TrimSpace(*upd.Type) == "" {
		return nil, kairnerr.New(kairnerr.CodeGraphNodeInvalid, "node type cannot be empty", kairnerr.FieldNodeID(id))
	}

	patch := store.NodePatch{
		Name:        upd.Name,
		Type:        upd.Type,
		Namespace:   upd.Namespace,
		Description: upd.Description,
		Properties:  upd.Properties,
		Tags:        upd.Tags,
		Visibility:  upd.Visibility,
		UpdatedAt:   e.now().UTC(),
	}
	n, err := e.store.Nodes().Update(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := e.bus.Emit(ctx, events.NodeUpdated, map[string]any{
		"node_id": id,
		"fields":  patch.Fields(),
	}); err != nil {
		return nil, err
	}
	return n, nil
}

// RemoveNode soft-deletes a node. A second call reports false.
func (e *Engine) RemoveNode(ctx context.Context, id string) (bool, error) {
	ok, err := e.store.Nodes().SoftDelete(ctx, id, e.now().UTC())
	if err != nil || !ok {
		return false, err
	}
	return true, e.bus.Emit(ctx, events.NodeDeleted, map[string]any{"node_id": id})
}

// RestoreNode clears a node's delete stamp.
func (e *Engine) RestoreNode(ctx context.Context, id string) (bool, error) {
	ok, err := e.store.Nodes().Restore(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return true, e.bus.Emit(ctx, events.NodeRestored, map[string]any{"node_id": id})
}

// Query lists live nodes. q.Match is a raw FTS expression; use
// keywords.FTSQuery to build one from user text.
func (e *Engine) Query(ctx context.Context, q store.NodeQuery) ([]*store.Node, error) {
	q.Limit = e.clampLimit(q.Limit)
	if q.Offset < 0 {
		q.Offset = 0
	}
	return e.store.Nodes().Query(ctx, q)
}

// Search runs Query with text converted to an OR expression. Text with no
// searchable terms lists nodes without ranking.
func (e *Engine) Search(ctx context.Context, text string, q store.NodeQuery) ([]*store.Node, error) {
	q.Match = keywords.FTSQuery(text)
	return e.Query(ctx, q)
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.defaultLimit
	}
	if limit > e.maxLimit {
		return e.maxLimit
	}
	return limit
}

// Connect creates a typed edge. Both endpoints must be live nodes.
func (e *Engine) Connect(ctx context.Context, sourceID, targetID, edgeType string, weight float64, props map[string]any) (*store.Edge, error) {
	edgeType = strings.TrimSpace(edgeType)
	if sourceID == "" || targetID == "" || edgeType == "" {
		return nil, kairnerr.New(kairnerr.CodeGraphEdgeInvalid, "source, target and edge type are required")
	}
	if weight < 0 || weight > 1 {
		return nil, kairnerr.Errorf(kairnerr.CodeGraphEdgeInvalid, "edge weight must be within [0,1], got %g", weight)
	}

	edge := &store.Edge{
		SourceID:   sourceID,
		TargetID:   targetID,
		Type:       edgeType,
		Weight:     weight,
		Properties: props,
		CreatedAt:  e.now().UTC(),
	}
	if err := e.store.Edges().Insert(ctx, edge); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, kairnerr.Errorf(kairnerr.CodeGraphEdgeEndpointNotFound,
				"connecting %s -> %s: endpoint %w", sourceID, targetID, store.ErrNotFound)
		}
		return nil, err
	}

	if err := e.bus.Emit(ctx, events.EdgeCreated, map[string]any{
		"source_id": sourceID,
		"target_id": targetID,
		"type":      edgeType,
	}); err != nil {
		return nil, err
	}
	return edge, nil
}

// Disconnect deletes the exact (source, target, type) edge.
func (e *Engine) Disconnect(ctx context.Context, sourceID, targetID, edgeType string) (bool, error) {
	ok, err := e.store.Edges().Delete(ctx, sourceID, targetID, edgeType)
	if err != nil || !ok {
		return false, err
	}
	return true, e.bus.Emit(ctx, events.EdgeDeleted, map[string]any{
		"source_id": sourceID,
		"target_id": targetID,
		"type":      edgeType,
	})
}

// Edges lists the edges touching nodeID.
func (e *Engine) Edges(ctx context.Context, nodeID string, dir store.EdgeDirection, edgeType string) ([]*store.Edge, error) {
	if dir == "" {
		dir = store.DirectionBoth
	}
	if !dir.Valid() {
		return nil, kairnerr.Errorf(kairnerr.CodeGraphEdgeInvalid, "invalid edge direction %q", dir)
	}
	return e.store.Edges().List(ctx, store.EdgeQuery{NodeID: nodeID, Direction: dir, Type: edgeType})
}

// Related walks the graph breadth-first from startID, following edges in
// either direction, and returns every live node within depth hops. The start
// node is never included.
func (e *Engine) Related(ctx context.Context, startID string, depth int, edgeType string) ([]RelatedNode, error) {
	if depth < 1 {
		return nil, nil
	}

	type item struct {
		id    string
		depth int
	}
	visited := map[string]bool{startID: true}
	queue := []item{{startID, 0}}
	var out []RelatedNode

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth == depth {
			continue
		}

		edges, err := e.store.Edges().List(ctx, store.EdgeQuery{
			NodeID:    cur.id,
			Direction: store.DirectionBoth,
			Type:      edgeType,
		})
		if err != nil {
			return nil, err
		}

		for _, edge := range edges {
			next := edge.TargetID
			if next == cur.id {
				next = edge.SourceID
			}
			if visited[next] {
				continue
			}
			visited[next] = true

			n, err := e.GetNode(ctx, next)
			if err != nil {
				return nil, err
			}
			if n == nil {
				continue
			}
			out = append(out, RelatedNode{Node: n, Depth: cur.depth + 1})
			queue = append(queue, item{next, cur.depth + 1})
		}
	}
	return out, nil
}

// Stats summarises the store.
func (e *Engine) Stats(ctx context.Context) (*store.Stats, error) {
	return e.store.Stats(ctx)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
