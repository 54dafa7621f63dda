// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

// Package ideas tracks proposals through a fixed status lifecycle.
package ideas

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kairn-ai/kairn/internal/events"
	"github.com/kairn-ai/kairn/internal/graph"
	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

const (
	// DefaultEdgeType links an idea to a graph node when no type is given.
	DefaultEdgeType = "idea_relates_to"
	// NodeNamespace and NodeType mark the graph nodes that stand for ideas.
	NodeNamespace = "idea"
	NodeType      = "idea"
)

var transitions = map[store.IdeaStatus][]store.IdeaStatus{
	store.IdeaDraft:        {store.IdeaEvaluating},
	store.IdeaEvaluating:   {store.IdeaApproved, store.IdeaArchived},
	store.IdeaApproved:     {store.IdeaImplementing, store.IdeaArchived},
	store.IdeaImplementing: {store.IdeaDone, store.IdeaArchived},
	store.IdeaDone:         {store.IdeaArchived},
	store.IdeaArchived:     {store.IdeaDraft},
}

var happyPath = map[store.IdeaStatus]store.IdeaStatus{
	store.IdeaDraft:        store.IdeaEvaluating,
	store.IdeaEvaluating:   store.IdeaApproved,
	store.IdeaApproved:     store.IdeaImplementing,
	store.IdeaImplementing: store.IdeaDone,
}

// CanTransition reports whether an idea may move from one status to
// another. Staying put is always allowed.
func CanTransition(from, to store.IdeaStatus) bool {
	return from == to || slices.Contains(transitions[from], to)
}

// Graph is the part of the Graph Engine LinkToNode needs.
type Graph interface {
	GetNode(ctx context.Context, id string) (*store.Node, error)
	AddNode(ctx context.Context, in graph.NodeInput) (*store.Node, error)
	Connect(ctx context.Context, sourceID, targetID, edgeType string, weight float64, props map[string]any) (*store.Edge, error)
}

// Engine is the Idea Lifecycle engine.
type Engine struct {
	store  store.IdeaStore
	graph  Graph
	bus    events.Emitter
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an idea engine. g is used only by LinkToNode.
func New(s store.IdeaStore, g Graph, bus events.Emitter, opts ...Option) *Engine {
	e := &Engine{store: s, graph: g, bus: bus, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = events.Nop{}
	}
	return e
}

// CreateInput describes a new idea.
type CreateInput struct {
	Title      string
	Category   string
	Score      *float64
	Properties map[string]any
	Visibility string
	CreatedBy  string
}

// Update carries the fields to change. Nil fields are left alone.
type Update struct {
	Title      *string
	Status     *store.IdeaStatus
	Category   *string
	Score      *float64
	Properties map[string]any
	Visibility *string
}

// Create stores a new draft idea.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*store.Idea, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, kairnerr.New(kairnerr.CodeIdeaCreateInvalid, "idea title is required")
	}

	now := e.now().UTC()
	idea := &store.Idea{
		ID:         uuid.NewString(),
		Title:      title,
		Status:     store.IdeaDraft,
		Category:   in.Category,
		Score:      in.Score,
		Properties: in.Properties,
		Visibility: orDefault(in.Visibility, store.DefaultVisibility),
		CreatedBy:  in.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.store.Insert(ctx, idea); err != nil {
		return nil, err
	}

	e.logger.Info("idea created", "idea_id", idea.ID, "title", idea.Title)
	if err := e.bus.Emit(ctx, events.IdeaCreated, map[string]any{
		"idea_id": idea.ID,
		"title":   idea.Title,
	}); err != nil {
		return nil, err
	}
	return idea, nil
}

// Get returns the idea, or nil when there is none.
func (e *Engine) Get(ctx context.Context, id string) (*store.Idea, error) {
	idea, err := e.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return idea, err
}

// Update applies u after checking the status transition. It returns nil when
// the idea does not exist.
func (e *Engine) Update(ctx context.Context, id string, u Update) (*store.Idea, error) {
	current, err := e.Get(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}

	if u.Status != nil {
		if !u.Status.Valid() {
			return nil, kairnerr.Errorf(kairnerr.CodeIdeaTransitionInvalid,
				"invalid idea status %q", *u.Status)
		}
		if !CanTransition(current.Status, *u.Status) {
			return nil, kairnerr.Errorf(kairnerr.CodeIdeaTransitionInvalid,
				"cannot move idea from %s to %s: allowed %v",
				current.Status, *u.Status, transitions[current.Status])
		}
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return nil, kairnerr.New(kairnerr.CodeIdeaCreateInvalid, "idea title cannot be blank", kairnerr.FieldIdeaID(id))
	}

	changes := changedFields(current, u)
	updated, err := e.store.Update(ctx, id, store.IdeaPatch{
		Title:      u.Title,
		Status:     u.Status,
		Category:   u.Category,
		Score:      u.Score,
		Properties: u.Properties,
		Visibility: u.Visibility,
		UpdatedAt:  e.now().UTC(),
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		e.logger.Info("idea updated", "idea_id", id, "changes", changes)
		if err := e.bus.Emit(ctx, events.IdeaUpdated, map[string]any{
			"idea_id": id,
			"changes": changes,
		}); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// Advance moves the idea one step along draft, evaluating, approved,
// implementing, done. It returns nil once the idea is done or archived, or
// when it does not exist.
func (e *Engine) Advance(ctx context.Context, id string) (*store.Idea, error) {
	current, err := e.Get(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	next, ok := happyPath[current.Status]
	if !ok {
		e.logger.Debug("idea at end of lifecycle", "idea_id", id, "status", current.Status)
		return nil, nil
	}
	return e.Update(ctx, id, Update{Status: &next})
}

// List returns ideas by score, unscored last, then newest first.
func (e *Engine) List(ctx context.Context, q store.IdeaQuery) ([]*store.Idea, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, kairnerr.Errorf(kairnerr.CodeIdeaTransitionInvalid, "invalid idea status %q", q.Status)
	}
	return e.store.List(ctx, q)
}

// LinkToNode connects the idea to a graph node, creating the idea's own node
// first when needed. It returns nil when the idea or the target is missing.
func (e *Engine) LinkToNode(ctx context.Context, ideaID, nodeID, edgeType string) (*store.Edge, error) {
	if edgeType == "" {
		edgeType = DefaultEdgeType
	}

	idea, err := e.Get(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea == nil {
		e.logger.Warn("cannot link missing idea", "idea_id", ideaID)
		return nil, nil
	}
	target, err := e.graph.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		e.logger.Warn("cannot link idea to missing node", "idea_id", ideaID, "node_id", nodeID)
		return nil, nil
	}

	self, err := e.graph.GetNode(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if self == nil {
		if _, err := e.graph.AddNode(ctx, graph.NodeInput{
			ID:         idea.ID,
			Name:       idea.Title,
			Type:       NodeType,
			Namespace:  NodeNamespace,
			Visibility: idea.Visibility,
			SourceType: "idea",
			SourceRef:  idea.ID,
		}); err != nil {
			return nil, err
		}
		e.logger.Debug("created graph node for idea", "idea_id", ideaID)
	}

	edge, err := e.graph.Connect(ctx, ideaID, nodeID, edgeType, 1.0, nil)
	if err != nil {
		return nil, err
	}
	e.logger.Info("idea linked", "idea_id", ideaID, "node_id", nodeID, "edge_type", edgeType)
	return edge, nil
}

func changedFields(cur *store.Idea, u Update) []string {
	var changes []string
	if u.Title != nil && *u.Title != cur.Title {
		changes = append(changes, "title")
	}
	if u.Status != nil && *u.Status != cur.Status {
		changes = append(changes, "status")
	}
	if u.Category != nil && *u.Category != cur.Category {
		changes = append(changes, "category")
	}
	if u.Score != nil && (cur.Score == nil || *u.Score != *cur.Score) {
		changes = append(changes, "score")
	}
	if u.Properties != nil && !reflect.DeepEqual(u.Properties, cur.Properties) {
		changes = append(changes, "properties")
	}
	if u.Visibility != nil && *u.Visibility != cur.Visibility {
		changes = append(changes, "visibility")
	}
	return changes
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
