// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

// Package router maps free text to graph nodes through a persisted keyword
// index.
package router

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/kairn-ai/kairn/internal/events"
	"github.com/kairn-ai/kairn/internal/keywords"
	"github.com/kairn-ai/kairn/internal/store"
)

const (
	// DefaultConfidence is assigned to newly created routes.
	DefaultConfidence = 0.5
	// DefaultMinConfidence is used when Route is given a non-positive
	// threshold.
	DefaultMinConfidence = 0.3

	defaultLimit = 10
)

// Detail levels for Context.
const (
	DetailSummary = "summary"
	DetailFull    = "full"
)

// Router is the Context Router.
type Router struct {
	routes store.RouteStore
	nodes  store.NodeStore
	bus    events.Emitter
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithClock overrides time.Now for route timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New creates a Router over the route and node stores of s.
func New(s store.Store, bus events.Emitter, opts ...Option) *Router {
	r := &Router{
		routes: s.Routes(),
		nodes:  s.Nodes(),
		bus:    bus,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.bus == nil {
		r.bus = events.Nop{}
	}
	return r
}

// Match is a routed node with the best confidence of the keywords that led
// to it.
type Match struct {
	Node       *store.Node
	Confidence float64
}

// Route extracts keywords from text and returns the nodes their routes point
// at, best confidence first.
func (r *Router) Route(ctx context.Context, text string, limit int, minConfidence float64) ([]Match, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	kws := keywords.Route(text)
	if len(kws) == 0 {
		return nil, nil
	}
	routes, err := r.routes.Lookup(ctx, kws)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	var order []string
	for _, rt := range routes {
		if rt.Confidence < minConfidence {
			continue
		}
		for _, id := range rt.NodeIDs {
			prev, seen := scores[id]
			if !seen {
				order = append(order, id)
			}
			scores[id] = max(prev, rt.Confidence)
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}

	matches := make([]Match, 0, len(order))
	for _, id := range order {
		node, err := r.nodes.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Node: node, Confidence: scores[id]})
	}
	return matches, nil
}

// UpdateRoutesForNode indexes the node under every keyword of its name and
// description. Existing routes keep their confidence.
func (r *Router) UpdateRoutesForNode(ctx context.Context, nodeID, name, description string) ([]string, error) {
	kws := keywords.Route(name + " " + description)
	at := r.now().UTC()
	for _, k := range kws {
		if _, err := r.routes.AddNode(ctx, k, nodeID, DefaultConfidence, at); err != nil {
			return nil, err
		}
	}

	r.logger.Debug("routes updated", "node_id", nodeID, "keywords", len(kws))
	if err := r.bus.Emit(ctx, events.RouteUpdated, map[string]any{
		"node_id":  nodeID,
		"keywords": kws,
	}); err != nil {
		return nil, err
	}
	return kws, nil
}

// ContextNode is the disclosed view of a routed node. Summary detail leaves
// the optional fields empty.
type ContextNode struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Type        string         `json:"type" yaml:"type"`
	Confidence  float64        `json:"confidence" yaml:"confidence"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Properties  map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// ContextResult is the versioned envelope returned by Context.
type ContextResult struct {
	Version string        `json:"_v" yaml:"_v"`
	Query   string        `json:"query" yaml:"query"`
	Detail  string        `json:"detail" yaml:"detail"`
	Count   int           `json:"count" yaml:"count"`
	Nodes   []ContextNode `json:"nodes" yaml:"nodes"`
}

// Context routes text and discloses the hits at the requested detail level.
// Anything other than DetailFull is treated as summary.
func (r *Router) Context(ctx context.Context, text, detail string, limit int) (*ContextResult, error) {
	if detail != DetailFull {
		detail = DetailSummary
	}
	matches, err := r.Route(ctx, text, limit, 0)
	if err != nil {
		return nil, err
	}

	nodes := make([]ContextNode, 0, len(matches))
	for _, m := range matches {
		cn := ContextNode{
			ID:         m.Node.ID,
			Name:       m.Node.Name,
			Type:       m.Node.Type,
			Confidence: m.Confidence,
		}
		if detail == DetailFull {
			cn.Description = m.Node.Description
			cn.Tags = m.Node.Tags
			cn.Properties = m.Node.Properties
		}
		nodes = append(nodes, cn)
	}
	return &ContextResult{
		Version: "1.0",
		Query:   text,
		Detail:  detail,
		Count:   len(nodes),
		Nodes:   nodes,
	}, nil
}
