// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

// Package intelligence combines the graph, experience and routing engines
// into the knowledge operations an agent calls: learn, recall, crossref,
// context and related.
package intelligence

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kairn-ai/kairn/internal/events"
	"github.com/kairn-ai/kairn/internal/experience"
	"github.com/kairn-ai/kairn/internal/graph"
	"github.com/kairn-ai/kairn/internal/keywords"
	"github.com/kairn-ai/kairn/internal/router"
	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

const (
	// LearnedTypePrefix is prepended to the experience type in learned node
	// types, e.g. learned_solution.
	LearnedTypePrefix = "learned_"

	// Version tags every envelope returned to callers.
	Version = "1.0"

	defaultLimit         = 10
	learnedNameRunes     = 60
	summaryContentRunes  = 200
	crossrefMinRelevance = 0.1
	fallbackConfidence   = 0.5
)

// Hit sources.
const (
	SourceNode       = "node"
	SourceExperience = "experience"
)

// Layer is the Intelligence Layer.
type Layer struct {
	graph      *graph.Engine
	router     *router.Router
	experience *experience.Engine
	bus        events.Emitter
	logger     *slog.Logger
}

// Option configures a Layer.
type Option func(*Layer)

// WithLogger sets the layer logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Layer) { s.logger = l }
}

// New wires a Layer over the three engines.
func New(g *graph.Engine, r *router.Router, x *experience.Engine, bus events.Emitter, opts ...Option) *Layer {
	l := &Layer{graph: g, router: r, experience: x, bus: bus, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	if l.bus == nil {
		l.bus = events.Nop{}
	}
	return l
}

// LearnInput is knowledge captured from a conversation. Confidence defaults
// to high.
type LearnInput struct {
	Content    string
	Type       store.ExperienceType
	Context    string
	Confidence store.Confidence
	Tags       []string
}

// LearnResult reports where learned knowledge was stored.
type LearnResult struct {
	Version      string `json:"_v" yaml:"_v"`
	StoredAs     string `json:"stored_as" yaml:"stored_as"`
	NodeID       string `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	ExperienceID string `json:"experience_id" yaml:"experience_id"`
	Type         string `json:"type" yaml:"type"`
	Confidence   string `json:"confidence" yaml:"confidence"`
}

// Hit is one recall or crossref result. Node hits always have relevance 1.
type Hit struct {
	Source      string  `json:"source" yaml:"source"`
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name,omitempty" yaml:"name,omitempty"`
	Type        string  `json:"type" yaml:"type"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Content     string  `json:"content,omitempty" yaml:"content,omitempty"`
	Confidence  string  `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Relevance   float64 `json:"relevance" yaml:"relevance"`
}

// ContextExperience is the disclosed view of an experience in Context.
type ContextExperience struct {
	ID         string   `json:"id" yaml:"id"`
	Type       string   `json:"type" yaml:"type"`
	Content    string   `json:"content" yaml:"content"`
	Relevance  float64  `json:"relevance" yaml:"relevance"`
	Confidence string   `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Context    string   `json:"context,omitempty" yaml:"context,omitempty"`
}

// ContextResult is the subgraph and memories relevant to a query.
type ContextResult struct {
	Version     string               `json:"_v" yaml:"_v"`
	Query       string               `json:"query" yaml:"query"`
	Detail      string               `json:"detail" yaml:"detail"`
	Count       int                  `json:"count" yaml:"count"`
	Nodes       []router.ContextNode `json:"nodes" yaml:"nodes"`
	Experiences []ContextExperience  `json:"experiences" yaml:"experiences"`
}

// Learn stores knowledge. High-confidence input also becomes a permanent,
// routed node; every input becomes a decaying experience.
func (l *Layer) Learn(ctx context.Context, in LearnInput) (*LearnResult, error) {
	save := experience.SaveInput{
		Content:    strings.TrimSpace(in.Content),
		Type:       in.Type,
		Context:    in.Context,
		Confidence: in.Confidence,
		Tags:       in.Tags,
	}
	if err := save.Validate(); err != nil {
		return nil, err
	}

	res := &LearnResult{
		Version:    Version,
		StoredAs:   SourceExperience,
		Type:       string(save.Type),
		Confidence: string(save.Confidence),
	}

	if save.Confidence == store.ConfidenceHigh {
		node, err := l.graph.AddNode(ctx, graph.NodeInput{
			Name:        experience.Title(string(save.Type)) + ": " + experience.TruncateRunes(save.Content, learnedNameRunes),
			Type:        LearnedTypePrefix + string(save.Type),
			Namespace:   store.DefaultNamespace,
			Description: save.Content,
			Tags:        save.Tags,
			SourceType:  "learn",
		})
		if err != nil {
			return nil, err
		}
		if _, err := l.router.UpdateRoutesForNode(ctx, node.ID, node.Name, node.Description); err != nil {
			return nil, err
		}
		res.StoredAs = SourceNode
		res.NodeID = node.ID
	}

	exp, err := l.experience.Save(ctx, save)
	if err != nil {
		return nil, err
	}
	res.ExperienceID = exp.ID

	l.logger.Info("knowledge learned", "type", res.Type, "confidence", res.Confidence, "stored_as", res.StoredAs)
	if err := l.bus.Emit(ctx, events.KnowledgeLearned, map[string]any{
		"stored_as":     res.StoredAs,
		"node_id":       res.NodeID,
		"experience_id": res.ExperienceID,
		"type":          res.Type,
		"confidence":    res.Confidence,
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Recall surfaces nodes and experiences about topic, most relevant first. An
// empty topic returns the most recent knowledge.
func (l *Layer) Recall(ctx context.Context, topic string, limit int, minRelevance float64) ([]Hit, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	hits, err := l.search(ctx, topic, true, limit, minRelevance)
	if err != nil {
		return nil, err
	}

	if err := l.bus.Emit(ctx, events.KnowledgeRecalled, map[string]any{
		"topic":        topic,
		"result_count": len(hits),
	}); err != nil {
		return nil, err
	}
	return hits, nil
}

// Crossref finds existing solutions for a problem description.
func (l *Layer) Crossref(ctx context.Context, problem string, limit int) ([]Hit, error) {
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return nil, kairnerr.New(kairnerr.CodeIntelligenceInputInvalid, "problem description is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	hits, err := l.search(ctx, problem, false, limit, crossrefMinRelevance)
	if err != nil {
		return nil, err
	}

	if err := l.bus.Emit(ctx, events.CrossrefFound, map[string]any{
		"problem":      problem,
		"result_count": len(hits),
	}); err != nil {
		return nil, err
	}
	return hits, nil
}

// search merges node and experience hits for text. When text has no
// searchable terms, nodes are listed only if listAll is set.
func (l *Layer) search(ctx context.Context, text string, listAll bool, limit int, minRelevance float64) ([]Hit, error) {
	var nodes []*store.Node
	var scored []experience.Scored

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if !listAll && keywords.FTSQuery(text) == "" {
			return nil
		}
		var err error
		nodes, err = l.graph.Search(gctx, text, store.NodeQuery{Limit: limit})
		return err
	})
	g.Go(func() error {
		var err error
		scored, err = l.experience.Search(gctx, experience.SearchInput{
			Text:         text,
			MinRelevance: minRelevance,
			Limit:        limit,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, kairnerr.Wrap(err, kairnerr.CodeIntelligenceSearchFailure, "searching knowledge")
	}

	hits := make([]Hit, 0, len(nodes)+len(scored))
	for _, n := range nodes {
		hits = append(hits, Hit{
			Source:      SourceNode,
			ID:          n.ID,
			Name:        n.Name,
			Type:        n.Type,
			Description: n.Description,
			Relevance:   1.0,
		})
	}
	for _, s := range scored {
		hits = append(hits, Hit{
			Source:     SourceExperience,
			ID:         s.Experience.ID,
			Type:       string(s.Experience.Type),
			Content:    s.Experience.Content,
			Confidence: string(s.Experience.Confidence),
			Relevance:  round4(s.Relevance),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Relevance > hits[j].Relevance })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Context returns routed nodes, falling back to full-text search, together
// with relevant experiences. Summary detail trims both.
func (l *Layer) Context(ctx context.Context, query, detail string, limit int) (*ContextResult, error) {
	if detail != router.DetailFull {
		detail = router.DetailSummary
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	query = strings.TrimSpace(query)
	res := &ContextResult{
		Version:     Version,
		Query:       query,
		Detail:      detail,
		Nodes:       []router.ContextNode{},
		Experiences: []ContextExperience{},
	}
	if query == "" {
		return res, nil
	}

	routed, err := l.router.Context(ctx, query, detail, limit)
	if err != nil {
		return nil, err
	}
	res.Nodes = append(res.Nodes, routed.Nodes...)

	if len(res.Nodes) == 0 && keywords.FTSQuery(query) != "" {
		found, err := l.graph.Search(ctx, query, store.NodeQuery{Limit: limit})
		if err != nil {
			return nil, err
		}
		for _, n := range found {
			cn := router.ContextNode{ID: n.ID, Name: n.Name, Type: n.Type, Confidence: fallbackConfidence}
			if detail == router.DetailFull {
				cn.Description = n.Description
				cn.Tags = n.Tags
				cn.Properties = n.Properties
			}
			res.Nodes = append(res.Nodes, cn)
		}
	}

	scored, err := l.experience.Search(ctx, experience.SearchInput{
		Text:         query,
		MinRelevance: crossrefMinRelevance,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	for _, s := range scored {
		ce := ContextExperience{
			ID:        s.Experience.ID,
			Type:      string(s.Experience.Type),
			Content:   s.Experience.Content,
			Relevance: round4(s.Relevance),
		}
		if detail == router.DetailFull {
			ce.Confidence = string(s.Experience.Confidence)
			ce.Tags = s.Experience.Tags
			ce.Context = s.Experience.Context
		} else {
			ce.Content = experience.TruncateRunes(ce.Content, summaryContentRunes)
		}
		res.Experiences = append(res.Experiences, ce)
	}

	res.Count = len(res.Nodes) + len(res.Experiences)
	return res, nil
}

// Related returns the nodes within depth hops of nodeID. Depth defaults
// to 1.
func (l *Layer) Related(ctx context.Context, nodeID string, depth int, edgeType string) ([]graph.RelatedNode, error) {
	if depth <= 0 {
		depth = 1
	}
	return l.graph.Related(ctx, nodeID, depth, edgeType)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
