// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

// Package experience implements decaying memories and their promotion into
// permanent graph nodes.
package experience

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kairn-ai/kairn/internal/events"
	"github.com/kairn-ai/kairn/internal/graph"
	"github.com/kairn-ai/kairn/internal/keywords"
	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

const (
	// PromotionThreshold is the access count at which an experience becomes
	// a graph node.
	PromotionThreshold = 5
	// DefaultPruneThreshold is the relevance below which Prune deletes.
	DefaultPruneThreshold = 0.01
	// PromotedNodeType is the node type given to promoted experiences.
	PromotedNodeType = "promoted_experience"

	promotedNameRunes = 50
	defaultLimit      = 10
)

// NodeWriter is the part of the Graph Engine promotion needs.
type NodeWriter interface {
	AddNode(ctx context.Context, in graph.NodeInput) (*store.Node, error)
	Query(ctx context.Context, q store.NodeQuery) ([]*store.Node, error)
	RemoveNode(ctx context.Context, id string) (bool, error)
}

// Engine is the Experience Decay Engine.
type Engine struct {
	store  store.ExperienceStore
	nodes  NodeWriter
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

// WithClock overrides time.Now for creation stamps and relevance.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Experience Decay Engine. nodes receives promoted
// experiences.
func New(s store.ExperienceStore, nodes NodeWriter, bus events.Emitter, opts ...Option) *Engine {
	e := &Engine{store: s, nodes: nodes, bus: bus, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = events.Nop{}
	}
	return e
}

// SaveInput describes a new experience. Confidence defaults to high.
type SaveInput struct {
	Content    string
	Type       store.ExperienceType
	Context    string
	Confidence store.Confidence
	Tags       []string
	Properties map[string]any
}

// Scored pairs an experience with its relevance at query time.
type Scored struct {
	Experience *store.Experience
	Relevance  float64
}

// SearchInput filters Search. Text is natural language and is reduced to an
// OR query; text without searchable terms matches everything.
type SearchInput struct {
	Text         string
	Type         store.ExperienceType
	MinRelevance float64
	Limit        int
	Offset       int
}

// Promotion records one experience turned into a node.
type Promotion struct {
	ExperienceID string
	NodeID       string
}

// Validate checks the fields Save requires, applying the confidence default.
func (in *SaveInput) Validate() error {
	if strings.TrimSpace(in.Content) == "" {
		return kairnerr.New(kairnerr.CodeExperienceSaveInvalid, "experience content is required")
	}
	if !in.Type.Valid() {
		return kairnerr.Errorf(kairnerr.CodeExperienceSaveInvalid,
			"invalid experience type %q: must be one of %v", in.Type, store.ExperienceTypes)
	}
	if in.Confidence == "" {
		in.Confidence = store.ConfidenceHigh
	}
	if !in.Confidence.Valid() {
		return kairnerr.Errorf(kairnerr.CodeExperienceSaveInvalid,
			"invalid confidence %q: must be high, medium or low", in.Confidence)
	}
	return nil
}

// Save stores a new experience with score 1.0 and a decay rate fixed from
// its type and confidence.
func (e *Engine) Save(ctx context.Context, in SaveInput) (*store.Experience, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	exp := &store.Experience{
		ID:         uuid.NewString(),
		Type:       in.Type,
		Content:    in.Content,
		Context:    in.Context,
		Confidence: in.Confidence,
		Score:      1.0,
		DecayRate:  DecayRate(in.Type, in.Confidence),
		Tags:       in.Tags,
		Properties: in.Properties,
		CreatedAt:  e.now().UTC(),
	}
	if err := e.store.Insert(ctx, exp); err != nil {
		return nil, err
	}

	e.logger.Debug("experience saved", "experience_id", exp.ID, "type", exp.Type, "confidence", exp.Confidence)
	if err := e.bus.Emit(ctx, events.ExperienceCreated, map[string]any{
		"experience_id": exp.ID,
		"type":          string(exp.Type),
		"confidence":    string(exp.Confidence),
	}); err != nil {
		return nil, err
	}
	return exp, nil
}

// Get returns the experience without counting an access. It returns nil when
// there is none.
func (e *Engine) Get(ctx context.Context, id string) (*store.Experience, error) {
	exp, err := e.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return exp, err
}

// Relevance evaluates exp against the engine clock.
func (e *Engine) Relevance(exp *store.Experience) float64 {
	return Relevance(exp, e.now())
}

// Search scores every candidate at the current time, drops those under
// MinRelevance and returns a page ordered by relevance.
func (e *Engine) Search(ctx context.Context, in SearchInput) ([]Scored, error) {
	candidates, err := e.store.List(ctx, store.ExperienceQuery{
		Match: keywords.FTSQuery(in.Text),
		Type:  in.Type,
	})
	if err != nil {
		return nil, err
	}

	now := e.now()
	scored := make([]Scored, 0, len(candidates))
	for _, exp := range candidates {
		r := Relevance(exp, now)
		if r >= in.MinRelevance {
			scored = append(scored, Scored{Experience: exp, Relevance: r})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Relevance > scored[j].Relevance })

	limit := in.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := max(in.Offset, 0)
	if offset >= len(scored) {
		return nil, nil
	}
	end := min(offset+limit, len(scored))
	return scored[offset:end], nil
}

// Access counts a read of the experience and promotes it once it has been
// accessed PromotionThreshold times. It returns nil when there is no such
// experience.
func (e *Engine) Access(ctx context.Context, id string) (*store.Experience, error) {
	exp, err := e.store.IncrementAccess(ctx, id, e.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := e.bus.Emit(ctx, events.ExperienceAccessed, map[string]any{
		"experience_id": exp.ID,
		"access_count":  exp.AccessCount,
	}); err != nil {
		return nil, err
	}

	if exp.PromotedToNodeID == "" && exp.AccessCount >= PromotionThreshold {
		if _, err := e.promote(ctx, exp); err != nil {
			return nil, err
		}
	}
	return exp, nil
}

// promote creates the node for exp and records it. A live node left by an
// interrupted promotion of exp is reused instead of creating a second one.
// When another writer has already promoted exp to a different node, this
// call's node is withdrawn and exp is refreshed from the store. It reports
// whether this call did the promotion.
func (e *Engine) promote(ctx context.Context, exp *store.Experience) (bool, error) {
	node, err := e.promotedNode(ctx, exp)
	if err != nil {
		return false, kairnerr.Wrap(err, kairnerr.CodeExperiencePromoteFailure,
			"creating promoted node", kairnerr.FieldExperienceID(exp.ID))
	}

	marked, err := e.store.MarkPromoted(ctx, exp.ID, node.ID)
	if err != nil {
		return false, err
	}
	if !marked {
		current, err := e.store.Get(ctx, exp.ID)
		if err != nil {
			return false, err
		}
		if current.PromotedToNodeID != node.ID {
			if _, err := e.nodes.RemoveNode(ctx, node.ID); err != nil {
				e.logger.Warn("withdrawing duplicate promoted node failed",
					"experience_id", exp.ID, "node_id", node.ID, "error", err)
			}
		}
		*exp = *current
		return false, nil
	}

	exp.PromotedToNodeID = node.ID
	e.logger.Info("experience promoted", "experience_id", exp.ID, "node_id", node.ID, "access_count", exp.AccessCount)
	if err := e.bus.Emit(ctx, events.ExperiencePromoted, map[string]any{
		"experience_id": exp.ID,
		"node_id":       node.ID,
	}); err != nil {
		return true, err
	}
	return true, nil
}

// promotedNode returns the live node already promoted from exp, or adds one.
func (e *Engine) promotedNode(ctx context.Context, exp *store.Experience) (*store.Node, error) {
	existing, err := e.nodes.Query(ctx, store.NodeQuery{
		Type:      PromotedNodeType,
		SourceRef: exp.ID,
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		e.logger.Info("reusing promoted node", "experience_id", exp.ID, "node_id", existing[0].ID)
		return existing[0], nil
	}

	return e.nodes.AddNode(ctx, graph.NodeInput{
		Name:        promotedName(exp),
		Type:        PromotedNodeType,
		Namespace:   store.DefaultNamespace,
		Description: exp.Content,
		Tags:        exp.Tags,
		SourceType:  "promotion",
		SourceRef:   exp.ID,
		Properties: map[string]any{
			"source_experience_id": exp.ID,
			"experience_type":      string(exp.Type),
			"confidence":           string(exp.Confidence),
			"access_count":         exp.AccessCount,
			"tags":                 exp.Tags,
		},
	})
}

// Promotable lists experiences that reached the threshold but have no node.
func (e *Engine) Promotable(ctx context.Context) ([]*store.Experience, error) {
	return e.store.Promotable(ctx, PromotionThreshold)
}

// PromotePending promotes every promotable experience. It finishes
// promotions interrupted between the node insert and the mark, and is safe
// to run repeatedly.
func (e *Engine) PromotePending(ctx context.Context) ([]Promotion, error) {
	pending, err := e.Promotable(ctx)
	if err != nil {
		return nil, err
	}

	var done []Promotion
	for _, exp := range pending {
		ok, err := e.promote(ctx, exp)
		if err != nil {
			return done, err
		}
		if ok {
			done = append(done, Promotion{ExperienceID: exp.ID, NodeID: exp.PromotedToNodeID})
		}
	}
	return done, nil
}

// Prune hard-deletes every experience whose relevance is below threshold and
// returns their ids. A negative threshold means DefaultPruneThreshold; zero
// deletes nothing because relevance is never negative.
func (e *Engine) Prune(ctx context.Context, threshold float64) ([]string, error) {
	if threshold < 0 {
		threshold = DefaultPruneThreshold
	}

	all, err := e.store.List(ctx, store.ExperienceQuery{})
	if err != nil {
		return nil, err
	}

	now := e.now()
	var pruned []string
	for _, exp := range all {
		r := Relevance(exp, now)
		if r >= threshold {
			continue
		}
		ok, err := e.store.Delete(ctx, exp.ID)
		if err != nil {
			return pruned, err
		}
		if !ok {
			continue
		}
		e.logger.Info("experience pruned", "experience_id", exp.ID, "relevance", r, "threshold", threshold)
		pruned = append(pruned, exp.ID)
		if err := e.bus.Emit(ctx, events.ExperiencePruned, map[string]any{
			"experience_id": exp.ID,
			"relevance":     r,
		}); err != nil {
			return pruned, err
		}
	}
	return pruned, nil
}

// promotedName is "Type: " followed by the first 50 runes of the content.
func promotedName(exp *store.Experience) string {
	return Title(string(exp.Type)) + ": " + TruncateRunes(exp.Content, promotedNameRunes)
}

// Title upper-cases the first rune of s and lower-cases the rest.
func Title(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// TruncateRunes returns at most n runes of s.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
