// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"time"

	"github.com/kairn-ai/kairn/internal/experience"
	"github.com/kairn-ai/kairn/internal/graph"
	"github.com/kairn-ai/kairn/internal/store"
)

type nodeView struct {
	ID          string         `json:"id" yaml:"id"`
	Namespace   string         `json:"namespace" yaml:"namespace"`
	Type        string         `json:"type" yaml:"type"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Properties  map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	Visibility  string         `json:"visibility" yaml:"visibility"`
	SourceType  string         `json:"source_type,omitempty" yaml:"source_type,omitempty"`
	SourceRef   string         `json:"source_ref,omitempty" yaml:"source_ref,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt   string         `json:"created_at" yaml:"created_at"`
	UpdatedAt   string         `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	DeletedAt   string         `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
}

type edgeView struct {
	Source     string         `json:"source" yaml:"source"`
	Target     string         `json:"target" yaml:"target"`
	Type       string         `json:"type" yaml:"type"`
	Weight     float64        `json:"weight" yaml:"weight"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	CreatedAt  string         `json:"created_at" yaml:"created_at"`
}

type experienceView struct {
	ID           string         `json:"id" yaml:"id"`
	Type         string         `json:"type" yaml:"type"`
	Content      string         `json:"content" yaml:"content"`
	Context      string         `json:"context,omitempty" yaml:"context,omitempty"`
	Confidence   string         `json:"confidence" yaml:"confidence"`
	Score        float64        `json:"score" yaml:"score"`
	DecayRate    float64        `json:"decay_rate" yaml:"decay_rate"`
	Relevance    float64        `json:"relevance" yaml:"relevance"`
	Tags         []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Properties   map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	AccessCount  int            `json:"access_count" yaml:"access_count"`
	PromotedTo   string         `json:"promoted_to_node_id,omitempty" yaml:"promoted_to_node_id,omitempty"`
	CreatedAt    string         `json:"created_at" yaml:"created_at"`
	LastAccessed string         `json:"last_accessed" yaml:"last_accessed"`
}

type ideaView struct {
	ID         string         `json:"id" yaml:"id"`
	Title      string         `json:"title" yaml:"title"`
	Status     string         `json:"status" yaml:"status"`
	Category   string         `json:"category,omitempty" yaml:"category,omitempty"`
	Score      *float64       `json:"score,omitempty" yaml:"score,omitempty"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	Visibility string         `json:"visibility" yaml:"visibility"`
	CreatedAt  string         `json:"created_at" yaml:"created_at"`
	UpdatedAt  string         `json:"updated_at" yaml:"updated_at"`
}

type projectView struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Phase          string   `json:"phase" yaml:"phase"`
	Active         bool     `json:"active" yaml:"active"`
	Goals          []string `json:"goals,omitempty" yaml:"goals,omitempty"`
	Stakeholders   []string `json:"stakeholders,omitempty" yaml:"stakeholders,omitempty"`
	SuccessMetrics []string `json:"success_metrics,omitempty" yaml:"success_metrics,omitempty"`
	CreatedAt      string   `json:"created_at" yaml:"created_at"`
	UpdatedAt      string   `json:"updated_at" yaml:"updated_at"`
}

type progressView struct {
	ID        string `json:"id" yaml:"id"`
	Type      string `json:"type" yaml:"type"`
	Action    string `json:"action" yaml:"action"`
	Result    string `json:"result,omitempty" yaml:"result,omitempty"`
	NextStep  string `json:"next_step,omitempty" yaml:"next_step,omitempty"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
}

type activityView struct {
	ID        string         `json:"id" yaml:"id"`
	Type      string         `json:"type" yaml:"type"`
	Payload   map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
	CreatedAt string         `json:"created_at" yaml:"created_at"`
}

type relatedView struct {
	Depth int      `json:"depth" yaml:"depth"`
	Node  nodeView `json:"node" yaml:"node"`
}

type statsView struct {
	Path        string           `json:"path" yaml:"path"`
	Nodes       int64            `json:"nodes" yaml:"nodes"`
	Edges       int64            `json:"edges" yaml:"edges"`
	Experiences int64            `json:"experiences" yaml:"experiences"`
	Ideas       int64            `json:"ideas" yaml:"ideas"`
	Projects    int64            `json:"projects" yaml:"projects"`
	Namespaces  map[string]int64 `json:"namespaces" yaml:"namespaces"`
}

// stamp formats t for output; the zero time renders as empty.
func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toNodeView(n *store.Node) nodeView {
	return nodeView{
		ID:          n.ID,
		Namespace:   n.Namespace,
		Type:        n.Type,
		Name:        n.Name,
		Description: n.Description,
		Tags:        n.Tags,
		Properties:  n.Properties,
		Visibility:  n.Visibility,
		SourceType:  n.SourceType,
		SourceRef:   n.SourceRef,
		CreatedBy:   n.CreatedBy,
		CreatedAt:   stamp(n.CreatedAt),
		UpdatedAt:   stamp(n.UpdatedAt),
		DeletedAt:   stamp(n.DeletedAt),
	}
}

func toNodeViews(nodes []*store.Node) []nodeView {
	out := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toNodeView(n))
	}
	return out
}

func toEdgeView(e *store.Edge) edgeView {
	return edgeView{
		Source:     e.SourceID,
		Target:     e.TargetID,
		Type:       e.Type,
		Weight:     e.Weight,
		Properties: e.Properties,
		CreatedAt:  stamp(e.CreatedAt),
	}
}

func toExperienceView(e *store.Experience, relevance float64) experienceView {
	return experienceView{
		ID:           e.ID,
		Type:         string(e.Type),
		Content:      e.Content,
		Context:      e.Context,
		Confidence:   string(e.Confidence),
		Score:        e.Score,
		DecayRate:    e.DecayRate,
		Relevance:    relevance,
		Tags:         e.Tags,
		Properties:   e.Properties,
		AccessCount:  e.AccessCount,
		PromotedTo:   e.PromotedToNodeID,
		CreatedAt:    stamp(e.CreatedAt),
		LastAccessed: stamp(e.LastAccessed),
	}
}

func toScoredViews(scored []experience.Scored) []experienceView {
	out := make([]experienceView, 0, len(scored))
	for _, s := range scored {
		out = append(out, toExperienceView(s.Experience, s.Relevance))
	}
	return out
}

func toIdeaView(i *store.Idea) ideaView {
	return ideaView{
		ID:         i.ID,
		Title:      i.Title,
		Status:     string(i.Status),
		Category:   i.Category,
		Score:      i.Score,
		Properties: i.Properties,
		Visibility: i.Visibility,
		CreatedAt:  stamp(i.CreatedAt),
		UpdatedAt:  stamp(i.UpdatedAt),
	}
}

func toIdeaViews(ideas []*store.Idea) []ideaView {
	out := make([]ideaView, 0, len(ideas))
	for _, i := range ideas {
		out = append(out, toIdeaView(i))
	}
	return out
}

func toProjectView(p *store.Project) projectView {
	return projectView{
		ID:             p.ID,
		Name:           p.Name,
		Phase:          string(p.Phase),
		Active:         p.Active,
		Goals:          p.Goals,
		Stakeholders:   p.Stakeholders,
		SuccessMetrics: p.SuccessMetrics,
		CreatedAt:      stamp(p.CreatedAt),
		UpdatedAt:      stamp(p.UpdatedAt),
	}
}

func toProgressView(e *store.ProgressEntry) progressView {
	return progressView{
		ID:        e.ID,
		Type:      string(e.Type),
		Action:    e.Action,
		Result:    e.Result,
		NextStep:  e.NextStep,
		CreatedAt: stamp(e.CreatedAt),
	}
}

func toRelatedViews(related []graph.RelatedNode) []relatedView {
	out := make([]relatedView, 0, len(related))
	for _, r := range related {
		out = append(out, relatedView{Depth: r.Depth, Node: toNodeView(r.Node)})
	}
	return out
}

func toStatsView(s *store.Stats) statsView {
	ns := s.Namespaces
	if ns == nil {
		ns = map[string]int64{}
	}
	return statsView{
		Path:        s.Path,
		Nodes:       s.Nodes,
		Edges:       s.Edges,
		Experiences: s.Experiences,
		Ideas:       s.Ideas,
		Projects:    s.Projects,
		Namespaces:  ns,
	}
}
