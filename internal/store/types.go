// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package store

import "time"

// Default values applied by the engines when callers leave fields empty.
const (
	DefaultNamespace  = "knowledge"
	DefaultVisibility = "private"
)

// Node is a permanent knowledge-graph vertex. A non-zero DeletedAt marks a
// soft-deleted node, which every read path except Restore ignores.
type Node struct {
	ID          string
	Namespace   string
	Type        string
	Name        string
	Description string
	Properties  map[string]any
	Tags        []string
	Visibility  string
	SourceType  string
	SourceRef   string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time // zero until the first update
	DeletedAt   time.Time
}

// NodePatch carries the mutable node fields. Nil pointers are left unchanged.
type NodePatch struct {
	Name        *string
	Type        *string
	Namespace   *string
	Description *string
	Properties  map[string]any
	Tags        []string
	Visibility  *string
	UpdatedAt   time.Time
}

// Fields returns the names of the columns the patch touches.
func (p NodePatch) Fields() []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Type != nil {
		fields = append(fields, "type")
	}
	if p.Namespace != nil {
		fields = append(fields, "namespace")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Properties != nil {
		fields = append(fields, "properties")
	}
	if p.Tags != nil {
		fields = append(fields, "tags")
	}
	if p.Visibility != nil {
		fields = append(fields, "visibility")
	}
	return fields
}

// NodeQuery filters node lookups. When Match is set the backend performs a
// full-text search with the pre-built OR expression and ranks by relevance.
type NodeQuery struct {
	Match      string
	Namespace  string
	Type       string
	Tags       []string // conjunctive: a node must carry every tag
	Visibility string
	SourceRef  string
	ExcludeID  string
	Limit      int
	Offset     int
}

// Edge is a typed, weighted, directed relationship. (SourceID, TargetID, Type)
// identifies the edge.
type Edge struct {
	SourceID   string
	TargetID   string
	Type       string
	Weight     float64
	Properties map[string]any
	CreatedBy  string
	CreatedAt  time.Time
}

// EdgeDirection selects which side of an edge a node must occupy.
type EdgeDirection string

const (
	DirectionOutgoing EdgeDirection = "outgoing"
	DirectionIncoming EdgeDirection = "incoming"
	DirectionBoth     EdgeDirection = "both"
)

// EdgeQuery lists the edges touching NodeID.
type EdgeQuery struct {
	NodeID    string
	Direction EdgeDirection
	Type      string
}

// ExperienceType is one of the fixed experience categories, each with its own
// baseline half-life.
type ExperienceType string

const (
	ExperienceSolution   ExperienceType = "solution"
	ExperiencePattern    ExperienceType = "pattern"
	ExperienceDecision   ExperienceType = "decision"
	ExperienceWorkaround ExperienceType = "workaround"
	ExperienceGotcha     ExperienceType = "gotcha"
)

// ExperienceTypes lists every valid experience type.
var ExperienceTypes = []ExperienceType{
	ExperienceSolution, ExperiencePattern, ExperienceDecision, ExperienceWorkaround, ExperienceGotcha,
}

// Confidence scales how fast an experience decays.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Experience is a temporal memory record. Its relevance is never stored; it
// is recomputed from Score, DecayRate and the elapsed time.
type Experience struct {
	ID               string
	Type             ExperienceType
	Content          string
	Context          string
	Confidence       Confidence
	Score            float64
	DecayRate        float64
	Tags             []string
	Properties       map[string]any
	AccessCount      int
	PromotedToNodeID string
	CreatedAt        time.Time
	LastAccessed     time.Time
}

// ExperienceQuery filters experience candidates. Relevance filtering happens
// in the engine, so there is no pagination here.
type ExperienceQuery struct {
	Match string
	Type  ExperienceType
}

// Route maps a keyword to the nodes it leads to.
type Route struct {
	Keyword    string
	NodeIDs    []string
	Confidence float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IdeaStatus is the lifecycle state of an idea.
type IdeaStatus string

const (
	IdeaDraft        IdeaStatus = "draft"
	IdeaEvaluating   IdeaStatus = "evaluating"
	IdeaApproved     IdeaStatus = "approved"
	IdeaImplementing IdeaStatus = "implementing"
	IdeaDone         IdeaStatus = "done"
	IdeaArchived     IdeaStatus = "archived"
)

// Idea is a tracked proposal moving through the idea lifecycle.
type Idea struct {
	ID         string
	Title      string
	Status     IdeaStatus
	Category   string
	Score      *float64
	Properties map[string]any
	Visibility string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IdeaPatch carries the mutable idea fields. Nil pointers are left unchanged.
type IdeaPatch struct {
	Title      *string
	Status     *IdeaStatus
	Category   *string
	Score      *float64
	Properties map[string]any
	Visibility *string
	UpdatedAt  time.Time
}

// IdeaQuery filters idea listings.
type IdeaQuery struct {
	Status   IdeaStatus
	Category string
	Limit    int
	Offset   int
}

// ProjectPhase is the lifecycle state of a project.
type ProjectPhase string

const (
	PhasePlanning ProjectPhase = "planning"
	PhaseActive   ProjectPhase = "active"
	PhasePaused   ProjectPhase = "paused"
	PhaseDone     ProjectPhase = "done"
)

// Project is a unit of ongoing work. At most one project is active at a time.
type Project struct {
	ID             string
	Name           string
	Phase          ProjectPhase
	Goals          []string
	Stakeholders   []string
	SuccessMetrics []string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProjectPatch carries the mutable project fields.
type ProjectPatch struct {
	Name           *string
	Phase          *ProjectPhase
	Goals          []string
	Stakeholders   []string
	SuccessMetrics []string
	UpdatedAt      time.Time
}

// ProgressType distinguishes successful steps from failures.
type ProgressType string

const (
	ProgressEntryProgress ProgressType = "progress"
	ProgressEntryFailure  ProgressType = "failure"
)

// ProgressEntry is an immutable record in a project's progress log.
type ProgressEntry struct {
	ID        string
	ProjectID string
	Type      ProgressType
	Action    string
	Result    string
	NextStep  string
	CreatedAt time.Time
}

// ProgressQuery filters a project's progress log.
type ProgressQuery struct {
	ProjectID string
	Type      ProgressType
	Limit     int
}

// Activity is one persisted notification.
type Activity struct {
	ID        string
	Type      string
	Payload   map[string]any
	CreatedAt time.Time
}

// ActivityFilter specifies criteria for listing activity.
type ActivityFilter struct {
	Type   string
	Since  time.Time
	Limit  int
	Offset int
}

// Stats summarises the contents of a store.
type Stats struct {
	Nodes       int64
	Edges       int64
	Experiences int64
	Ideas       int64
	Projects    int64
	Namespaces  map[string]int64
	Path        string
}
