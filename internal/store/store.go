// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package store

import (
	"context"
	"time"
)

// Store groups every sub-store backed by one database.
type Store interface {
	Nodes() NodeStore
	Edges() EdgeStore
	Experiences() ExperienceStore
	Routes() RouteStore
	Ideas() IdeaStore
	Projects() ProjectStore
	Activity() ActivityStore
	Stats(ctx context.Context) (*Stats, error)
	Path() string
	Close() error
}

// NodeStore persists graph vertices. Get, Update, SoftDelete and Query never
// see soft-deleted nodes.
type NodeStore interface {
	Insert(ctx context.Context, node *Node) error
	// Get returns ErrNotFound when the node is absent or soft-deleted.
	Get(ctx context.Context, id string) (*Node, error)
	Update(ctx context.Context, id string, patch NodePatch) (*Node, error)
	SoftDelete(ctx context.Context, id string, at time.Time) (bool, error)
	Restore(ctx context.Context, id string) (bool, error)
	Query(ctx context.Context, q NodeQuery) ([]*Node, error)
	Count(ctx context.Context) (int64, error)
	CountByNamespace(ctx context.Context) (map[string]int64, error)
}

// EdgeStore persists graph relationships. Insert returns ErrConflict when the
// (source, target, type) triple already exists and ErrNotFound when either
// endpoint is missing or soft-deleted.
type EdgeStore interface {
	Insert(ctx context.Context, edge *Edge) error
	Delete(ctx context.Context, sourceID, targetID, edgeType string) (bool, error)
	List(ctx context.Context, q EdgeQuery) ([]*Edge, error)
	Count(ctx context.Context) (int64, error)
}

// ExperienceStore persists decaying memories.
type ExperienceStore interface {
	Insert(ctx context.Context, exp *Experience) error
	Get(ctx context.Context, id string) (*Experience, error)
	// IncrementAccess atomically bumps the access count and stamps the
	// access time, returning the updated record.
	IncrementAccess(ctx context.Context, id string, at time.Time) (*Experience, error)
	// MarkPromoted records nodeID only if the experience has not been
	// promoted yet. It reports whether the mark was written.
	MarkPromoted(ctx context.Context, id, nodeID string) (bool, error)
	List(ctx context.Context, q ExperienceQuery) ([]*Experience, error)
	Delete(ctx context.Context, id string) (bool, error)
	Promotable(ctx context.Context, threshold int) ([]*Experience, error)
	Count(ctx context.Context) (int64, error)
}

// RouteStore persists the keyword routing index.
type RouteStore interface {
	// Lookup returns the routes for the given keywords. Entries that fail
	// validation are skipped.
	Lookup(ctx context.Context, keywords []string) ([]*Route, error)
	Get(ctx context.Context, keyword string) (*Route, error)
	// AddNode appends nodeID to keyword's route, creating the route with
	// confidence when it does not exist. It reports whether the route was new.
	AddNode(ctx context.Context, keyword, nodeID string, confidence float64, at time.Time) (bool, error)
}

// IdeaStore persists ideas.
type IdeaStore interface {
	Insert(ctx context.Context, idea *Idea) error
	Get(ctx context.Context, id string) (*Idea, error)
	Update(ctx context.Context, id string, patch IdeaPatch) (*Idea, error)
	List(ctx context.Context, q IdeaQuery) ([]*Idea, error)
	Count(ctx context.Context) (int64, error)
}

// ProjectStore persists projects and their progress logs.
type ProjectStore interface {
	Insert(ctx context.Context, project *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	Update(ctx context.Context, id string, patch ProjectPatch) (*Project, error)
	List(ctx context.Context, activeOnly bool) ([]*Project, error)
	// SetActive clears every active flag and sets the one for id in a single
	// transaction. It returns false when the project does not exist.
	SetActive(ctx context.Context, id string, at time.Time) (bool, error)
	AppendProgress(ctx context.Context, entry *ProgressEntry) error
	ListProgress(ctx context.Context, q ProgressQuery) ([]*ProgressEntry, error)
	Count(ctx context.Context) (int64, error)
}

// ActivityStore is the append-only notification log.
type ActivityStore interface {
	Append(ctx context.Context, entry *Activity) error
	Query(ctx context.Context, filter ActivityFilter) ([]*Activity, error)
}
