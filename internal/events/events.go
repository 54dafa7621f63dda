// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

// Package events is the in-process notification bus the engines publish to.
package events

// Type names a notification.
type Type string

const (
	NodeCreated  Type = "node.created"
	NodeUpdated  Type = "node.updated"
	NodeDeleted  Type = "node.deleted"
	NodeRestored Type = "node.restored"

	EdgeCreated Type = "edge.created"
	EdgeDeleted Type = "edge.deleted"

	ExperienceCreated  Type = "experience.created"
	ExperienceAccessed Type = "experience.accessed"
	ExperiencePromoted Type = "experience.promoted"
	ExperiencePruned   Type = "experience.pruned"

	IdeaCreated Type = "idea.created"
	IdeaUpdated Type = "idea.updated"

	ProjectCreated   Type = "project.created"
	ProjectUpdated   Type = "project.updated"
	ProjectActivated Type = "project.activated"
	ProgressLogged   Type = "progress.logged"

	RouteUpdated Type = "route.updated"

	KnowledgeLearned  Type = "knowledge.learned"
	KnowledgeRecalled Type = "knowledge.recalled"
	CrossrefFound     Type = "crossref.found"
)

// Types lists every notification the engines emit.
var Types = []Type{
	NodeCreated, NodeUpdated, NodeDeleted, NodeRestored,
	EdgeCreated, EdgeDeleted,
	ExperienceCreated, ExperienceAccessed, ExperiencePromoted, ExperiencePruned,
	IdeaCreated, IdeaUpdated,
	ProjectCreated, ProjectUpdated, ProjectActivated, ProgressLogged,
	RouteUpdated,
	KnowledgeLearned, KnowledgeRecalled, CrossrefFound,
}

// Event is one published notification.
type Event struct {
	Type    Type
	Payload map[string]any
}
