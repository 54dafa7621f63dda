// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package store

import (
	"strings"

	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

// Valid reports whether t is a known experience type.
func (t ExperienceType) Valid() bool {
	switch t {
	case ExperienceSolution, ExperiencePattern, ExperienceDecision, ExperienceWorkaround, ExperienceGotcha:
		return true
	default:
		return false
	}
}

// Valid reports whether c is a known confidence level.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known idea status.
func (s IdeaStatus) Valid() bool {
	switch s {
	case IdeaDraft, IdeaEvaluating, IdeaApproved, IdeaImplementing, IdeaDone, IdeaArchived:
		return true
	default:
		return false
	}
}

// Valid reports whether p is a known project phase.
func (p ProjectPhase) Valid() bool {
	switch p {
	case PhasePlanning, PhaseActive, PhasePaused, PhaseDone:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known progress entry type.
func (t ProgressType) Valid() bool {
	return t == ProgressEntryProgress || t == ProgressEntryFailure
}

// Valid reports whether d is a known edge direction.
func (d EdgeDirection) Valid() bool {
	switch d {
	case DirectionOutgoing, DirectionIncoming, DirectionBoth:
		return true
	default:
		return false
	}
}

// Validate checks that the Node has all required fields set.
func (n Node) Validate() error {
	if n.ID == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "node: ID is required")
	}
	if strings.TrimSpace(n.Name) == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "node: Name is required", kairnerr.FieldNodeID(n.ID))
	}
	if strings.TrimSpace(n.Type) == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "node: Type is required", kairnerr.FieldNodeID(n.ID))
	}
	if n.CreatedAt.IsZero() {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "node: CreatedAt is required", kairnerr.FieldNodeID(n.ID))
	}
	return nil
}

// Validate checks that the Edge is well formed.
func (e Edge) Validate() error {
	if e.SourceID == "" || e.TargetID == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "edge: SourceID and TargetID are required")
	}
	if strings.TrimSpace(e.Type) == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "edge: Type is required")
	}
	if e.Weight < 0 || e.Weight > 1 {
		return kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "edge: Weight must be within [0,1], got %g", e.Weight)
	}
	return nil
}

// Validate checks that the Experience is well formed.
func (e Experience) Validate() error {
	if e.ID == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "experience: ID is required")
	}
	if strings.TrimSpace(e.Content) == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "experience: Content is required", kairnerr.FieldExperienceID(e.ID))
	}
	if !e.Type.Valid() {
		return kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "experience: invalid type %q", e.Type)
	}
	if !e.Confidence.Valid() {
		return kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "experience: invalid confidence %q", e.Confidence)
	}
	if e.DecayRate <= 0 {
		return kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "experience: DecayRate must be positive, got %g", e.DecayRate)
	}
	return nil
}

// Validate checks the Route invariants: a keyword, confidence within [0,1]
// and no duplicate node ids.
func (r Route) Validate() error {
	if r.Keyword == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "route: Keyword is required")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "route %q: confidence must be within [0,1], got %g", r.Keyword, r.Confidence)
	}
	seen := make(map[string]bool, len(r.NodeIDs))
	for _, id := range r.NodeIDs {
		if id == "" {
			return kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "route %q: empty node id", r.Keyword)
		}
		if seen[id] {
			return kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "route %q: duplicate node id %q", r.Keyword, id)
		}
		seen[id] = true
	}
	return nil
}
