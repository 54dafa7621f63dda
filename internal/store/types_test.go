// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package store_test

import (
	"testing"
	"time"

	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestEnumValidity(t *testing.T) {
	for _, typ := range store.ExperienceTypes {
		assert.True(t, typ.Valid(), typ)
	}
	assert.False(t, store.ExperienceType("insight").Valid())

	assert.True(t, store.ConfidenceHigh.Valid())
	assert.True(t, store.ConfidenceMedium.Valid())
	assert.True(t, store.ConfidenceLow.Valid())
	assert.False(t, store.Confidence("certain").Valid())

	assert.True(t, store.IdeaArchived.Valid())
	assert.False(t, store.IdeaStatus("shipped").Valid())

	assert.True(t, store.PhasePaused.Valid())
	assert.False(t, store.ProjectPhase("cancelled").Valid())

	assert.True(t, store.ProgressEntryFailure.Valid())
	assert.False(t, store.ProgressType("note").Valid())

	assert.True(t, store.DirectionBoth.Valid())
	assert.False(t, store.EdgeDirection("sideways").Valid())
}

func TestNodeValidate(t *testing.T) {
	valid := store.Node{ID: "n1", Name: "Redis", Type: "concept", CreatedAt: time.Now()}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		node store.Node
	}{
		{"missing id", store.Node{Name: "x", Type: "t", CreatedAt: time.Now()}},
		{"blank name", store.Node{ID: "n", Name: "  ", Type: "t", CreatedAt: time.Now()}},
		{"blank type", store.Node{ID: "n", Name: "x", CreatedAt: time.Now()}},
		{"missing created", store.Node{ID: "n", Name: "x", Type: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			assert.Error(t, err)
			assert.True(t, kairnerr.IsInvalidInput(err))
		})
	}
}

func TestEdgeValidate(t *testing.T) {
	assert.NoError(t, store.Edge{SourceID: "a", TargetID: "b", Type: "uses", Weight: 1}.Validate())
	assert.NoError(t, store.Edge{SourceID: "a", TargetID: "b", Type: "uses", Weight: 0}.Validate())
	assert.Error(t, store.Edge{SourceID: "a", TargetID: "b", Type: "uses", Weight: 1.5}.Validate())
	assert.Error(t, store.Edge{SourceID: "a", TargetID: "b", Type: "uses", Weight: -0.1}.Validate())
	assert.Error(t, store.Edge{SourceID: "a", Type: "uses", Weight: 1}.Validate())
	assert.Error(t, store.Edge{SourceID: "a", TargetID: "b", Weight: 1}.Validate())
}

func TestRouteValidate(t *testing.T) {
	assert.NoError(t, store.Route{Keyword: "redis", NodeIDs: []string{"a", "b"}, Confidence: 0.5}.Validate())
	assert.Error(t, store.Route{Keyword: "redis", NodeIDs: []string{"a", "a"}, Confidence: 0.5}.Validate())
	assert.Error(t, store.Route{Keyword: "redis", Confidence: 1.2}.Validate())
	assert.Error(t, store.Route{Confidence: 0.5}.Validate())
}

func TestNodePatchFields(t *testing.T) {
	name := "new"
	desc := ""
	patch := store.NodePatch{Name: &name, Description: &desc, Tags: []string{}}
	assert.Equal(t, []string{"name", "description", "tags"}, patch.Fields())
	assert.Empty(t, store.NodePatch{}.Fields())
}
