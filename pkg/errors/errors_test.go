// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := kairnerr.New(
		kairnerr.CodeGraphNodeInvalid,
		"node name is required",
		kairnerr.FieldNodeID("n-123"),
		kairnerr.Field("namespace", "knowledge"),
	)

	require.Error(t, err)
	assert.Equal(t, kairnerr.CodeGraphNodeInvalid, kairnerr.CodeOf(err))
	assert.True(t, kairnerr.HasCode(err, kairnerr.CodeGraphNodeInvalid))

	fields := kairnerr.FieldsOf(err)
	assert.Equal(t, "n-123", fields["node_id"])
	assert.Equal(t, "knowledge", fields["namespace"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, kairnerr.CodeStoreDatabaseFailure, kairnerr.CodeOf(err))
	assert.Contains(t, err.Error(), "write failed")
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf / With
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := kairnerr.Wrap(root, kairnerr.CodeStoreEntityNotFound, "loading node", kairnerr.FieldNodeID("n-42"))

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.True(t, kairnerr.IsNotFound(err))
	assert.Equal(t, "n-42", kairnerr.FieldsOf(err)["node_id"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, kairnerr.Wrap(nil, kairnerr.CodeInternalFailure, "ignored"))
	assert.NoError(t, kairnerr.Wrapf(nil, kairnerr.CodeInternalFailure, "ignored %s", "arg"))
	assert.NoError(t, kairnerr.With(nil, kairnerr.FieldEvent("x")))
}

func TestWithOnPlainErrorDefaultsToInternalCode(t *testing.T) {
	enriched := kairnerr.With(stderrors.New("something broke"), kairnerr.FieldIdeaID("i-1"))

	require.Error(t, enriched)
	assert.Equal(t, kairnerr.CodeInternalFailure, kairnerr.CodeOf(enriched))
	assert.Equal(t, "i-1", kairnerr.FieldsOf(enriched)["idea_id"])
}

func TestCodeOfReturnsInnermostCodedError(t *testing.T) {
	inner := kairnerr.New(kairnerr.CodeStoreDatabaseFailure, "db")
	outer := kairnerr.Wrap(inner, kairnerr.CodeIntelligenceSearchFailure, "recall")
	assert.Equal(t, kairnerr.CodeStoreDatabaseFailure, kairnerr.CodeOf(outer))
	assert.Equal(t, kairnerr.Code(""), kairnerr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, kairnerr.Code(""), kairnerr.CodeOf(nil))
}

func TestFieldsWithEmptyKeyAreIgnored(t *testing.T) {
	err := kairnerr.New(kairnerr.CodeStoreDatabaseFailure, "oops",
		kairnerr.Field("", "dropped"),
		kairnerr.FieldProjectID("p-1"),
	)
	fields := kairnerr.FieldsOf(err)
	assert.Equal(t, "p-1", fields["project_id"])
	assert.NotContains(t, fields, "")
}

func TestErrorIsWithWrappedChain(t *testing.T) {
	sentinel := stderrors.New("root cause")
	outer := kairnerr.Wrap(fmt.Errorf("mid: %w", sentinel), kairnerr.CodeInternalFailure, "handler")
	assert.ErrorIs(t, outer, sentinel)
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

func TestClassificationAndExitCodes(t *testing.T) {
	tests := []struct {
		name  string
		code  kairnerr.Code
		exit  int
		check func(error) bool
	}{
		{"entity not found", kairnerr.CodeStoreEntityNotFound, kairnerr.ExitNotFound, kairnerr.IsNotFound},
		{"edge endpoint not found", kairnerr.CodeGraphEdgeEndpointNotFound, kairnerr.ExitNotFound, kairnerr.IsNotFound},
		{"store conflict", kairnerr.CodeStoreConflict, kairnerr.ExitConflict, kairnerr.IsConflict},
		{"node invalid", kairnerr.CodeGraphNodeInvalid, kairnerr.ExitInvalidInput, kairnerr.IsInvalidInput},
		{"idea transition", kairnerr.CodeIdeaTransitionInvalid, kairnerr.ExitInvalidInput, kairnerr.IsInvalidInput},
		{"project transition", kairnerr.CodeProjectTransitionInvalid, kairnerr.ExitInvalidInput, kairnerr.IsInvalidInput},
		{"config value", kairnerr.CodeConfigValidateInvalidValue, kairnerr.ExitInvalidInput, kairnerr.IsInvalidInput},
		{"config format", kairnerr.CodeConfigParseInvalidFormat, kairnerr.ExitInvalidInput, kairnerr.IsInvalidInput},
		{"store invalid input", kairnerr.CodeStoreInvalidInput, kairnerr.ExitInvalidInput, kairnerr.IsInvalidInput},
		{"listener timeout", kairnerr.CodeEventsListenerTimeout, kairnerr.ExitFailure, kairnerr.IsTimeout},
		{"internal", kairnerr.CodeInternalFailure, kairnerr.ExitFailure, func(err error) bool { return !kairnerr.IsNotFound(err) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := kairnerr.New(tt.code, "boom")
			assert.Equal(t, tt.exit, kairnerr.ExitCode(err))
			assert.True(t, tt.check(err))
		})
	}
}

func TestClassificationNegativeCases(t *testing.T) {
	for _, err := range []error{nil, stderrors.New("plain"), kairnerr.New(kairnerr.CodeStoreDatabaseFailure, "db")} {
		assert.False(t, kairnerr.IsNotFound(err))
		assert.False(t, kairnerr.IsConflict(err))
		assert.False(t, kairnerr.IsInvalidInput(err))
		assert.False(t, kairnerr.IsTimeout(err))
	}
}

func TestExitCodeNil(t *testing.T) {
	assert.Equal(t, kairnerr.ExitOK, kairnerr.ExitCode(nil))
	assert.Equal(t, kairnerr.ExitFailure, kairnerr.ExitCode(stderrors.New("plain")))
}

// ---------------------------------------------------------------------------
// Join
// ---------------------------------------------------------------------------

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("first")
	b := stderrors.New("second")
	joined := kairnerr.Join(a, b)

	require.Error(t, joined)
	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
	assert.Equal(t, kairnerr.CodeInternalFailure, kairnerr.CodeOf(joined))
}

func TestJoinAllNilReturnsNil(t *testing.T) {
	assert.NoError(t, kairnerr.Join(nil, nil))
}
