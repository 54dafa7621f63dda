// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctor_RunsAllChecks(t *testing.T) {
	out, err := execute(t, t.TempDir(), "doctor")
	require.NoError(t, err)

	assert.Contains(t, out, "Binary:")
	assert.Contains(t, out, "Platform:")
	assert.Contains(t, out, "Config:")
	assert.Contains(t, out, "Database:")
	assert.Contains(t, out, "Disk Space:")
	assert.Contains(t, out, "not initialised")
	assert.Contains(t, out, "using defaults")
}

func TestDoctor_AfterInit(t *testing.T) {
	ws := t.TempDir()
	_, err := execute(t, ws, "init")
	require.NoError(t, err)

	out, err := execute(t, ws, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "ok (schema v")
	assert.Contains(t, out, "loaded from")
	assert.NotContains(t, out, "insecure permissions")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 bytes"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}
