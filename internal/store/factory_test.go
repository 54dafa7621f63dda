// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package store_test

import (
	"path/filepath"
	"testing"

	"github.com/kairn-ai/kairn/internal/store"
	_ "github.com/kairn-ai/kairn/internal/store/sqlite" // register sqlite backend
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kairn.db")

	s, err := store.Open(store.StorageConfig{Backend: "sqlite", Path: path, WALMode: true})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.NotNil(t, s.Nodes())
	assert.NotNil(t, s.Edges())
	assert.NotNil(t, s.Experiences())
	assert.NotNil(t, s.Routes())
	assert.NotNil(t, s.Ideas())
	assert.NotNil(t, s.Projects())
	assert.NotNil(t, s.Activity())
	assert.Equal(t, path, s.Path())
}

func TestOpen_DefaultBackend(t *testing.T) {
	s, err := store.Open(store.StorageConfig{Path: filepath.Join(t.TempDir(), "kairn.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := store.Open(store.StorageConfig{Backend: "unknown", Path: filepath.Join(t.TempDir(), "x.db")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
	assert.True(t, kairnerr.HasCode(err, kairnerr.CodeStoreBackendUnsupported))
}

func TestOpen_MissingPath(t *testing.T) {
	_, err := store.Open(store.StorageConfig{Backend: "sqlite"})
	require.Error(t, err)
	assert.True(t, kairnerr.IsInvalidInput(err))
}

func TestBackends_IncludesSQLite(t *testing.T) {
	assert.Contains(t, store.Backends(), "sqlite")
}
