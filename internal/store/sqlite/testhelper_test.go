// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kairn-ai/kairn/internal/store"
	"github.com/kairn-ai/kairn/internal/store/sqlite"
)

// testDir creates a temp directory for a test and removes it on cleanup.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "kairn-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

// openTestStore opens a fresh store that is closed when the test ends.
func openTestStore(t *testing.T, name string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(testDBPath(t, name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testNode(id, name string) *store.Node {
	return &store.Node{
		ID:         id,
		Namespace:  store.DefaultNamespace,
		Type:       "concept",
		Name:       name,
		Visibility: store.DefaultVisibility,
		CreatedAt:  baseTime,
	}
}
