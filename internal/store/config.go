// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package store

// StorageConfig controls which backend the store factory uses and where it
// keeps its data.
type StorageConfig struct {
	Backend string // "sqlite" is the only supported backend for now.
	Path    string // database file; required
	WALMode bool
}
