// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package sqlite

import (
	"github.com/kairn-ai/kairn/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", newStore)
}

func newStore(cfg store.StorageConfig) (store.Store, error) {
	return New(cfg.Path, WithWAL(cfg.WALMode))
}
