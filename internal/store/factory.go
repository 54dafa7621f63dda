// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package store

import (
	"sort"
	"sync"

	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

// Factory opens a Store for the given configuration.
type Factory func(cfg StorageConfig) (Store, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers the factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// Open creates the store for cfg using the registered backend.
func Open(cfg StorageConfig) (Store, error) {
	backend := resolveBackend(&cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	if cfg.Path == "" {
		return nil, kairnerr.New(kairnerr.CodeStoreInvalidInput, "storage path is required")
	}

	return factory(cfg)
}
