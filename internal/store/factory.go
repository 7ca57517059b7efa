// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package store

import (
	"sort"
	"sync"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// DefaultBackend is used when StorageConfig.Backend is empty.
const DefaultBackend = "file"

// Factory opens a Store at path. An empty path selects the backend's
// default location.
type Factory func(path string) (Store, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
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

// resolveBackend returns the effective backend name, defaulting to "file".
func resolveBackend(cfg *StorageConfig) string {
	if cfg == nil || cfg.Backend == "" {
		return DefaultBackend
	}
	return cfg.Backend
}

// New opens the configured store.
func New(cfg *StorageConfig) (Store, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, rlerr.Errorf(rlerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	var path string
	if cfg != nil {
		path = cfg.Path
	}
	return factory(path)
}
