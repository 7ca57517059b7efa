// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package sqlite

import "github.com/rolelink-dev/rolelink/internal/store"

// DefaultPath is the database location used when none is configured.
const DefaultPath = "rolelink.db"

func init() {
	store.RegisterBackend("sqlite", newStore)
}

func newStore(path string) (store.Store, error) {
	if path == "" {
		path = DefaultPath
	}
	return Open(path)
}
