// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package store

// StorageConfig controls which backend the store factory uses.
type StorageConfig struct {
	Backend string // "file" (default) or "sqlite".
	Path    string // File or database path; empty uses the backend default.
}
