// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

//go:build windows

package config

import "log/slog"

// WarnInsecurePermissions is a no-op on Windows, which uses ACLs rather
// than mode bits.
func WarnInsecurePermissions(c *Config) {
	for _, f := range c.SensitiveFiles() {
		slog.Debug("permission check not implemented on Windows", "path", f.Path)
	}
}
