// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

//go:build !windows

package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
)

// WarnInsecurePermissions logs a warning for every sensitive file that is
// group- or world-readable. It never fails startup; files that do not
// exist yet are skipped.
func WarnInsecurePermissions(c *Config) {
	for _, f := range c.SensitiveFiles() {
		info, err := os.Stat(f.Path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Debug("could not stat file for permission check", "path", f.Path, "error", err)
			}
			continue
		}

		if info.Mode().Perm()&0o044 != 0 {
			slog.Warn(f.Kind+" file is readable by other users, "+f.Exposes+" may be exposed",
				"path", f.Path,
				"mode", info.Mode(),
				"recommended", "0600",
			)
		}
	}
}
