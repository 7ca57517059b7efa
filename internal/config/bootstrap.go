// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

//go:embed rolelink.yaml.default
var DefaultConfigYAML []byte

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", rlerr.Errorf(rlerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "rolelink"), nil
}

// DefaultConfigPath returns ~/.config/rolelink/rolelink.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rolelink.yaml"), nil
}

// BootstrapConfig writes the default commented config to the default path
// if it does not already exist. It returns the path written, or an empty
// string when the file existed or could not be written.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}
	return bootstrapAt(cfgPath)
}

func bootstrapAt(cfgPath string) string {
	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "path", dir, "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}

// Discover returns the first rolelink.yaml found in SearchPaths, or an
// empty string.
func Discover() string {
	for _, dir := range SearchPaths() {
		path := filepath.Join(dir, "rolelink.yaml")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
