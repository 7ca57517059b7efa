// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolelink-dev/rolelink/internal/secrets"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(old) })
	return &buf
}

func TestWarnPlaintextCredentials(t *testing.T) {
	t.Setenv("ROLELINK_NETWORKING_API_TOKEN", "from-env")
	path := filepath.Join(t.TempDir(), "rolelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"discord:\n  bot_token: literal-token\n  client_secret: keyring://rolelink/discord.client_secret\n"), 0o600))
	logs := captureLogs(t)

	_, _ = Load(path, nil)

	out := logs.String()
	assert.Contains(t, out, "credential stored in plaintext config file")
	assert.Contains(t, out, "key=discord.bot_token")
	assert.Contains(t, out, `hint="rolelink secret set discord.bot_token"`)
	assert.NotContains(t, out, "key=discord.client_secret")
	assert.NotContains(t, out, "key=networking.api_token")
}

func TestCredentialEnvMatchesLegacyNames(t *testing.T) {
	for _, c := range secrets.Credentials {
		if c.Env == "" {
			continue
		}
		assert.Equal(t, c.Env, legacyEnv[c.Key], "legacy env for %s", c.Key)
	}
}

func TestSensitiveFiles(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{name: "no config file, default file store", cfg: Config{}, want: []string{DefaultFileStorePath}},
		{name: "default sqlite store", cfg: Config{File: "/etc/rolelink/rolelink.yaml", Storage: StorageConfig{Backend: "sqlite"}},
			want: []string{"/etc/rolelink/rolelink.yaml", DefaultSQLiteStorePath}},
		{name: "explicit store path", cfg: Config{Storage: StorageConfig{Backend: "file", Path: "/var/lib/rolelink/storage.json"}},
			want: []string{"/var/lib/rolelink/storage.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, f := range tt.cfg.SensitiveFiles() {
				got = append(got, f.Path)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
