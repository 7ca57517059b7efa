// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rolelink-dev/rolelink/internal/config"
)

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storage.json")
	if backend == "sqlite" {
		path = filepath.Join(t.TempDir(), "rolelink.db")
	}
	cfg := &config.Config{
		Discord: config.DiscordConfig{
			ClientID:       "client-1",
			ClientSecret:   "secret-1",
			BotToken:       "bot-1",
			ApplicationID:  "app-1",
			PlatformName:   "Linked Roles App",
			APIBaseURL:     "https://discord.com/api/v10",
			AuthorizeURL:   "https://discord.com/oauth2/authorize",
			TokenURL:       "https://discord.com/api/oauth2/token",
			RequestTimeout: 5 * time.Second,
			WriteRPS:       5,
			WriteBurst:     5,
		},
		Networking: config.NetworkingConfig{
			Listen:  "127.0.0.1:0",
			BaseURL: "https://roles.example.com",
			RateLimit: config.RateLimitConfig{
				RequestsPerSecond: 100,
				Burst:             100,
			},
		},
		Storage: config.StorageConfig{Backend: backend, Path: path},
		Sync:    config.SyncConfig{Timeout: 5 * time.Second, NotifyUnlinked: true},
	}
	require.Empty(t, cfg.Validate())
	return cfg
}
