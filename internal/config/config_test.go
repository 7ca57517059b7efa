// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/rolelink-dev/rolelink/internal/config"
	"github.com/rolelink-dev/rolelink/internal/secrets"
)

func init() {
	keyring.MockInit()
}

// isolate points HOME at an empty directory so a developer's own
// ~/.config/rolelink/rolelink.yaml does not leak into tests.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{"CLIENT_ID", "CLIENT_SECRET", "BOT_TOKEN", "APP_ID", "BASE_URL"} {
		t.Setenv(name, "")
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ROLELINK_DISCORD_CLIENT_ID", "client-1")
	t.Setenv("ROLELINK_DISCORD_CLIENT_SECRET", "secret-1")
	t.Setenv("ROLELINK_DISCORD_BOT_TOKEN", "bot-1")
	t.Setenv("ROLELINK_DISCORD_APPLICATION_ID", "app-1")
	t.Setenv("ROLELINK_NETWORKING_BASE_URL", "https://roles.example.com")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rolelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig() *config.Config {
	return &config.Config{
		Discord: config.DiscordConfig{
			ClientID:       "client-1",
			ClientSecret:   "secret-1",
			BotToken:       "bot-1",
			ApplicationID:  "app-1",
			PlatformName:   "Linked Roles App",
			APIBaseURL:     "https://discord.com/api/v10",
			AuthorizeURL:   "https://discord.com/oauth2/authorize",
			TokenURL:       "https://discord.com/api/oauth2/token",
			RequestTimeout: 10 * time.Second,
			WriteRPS:       5,
			WriteBurst:     5,
		},
		Networking: config.NetworkingConfig{
			Listen:  "127.0.0.1:3000",
			BaseURL: "https://roles.example.com",
		},
		Storage: config.StorageConfig{Backend: "file"},
		Sync:    config.SyncConfig{Timeout: 15 * time.Second, NotifyUnlinked: true},
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	isolate(t)
	setRequiredEnv(t)

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.File)
	assert.Equal(t, "127.0.0.1:3000", cfg.Networking.Listen)
	assert.Equal(t, "Linked Roles App", cfg.Discord.PlatformName)
	assert.Equal(t, "https://discord.com/api/v10", cfg.Discord.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.Discord.RequestTimeout)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Empty(t, cfg.Storage.Path)
	assert.Equal(t, 15*time.Second, cfg.Sync.Timeout)
	assert.True(t, cfg.Sync.NotifyUnlinked)
	assert.Equal(t, "https://roles.example.com/callback", cfg.RedirectURL())
}

func TestLoad_FromFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
discord:
  client_id: "file-client"
  client_secret: "file-secret"
  bot_token: "file-bot"
  application_id: "file-app"
  platform_name: "Guild Roles"
networking:
  listen: "0.0.0.0:8080"
  base_url: "https://roles.example.com/"
storage:
  backend: sqlite
  path: /var/lib/rolelink/rolelink.db
sync:
  timeout: 30s
  notify_unlinked: false
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "file-client", cfg.Discord.ClientID)
	assert.Equal(t, "Guild Roles", cfg.Discord.PlatformName)
	assert.Equal(t, "0.0.0.0:8080", cfg.Networking.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/rolelink/rolelink.db", cfg.Storage.Path)
	assert.Equal(t, 30*time.Second, cfg.Sync.Timeout)
	assert.False(t, cfg.Sync.NotifyUnlinked)
	assert.Equal(t, "https://roles.example.com/callback", cfg.RedirectURL())
}

func TestLoad_PrefixedEnvOverridesFile(t *testing.T) {
	isolate(t)
	setRequiredEnv(t)
	t.Setenv("ROLELINK_NETWORKING_LISTEN", "10.0.0.1:9000")
	path := writeConfig(t, "networking:\n  listen: \"127.0.0.1:4000\"\n")

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:9000", cfg.Networking.Listen)
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	isolate(t)
	t.Setenv("CLIENT_ID", "legacy-client")
	t.Setenv("CLIENT_SECRET", "legacy-secret")
	t.Setenv("BOT_TOKEN", "legacy-bot")
	t.Setenv("APP_ID", "legacy-app")
	t.Setenv("BASE_URL", "http://localhost:3000")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "legacy-client", cfg.Discord.ClientID)
	assert.Equal(t, "legacy-secret", cfg.Discord.ClientSecret)
	assert.Equal(t, "legacy-bot", cfg.Discord.BotToken)
	assert.Equal(t, "legacy-app", cfg.Discord.ApplicationID)
	assert.Equal(t, "http://localhost:3000", cfg.Networking.BaseURL)
}

func TestLoad_PrefixedEnvWinsOverLegacy(t *testing.T) {
	isolate(t)
	setRequiredEnv(t)
	t.Setenv("BOT_TOKEN", "legacy-bot")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "bot-1", cfg.Discord.BotToken)
}

func TestLoad_MissingRequiredValuesAreFatal(t *testing.T) {
	isolate(t)

	_, err := config.Load("", nil)
	require.Error(t, err)
	for _, key := range []string{
		"discord.client_id", "discord.client_secret", "discord.bot_token",
		"discord.application_id", "networking.base_url",
	} {
		assert.Contains(t, err.Error(), key)
	}
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestLoad_ResolvesKeyringReferences(t *testing.T) {
	isolate(t)
	setRequiredEnv(t)
	t.Setenv("ROLELINK_DISCORD_BOT_TOKEN", "keyring://config-test/discord.bot_token")

	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("config-test", "discord.bot_token", "from-keyring"))

	cfg, err := config.Load("", ks)
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", cfg.Discord.BotToken)
}

func TestLoad_UnresolvedKeyringReferenceFails(t *testing.T) {
	isolate(t)
	setRequiredEnv(t)
	path := writeConfig(t, "discord:\n  client_secret: keyring://config-test-missing/discord.client_secret\n")
	t.Setenv("ROLELINK_DISCORD_CLIENT_SECRET", "")

	_, err := config.Load(path, secrets.NewKeyringStore())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord.client_secret")
}

func TestLoad_UnreadableFile(t *testing.T) {
	isolate(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoad_InvalidConfigFailsFast(t *testing.T) {
	isolate(t)
	setRequiredEnv(t)
	path := writeConfig(t, "storage:\n  backend: postgres\n")

	_, err := config.Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.Empty(t, validConfig().Validate())
}

func TestValidate_NetworkingListen(t *testing.T) {
	tests := []struct {
		name    string
		listen  string
		wantErr bool
	}{
		{"valid address", "127.0.0.1:8080", false},
		{"valid all interfaces", ":3000", false},
		{"valid ipv6", "[::1]:8080", false},
		{"empty listen", "", true},
		{"missing port", "127.0.0.1", true},
		{"invalid port zero", "127.0.0.1:0", true},
		{"port too high", "127.0.0.1:70000", true},
		{"not a number", "127.0.0.1:abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Networking.Listen = tt.listen
			errs := cfg.Validate()
			if tt.wantErr {
				require.Len(t, errs, 1)
				assert.Contains(t, errs[0].Error(), "networking.listen")
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidate_BaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"https", "https://roles.example.com", false},
		{"http with port", "http://localhost:3000", false},
		{"empty", "", true},
		{"relative", "/connect", true},
		{"no scheme", "roles.example.com", true},
		{"ftp", "ftp://roles.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Networking.BaseURL = tt.baseURL
			errs := cfg.Validate()
			if tt.wantErr {
				require.Len(t, errs, 1)
				assert.Contains(t, errs[0].Error(), "networking.base_url")
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidate_StorageBackend(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		cfg := validConfig()
		cfg.Storage.Backend = backend
		assert.Empty(t, cfg.Validate(), backend)
	}

	cfg := validConfig()
	cfg.Storage.Backend = "redis"
	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "[file, sqlite]")
}

func TestValidate_Limits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		key    string
	}{
		{"request timeout", func(c *config.Config) { c.Discord.RequestTimeout = 0 }, "discord.request_timeout"},
		{"negative write rps", func(c *config.Config) { c.Discord.WriteRPS = -1 }, "discord.write_rps"},
		{"write burst", func(c *config.Config) { c.Discord.WriteBurst = 0 }, "discord.write_burst"},
		{"sync timeout", func(c *config.Config) { c.Sync.Timeout = 0 }, "sync.timeout"},
		{"rate limit burst", func(c *config.Config) {
			c.Networking.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1}
		}, "networking.rate_limit.burst"},
		{"negative rate limit", func(c *config.Config) {
			c.Networking.RateLimit = config.RateLimitConfig{RequestsPerSecond: -1}
		}, "networking.rate_limit.requests_per_second"},
		{"token url", func(c *config.Config) { c.Discord.TokenURL = "not a url" }, "discord.token_url"},
		{"platform name", func(c *config.Config) { c.Discord.PlatformName = "" }, "discord.platform_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Error(), tt.key)
		})
	}
}

func TestValidate_WriteRateZeroDisablesBurstCheck(t *testing.T) {
	cfg := validConfig()
	cfg.Discord.WriteRPS = 0
	cfg.Discord.WriteBurst = 0
	assert.Empty(t, cfg.Validate())
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Discord.BotToken = "  "
	cfg.Storage.Backend = ""
	cfg.Sync.Timeout = -time.Second

	errs := cfg.Validate()
	require.Len(t, errs, 3)

	joined := make([]string, 0, len(errs))
	for _, err := range errs {
		joined = append(joined, err.Error())
	}
	all := strings.Join(joined, "\n")
	assert.Contains(t, all, "discord.bot_token")
	assert.Contains(t, all, "storage.backend")
	assert.Contains(t, all, "sync.timeout")
}

func TestDefaultConfigYAMLLoads(t *testing.T) {
	isolate(t)
	setRequiredEnv(t)
	t.Setenv("ROLELINK_DISCORD_CLIENT_SECRET", "secret-1")
	t.Setenv("ROLELINK_DISCORD_BOT_TOKEN", "bot-1")
	path := writeConfig(t, string(config.DefaultConfigYAML))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 10, cfg.Networking.RateLimit.Burst)
}
