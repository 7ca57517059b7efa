// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package secrets_test

import (
	"testing"

	"github.com/rolelink-dev/rolelink/internal/secrets"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKeyringURI(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"keyring://rolelink/discord.bot_token", true},
		{"keyring://", true},
		{"plain-token", false},
		{"KEYRING://rolelink/x", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, secrets.IsKeyringURI(tt.value))
		})
	}
}

func TestParseKeyringURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"valid", "keyring://rolelink/discord.client_secret", "rolelink", "discord.client_secret", false},
		{"slashes in key", "keyring://rolelink/discord/bot", "rolelink", "discord/bot", false},
		{"missing key", "keyring://rolelink/", "", "", true},
		{"missing service", "keyring:///key", "", "", true},
		{"no path", "keyring://rolelink", "", "", true},
		{"not a keyring URI", "env://X", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, key, err := secrets.ParseKeyringURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, rlerr.HasCode(err, rlerr.CodeSecretInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantService, svc)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.uri, secrets.URI(svc, key))
		})
	}
}

func TestResolveKeyringURI(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store(secrets.DefaultService, "networking.api_token", "resolved-secret"))

	t.Run("resolves keyring URI", func(t *testing.T) {
		val, err := secrets.ResolveKeyringURI(ks, secrets.URI(secrets.DefaultService, "networking.api_token"))
		require.NoError(t, err)
		assert.Equal(t, "resolved-secret", val)
	})

	t.Run("passes through literal values", func(t *testing.T) {
		val, err := secrets.ResolveKeyringURI(ks, "literal-value")
		require.NoError(t, err)
		assert.Equal(t, "literal-value", val)
	})

	t.Run("error on missing secret", func(t *testing.T) {
		_, err := secrets.ResolveKeyringURI(ks, "keyring://rolelink/nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolving keyring URI")
	})

	t.Run("error on malformed URI", func(t *testing.T) {
		_, err := secrets.ResolveKeyringURI(ks, "keyring://bad")
		require.Error(t, err)
	})
}

func TestResolveViperSecrets(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store(secrets.DefaultService, "discord.bot_token", "bot-secret"))
	require.NoError(t, ks.Store(secrets.DefaultService, "discord.client_secret", "client-secret"))

	v := viper.New()
	v.Set("discord.bot_token", "keyring://rolelink/discord.bot_token")
	v.Set("discord.client_secret", "keyring://rolelink/discord.client_secret")
	v.Set("networking.listen", "127.0.0.1:3000")

	require.NoError(t, secrets.ResolveViperSecrets(v, ks))

	assert.Equal(t, "bot-secret", v.GetString("discord.bot_token"))
	assert.Equal(t, "client-secret", v.GetString("discord.client_secret"))
	assert.Equal(t, "127.0.0.1:3000", v.GetString("networking.listen"))
}

func TestResolveViperSecrets_ReportsEveryMissingKey(t *testing.T) {
	ks := secrets.NewKeyringStore()

	v := viper.New()
	v.Set("discord.bot_token", "keyring://rolelink/missing-bot-token")
	v.Set("discord.client_secret", "keyring://rolelink/missing-client-secret")

	err := secrets.ResolveViperSecrets(v, ks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord.bot_token")
	assert.Contains(t, err.Error(), "keyring://rolelink/missing-client-secret")

	// Unresolved values are left in place.
	assert.Equal(t, "keyring://rolelink/missing-bot-token", v.GetString("discord.bot_token"))
}
