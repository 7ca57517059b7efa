// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

// Package secrets keeps the application's Discord credentials out of the
// config file. Config values of the form keyring://service/key are
// replaced with the secret stored under that service and key.
package secrets

import (
	"strings"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// DefaultService is the keyring service the CLI stores secrets under.
const DefaultService = "rolelink"

// Credential is a config value that may be kept in the keyring. Its config
// key doubles as the keyring entry name.
type Credential struct {
	Key string
	// Env is the unprefixed variable older deployments set, if any.
	Env string
}

// Credentials lists every secret rolelink reads from its configuration.
var Credentials = []Credential{
	{Key: "discord.bot_token", Env: "BOT_TOKEN"},
	{Key: "discord.client_secret", Env: "CLIENT_SECRET"},
	{Key: "networking.api_token"},
}

// CredentialKey returns the config key named by name, which may be the key
// itself or its legacy env variable in any case.
func CredentialKey(name string) (string, error) {
	for _, c := range Credentials {
		if name == c.Key || (c.Env != "" && strings.EqualFold(name, c.Env)) {
			return c.Key, nil
		}
	}
	keys := make([]string, len(Credentials))
	for i, c := range Credentials {
		keys[i] = c.Key
	}
	return "", rlerr.Errorf(rlerr.CodeSecretInvalidInput,
		"unknown credential %q, expected one of %s", name, strings.Join(keys, ", "))
}

// Store provides secure secret storage operations.
type Store interface {
	// Store saves value for the credential key under service.
	Store(service, key, value string) error

	// Retrieve fetches the secret value for the given service and key.
	// Returns an error with rlerr.CodeSecretNotFound if the key does not exist.
	Retrieve(service, key string) (string, error)

	// Delete removes the secret for the given service and key.
	// Returns an error with rlerr.CodeSecretNotFound if the key does not exist.
	Delete(service, key string) error

	// List returns the credential keys stored under service, sorted.
	List(service string) ([]string, error)
}

// URI returns the keyring:// reference for key under service.
func URI(service, key string) string {
	return keyringScheme + service + "/" + key
}
