// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package secrets

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// URI scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI extracts service and key from a keyring://service/key URI.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", rlerr.Errorf(rlerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	path := strings.TrimPrefix(uri, keyringScheme)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", rlerr.Errorf(rlerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}

	return parts[0], parts[1], nil
}

// ResolveKeyringURI resolves a single keyring:// URI to its secret value.
// Returns the original value unchanged if it is not a keyring URI.
func ResolveKeyringURI(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", rlerr.Wrapf(err, rlerr.CodeSecretResolveFailure, "resolving keyring URI %q", value)
	}

	return secret, nil
}

// ResolveViperSecrets replaces every keyring:// string value in v with the
// referenced secret. Values that cannot be resolved are left in place and
// reported together in the returned error, so a missing bot token fails
// startup with its config key named.
func ResolveViperSecrets(v *viper.Viper, store Store) error {
	var errs []error
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}

		resolved, err := ResolveKeyringURI(store, val)
		if err != nil {
			errs = append(errs, rlerr.Wrapf(err, rlerr.CodeSecretResolveFailure, "config key %s", key))
			continue
		}

		v.Set(key, resolved)
	}
	if len(errs) > 0 {
		return rlerr.Wrap(errors.Join(errs...), rlerr.CodeSecretResolveFailure, "resolving config secrets")
	}
	return nil
}
