// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package secrets

import (
	"errors"
	"sort"

	"github.com/zalando/go-keyring"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// KeyringStore implements Store on the OS keyring. Only the keys in
// Credentials can be written, so List checks that fixed set.
// Retrieve and Delete accept any key, letting a config reference entries
// created by other tools.
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkEntry(service, key); err != nil {
		return err
	}
	canonical, err := CredentialKey(key)
	if err != nil {
		return err
	}
	if canonical != key {
		return rlerr.Errorf(rlerr.CodeSecretInvalidInput, "credential must be stored as %s, not %s", canonical, key)
	}

	if err := keyring.Set(service, key, value); err != nil {
		return rlerr.Wrapf(err, rlerr.CodeSecretStoreFailure, "storing %s in keyring service %s", key, service)
	}
	return nil
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkEntry(service, key); err != nil {
		return "", err
	}

	val, err := keyring.Get(service, key)
	if err != nil {
		return "", keyringError(err, rlerr.CodeSecretStoreFailure, service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkEntry(service, key); err != nil {
		return err
	}

	if err := keyring.Delete(service, key); err != nil {
		return keyringError(err, rlerr.CodeSecretDeleteFailure, service, key)
	}
	return nil
}

func (s *KeyringStore) List(service string) ([]string, error) {
	if service == "" {
		return nil, rlerr.New(rlerr.CodeSecretInvalidInput, "keyring service must not be empty")
	}

	var stored []string
	for _, c := range Credentials {
		_, err := keyring.Get(service, c.Key)
		switch {
		case err == nil:
			stored = append(stored, c.Key)
		case errors.Is(err, keyring.ErrNotFound):
		default:
			return nil, rlerr.Wrapf(err, rlerr.CodeSecretListFailure, "probing %s in keyring service %s", c.Key, service)
		}
	}
	sort.Strings(stored)
	return stored, nil
}

func checkEntry(service, key string) error {
	if service == "" || key == "" {
		return rlerr.Errorf(rlerr.CodeSecretInvalidInput,
			"keyring entry needs a service and a key, got %q/%q", service, key)
	}
	return nil
}

func keyringError(err error, code rlerr.Code, service, key string) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return rlerr.Errorf(rlerr.CodeSecretNotFound, "no secret %s in keyring service %s", key, service)
	}
	return rlerr.Wrapf(err, code, "keyring entry %s/%s", service, key)
}
