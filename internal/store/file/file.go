// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/rolelink-dev/rolelink/internal/store"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// DefaultPath is the store location used when none is configured.
const DefaultPath = "storage.json"

func init() {
	store.RegisterBackend("file", func(path string) (store.Store, error) {
		if path == "" {
			path = DefaultPath
		}
		return Open(path)
	})
}

// Compile-time interface checks.
var (
	_ store.Store        = (*Store)(nil)
	_ store.TokenStore   = (*tokenStore)(nil)
	_ store.MappingStore = (*mappingStore)(nil)
	_ store.SchemaStore  = (*schemaStore)(nil)
)

// document is the on-disk layout:
//
//	{"tokens": {userId: credential}, "mappings": {guildId: {roleId: key}}, "schema": [...]}
type document struct {
	Tokens   map[string]credentialRecord  `json:"tokens"`
	Mappings map[string]map[string]string `json:"mappings"`
	Schema   []definitionRecord           `json:"schema,omitempty"`
}

// credentialRecord keeps timestamps as Unix milliseconds.
type credentialRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	ObtainedAt   int64  `json:"obtained_at"`
}

type definitionRecord struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        int    `json:"type"`
}

// Store is a JSON file mirrored in memory. Every mutation rewrites the
// whole file; the in-memory copy only changes once the write succeeded.
type Store struct {
	path string

	mu  sync.Mutex
	doc document

	tokens   *tokenStore
	mappings *mappingStore
	schema   *schemaStore
}

// Open loads the store at path, starting empty when the file does not exist.
func Open(path string) (*Store, error) {
	doc := document{}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, rlerr.Errorf(rlerr.CodeStoreFileFailure, "reading store %s: %w", path, err)
	case len(bytes.TrimSpace(raw)) > 0:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, rlerr.Errorf(rlerr.CodeStoreFileFailure, "decoding store %s: %w", path, err)
		}
	}
	if doc.Tokens == nil {
		doc.Tokens = map[string]credentialRecord{}
	}
	if doc.Mappings == nil {
		doc.Mappings = map[string]map[string]string{}
	}

	s := &Store{path: path, doc: doc}
	s.tokens = &tokenStore{s: s}
	s.mappings = &mappingStore{s: s}
	s.schema = &schemaStore{s: s}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Tokens returns the TokenStore sub-store.
func (s *Store) Tokens() store.TokenStore { return s.tokens }

// Mappings returns the MappingStore sub-store.
func (s *Store) Mappings() store.MappingStore { return s.mappings }

// Schema returns the SchemaStore sub-store.
func (s *Store) Schema() store.SchemaStore { return s.schema }

// Close is a no-op; every mutation is already on disk.
func (s *Store) Close() error { return nil }

// update applies fn to a copy of the document, writes the copy and only
// then makes it current.
func (s *Store) update(fn func(d *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

func (s *Store) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return rlerr.Errorf(rlerr.CodeStoreFileFailure, "encoding store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return rlerr.Errorf(rlerr.CodeStoreFileFailure, "creating store directory %s: %w", dir, err)
		}
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return rlerr.Errorf(rlerr.CodeStoreFileFailure, "writing store %s: %w", s.path, err)
	}
	// The file holds bearer tokens.
	if err := os.Chmod(s.path, 0o600); err != nil {
		return rlerr.Errorf(rlerr.CodeStoreFileFailure, "restricting store %s: %w", s.path, err)
	}
	return nil
}

func (d document) clone() document {
	out := document{
		Tokens:   make(map[string]credentialRecord, len(d.Tokens)),
		Mappings: make(map[string]map[string]string, len(d.Mappings)),
		Schema:   append([]definitionRecord(nil), d.Schema...),
	}
	for k, v := range d.Tokens {
		out.Tokens[k] = v
	}
	for guild, roles := range d.Mappings {
		m := make(map[string]string, len(roles))
		for role, key := range roles {
			m[role] = key
		}
		out.Mappings[guild] = m
	}
	return out
}

// ---------- tokenStore ----------

type tokenStore struct {
	s *Store
}

func (t *tokenStore) Get(_ context.Context, userID string) (*store.Credential, error) {
	t.s.mu.Lock()
	rec, ok := t.s.doc.Tokens[userID]
	t.s.mu.Unlock()
	if !ok {
		return nil, rlerr.Wrap(store.ErrNotFound, rlerr.CodeStoreCredentialGetNotFound,
			"credential for user "+userID, rlerr.FieldUserID(userID))
	}

	return &store.Credential{
		UserID:       userID,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		Scope:        rec.Scope,
		TokenType:    rec.TokenType,
		ExpiresAt:    fromMillis(rec.ExpiresAt),
		ObtainedAt:   fromMillis(rec.ObtainedAt),
	}, nil
}

func (t *tokenStore) Put(_ context.Context, cred *store.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	rec := credentialRecord{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Scope:        cred.Scope,
		TokenType:    cred.TokenType,
		ExpiresAt:    toMillis(cred.ExpiresAt),
		ObtainedAt:   toMillis(cred.ObtainedAt),
	}
	return t.s.update(func(d *document) error {
		d.Tokens[cred.UserID] = rec
		return nil
	})
}

// ---------- mappingStore ----------

type mappingStore struct {
	s *Store
}

func (m *mappingStore) Set(_ context.Context, mapping store.RoleMapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}
	return m.s.update(func(d *document) error {
		roles, ok := d.Mappings[mapping.GuildID]
		if !ok {
			roles = map[string]string{}
			d.Mappings[mapping.GuildID] = roles
		}
		roles[mapping.RoleID] = mapping.MetadataKey
		return nil
	})
}

func (m *mappingStore) Get(_ context.Context, guildID, roleID string) (*store.RoleMapping, error) {
	m.s.mu.Lock()
	key, ok := m.s.doc.Mappings[guildID][roleID]
	m.s.mu.Unlock()
	if !ok {
		return nil, notMapped(guildID, roleID)
	}
	return &store.RoleMapping{GuildID: guildID, RoleID: roleID, MetadataKey: key}, nil
}

func (m *mappingStore) ListByGuild(_ context.Context, guildID string) ([]store.RoleMapping, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	roles := m.s.doc.Mappings[guildID]
	out := make([]store.RoleMapping, 0, len(roles))
	for role, key := range roles {
		out = append(out, store.RoleMapping{GuildID: guildID, RoleID: role, MetadataKey: key})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out, nil
}

func (m *mappingStore) Delete(_ context.Context, guildID, roleID string) error {
	return m.s.update(func(d *document) error {
		roles, ok := d.Mappings[guildID]
		if !ok {
			return notMapped(guildID, roleID)
		}
		if _, ok := roles[roleID]; !ok {
			return notMapped(guildID, roleID)
		}
		delete(roles, roleID)
		if len(roles) == 0 {
			delete(d.Mappings, guildID)
		}
		return nil
	})
}

func notMapped(guildID, roleID string) error {
	return rlerr.Wrap(store.ErrNotFound, rlerr.CodeStoreMappingGetNotFound,
		"mapping for role "+roleID, rlerr.FieldGuildID(guildID), rlerr.FieldRoleID(roleID))
}

// ---------- schemaStore ----------

type schemaStore struct {
	s *Store
}

func (sc *schemaStore) Upsert(_ context.Context, def store.MetadataDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	rec := definitionRecord{Key: def.Key, Name: def.Name, Description: def.Description, Type: int(def.Type)}
	return sc.s.update(func(d *document) error {
		for i := range d.Schema {
			if d.Schema[i].Key == def.Key {
				d.Schema[i] = rec
				return nil
			}
		}
		if len(d.Schema) >= store.MaxMetadataDefinitions {
			return rlerr.Errorf(rlerr.CodeStoreInvalidInput,
				"schema already holds %d definitions", store.MaxMetadataDefinitions)
		}
		d.Schema = append(d.Schema, rec)
		return nil
	})
}

func (sc *schemaStore) List(_ context.Context) ([]store.MetadataDefinition, error) {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()

	out := make([]store.MetadataDefinition, len(sc.s.doc.Schema))
	for i, rec := range sc.s.doc.Schema {
		out[i] = store.MetadataDefinition{
			Key:         rec.Key,
			Name:        rec.Name,
			Description: rec.Description,
			Type:        store.MetadataType(rec.Type),
		}
	}
	return out, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
