// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package rolesync_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/rolelink-dev/rolelink/internal/discordapi"
	"github.com/rolelink-dev/rolelink/internal/rolesync"
	"github.com/rolelink-dev/rolelink/internal/store"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
	"github.com/stretchr/testify/require"
)

// mockMappings is an in-memory store.MappingStore.
type mockMappings struct {
	mu      sync.Mutex
	byGuild map[string]map[string]string
	listErr error
}

func newMockMappings() *mockMappings {
	return &mockMappings{byGuild: map[string]map[string]string{}}
}

func (m *mockMappings) Set(_ context.Context, rm store.RoleMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byGuild[rm.GuildID] == nil {
		m.byGuild[rm.GuildID] = map[string]string{}
	}
	m.byGuild[rm.GuildID][rm.RoleID] = rm.MetadataKey
	return nil
}

func (m *mockMappings) Get(_ context.Context, guildID, roleID string) (*store.RoleMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.byGuild[guildID][roleID]
	if !ok {
		return nil, rlerr.Wrap(store.ErrNotFound, rlerr.CodeStoreMappingGetNotFound, "mapping")
	}
	return &store.RoleMapping{GuildID: guildID, RoleID: roleID, MetadataKey: key}, nil
}

func (m *mockMappings) ListByGuild(_ context.Context, guildID string) ([]store.RoleMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []store.RoleMapping{}
	for roleID, key := range m.byGuild[guildID] {
		out = append(out, store.RoleMapping{GuildID: guildID, RoleID: roleID, MetadataKey: key})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out, nil
}

func (m *mockMappings) Delete(_ context.Context, guildID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byGuild[guildID][roleID]; !ok {
		return rlerr.Wrap(store.ErrNotFound, rlerr.CodeStoreMappingGetNotFound, "mapping")
	}
	delete(m.byGuild[guildID], roleID)
	return nil
}

// mockTokens is an in-memory store.TokenStore.
type mockTokens struct {
	mu     sync.Mutex
	creds  map[string]*store.Credential
	getErr error
	gets   int
}

func newMockTokens() *mockTokens {
	return &mockTokens{creds: map[string]*store.Credential{}}
}

func (m *mockTokens) Get(_ context.Context, userID string) (*store.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.creds[userID]
	if !ok {
		return nil, rlerr.Wrap(store.ErrNotFound, rlerr.CodeStoreCredentialGetNotFound, "credential")
	}
	cp := *c
	return &cp, nil
}

func (m *mockTokens) Put(_ context.Context, cred *store.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cred
	m.creds[cred.UserID] = &cp
	return nil
}

type writeCall struct {
	AccessToken string
	Conn        discordapi.RoleConnection
}

// mockWriter records role-connection writes.
type mockWriter struct {
	mu     sync.Mutex
	calls  []writeCall
	result func(conn discordapi.RoleConnection) (*discordapi.WriteResult, error)
}

func (m *mockWriter) WriteRoleConnection(_ context.Context, accessToken string, conn discordapi.RoleConnection) (*discordapi.WriteResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, writeCall{AccessToken: accessToken, Conn: conn})
	m.mu.Unlock()
	if m.result != nil {
		return m.result(conn)
	}
	return &discordapi.WriteResult{OK: true}, nil
}

func (m *mockWriter) Calls() []writeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]writeCall(nil), m.calls...)
}

// mockNotifier records connect prompts.
type mockNotifier struct {
	mu    sync.Mutex
	users []string
	err   error
}

func (m *mockNotifier) NotifyUnlinked(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, userID)
	return m.err
}

func (m *mockNotifier) Users() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.users...)
}

// recordingSink keeps every Result.
type recordingSink struct {
	mu      sync.Mutex
	results []rolesync.Result
}

func (r *recordingSink) Record(_ context.Context, res rolesync.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingSink) Results() []rolesync.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rolesync.Result(nil), r.results...)
}

type fixture struct {
	mappings *mockMappings
	tokens   *mockTokens
	writer   *mockWriter
	notifier *mockNotifier
	sink     *recordingSink
	syncer   *rolesync.Syncer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		mappings: newMockMappings(),
		tokens:   newMockTokens(),
		writer:   &mockWriter{},
		notifier: &mockNotifier{},
		sink:     &recordingSink{},
	}
	s, err := rolesync.NewSyncer(rolesync.SyncerConfig{
		Mappings:     f.mappings,
		Tokens:       f.tokens,
		Writer:       f.writer,
		Notifier:     f.notifier,
		Sink:         f.sink,
		PlatformName: "Linked Roles App",
	})
	require.NoError(t, err)
	f.syncer = s
	return f
}

func (f *fixture) mapRole(t *testing.T, guildID, roleID, key string) {
	t.Helper()
	require.NoError(t, f.mappings.Set(context.Background(), store.RoleMapping{GuildID: guildID, RoleID: roleID, MetadataKey: key}))
}

func (f *fixture) connect(t *testing.T, userID, token string) {
	t.Helper()
	require.NoError(t, f.tokens.Put(context.Background(), &store.Credential{UserID: userID, AccessToken: token}))
}

var errBoom = errors.New("boom")
