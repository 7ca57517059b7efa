// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolelink-dev/rolelink/internal/admin"
	"github.com/rolelink-dev/rolelink/internal/discordapi"
	"github.com/rolelink-dev/rolelink/internal/rolesync"
	"github.com/rolelink-dev/rolelink/internal/store"
	"github.com/rolelink-dev/rolelink/internal/store/file"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// fakeDiscord serves the DM endpoints the notifier calls.
type fakeDiscord struct {
	mu        sync.Mutex
	rejectDMs bool
	channels  int
	messages  []string
}

func (f *fakeDiscord) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/users/@me/channels":
		f.channels++
		if f.rejectDMs {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"message":"Cannot send messages to this user","code":50007}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"dm-1","type":1}`)
	case r.Method == http.MethodPost && r.URL.Path == "/channels/dm-1/messages":
		var body struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.messages = append(f.messages, body.Content)
		_, _ = io.WriteString(w, `{"id":"m-1","channel_id":"dm-1"}`)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeDiscord) requests() (channels int, messages []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels, append([]string(nil), f.messages...)
}

// useFakeDiscord points discordgo's REST endpoints at a local server.
func useFakeDiscord(t *testing.T, f *fakeDiscord) {
	t.Helper()
	srv := httptest.NewServer(f)

	users, channels := discordgo.EndpointUsers, discordgo.EndpointChannels
	discordgo.EndpointUsers = srv.URL + "/users/"
	discordgo.EndpointChannels = srv.URL + "/channels/"
	t.Cleanup(func() {
		discordgo.EndpointUsers, discordgo.EndpointChannels = users, channels
		srv.Close()
	})
}

type recordingSink struct {
	mu      sync.Mutex
	results []rolesync.Result
}

func (s *recordingSink) Record(_ context.Context, r rolesync.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *recordingSink) Results() []rolesync.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rolesync.Result(nil), s.results...)
}

type stubWriter struct {
	mu    sync.Mutex
	conns []discordapi.RoleConnection
}

func (w *stubWriter) WriteRoleConnection(_ context.Context, _ string, conn discordapi.RoleConnection) (*discordapi.WriteResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conns = append(w.conns, conn)
	return &discordapi.WriteResult{OK: true, Status: http.StatusOK}, nil
}

func (w *stubWriter) Conns() []discordapi.RoleConnection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]discordapi.RoleConnection(nil), w.conns...)
}

type stubRegistrar struct{}

func (stubRegistrar) RegisterSchema(context.Context, []store.MetadataDefinition) error { return nil }

type botEnv struct {
	bot        *Bot
	dispatcher *rolesync.Dispatcher
	store      *file.Store
	writer     *stubWriter
	sink       *recordingSink
	discord    *fakeDiscord
}

func newBotEnv(t *testing.T) *botEnv {
	t.Helper()

	fake := &fakeDiscord{}
	useFakeDiscord(t, fake)

	session, err := NewSession("token")
	require.NoError(t, err)

	st, err := file.Open(filepath.Join(t.TempDir(), "storage.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Mappings().Set(context.Background(),
		store.RoleMapping{GuildID: "g-1", RoleID: "R1", MetadataKey: "verified"}))

	env := &botEnv{store: st, writer: &stubWriter{}, sink: &recordingSink{}, discord: fake}

	syncer, err := rolesync.NewSyncer(rolesync.SyncerConfig{
		Mappings: st.Mappings(),
		Tokens:   st.Tokens(),
		Writer:   env.writer,
		Notifier: NewNotifier(session, "https://rolelink.example"),
		Sink:     env.sink,
	})
	require.NoError(t, err)
	env.dispatcher = rolesync.NewDispatcher(syncer, 5*time.Second, nil)

	adminHandler, err := admin.NewHandler(admin.HandlerConfig{
		Mappings: st.Mappings(), Schema: st.Schema(), Registrar: stubRegistrar{},
	})
	require.NoError(t, err)

	env.bot, err = NewBot(BotConfig{Session: session, Dispatcher: env.dispatcher, Admin: adminHandler})
	require.NoError(t, err)
	env.bot.ctx = context.Background()
	return env
}

func (e *botEnv) connect(t *testing.T, userID string) {
	t.Helper()
	require.NoError(t, e.store.Tokens().Put(context.Background(), &store.Credential{
		UserID: userID, AccessToken: "at-" + userID, ObtainedAt: time.Now(),
	}))
}

func memberEvent(userID string, before *discordgo.Member, after ...string) *discordgo.GuildMemberUpdate {
	return &discordgo.GuildMemberUpdate{
		Member: &discordgo.Member{
			GuildID: "g-1",
			User:    &discordgo.User{ID: userID, Username: userID},
			Roles:   after,
		},
		BeforeUpdate: before,
	}
}

func TestBot_MemberUpdateWritesForLinkedUser(t *testing.T) {
	env := newBotEnv(t)
	env.connect(t, "u-1")

	env.bot.onGuildMemberUpdate(nil, memberEvent("u-1", &discordgo.Member{Roles: []string{"R1", "R2"}}, "R2"))
	env.dispatcher.Close()

	conns := env.writer.Conns()
	require.Len(t, conns, 1)
	assert.Equal(t, map[string]string{"verified": "0"}, conns[0].Metadata)

	channels, _ := env.discord.requests()
	assert.Zero(t, channels)
}

func TestBot_UnlinkedUserGetsConnectPrompt(t *testing.T) {
	env := newBotEnv(t)

	env.bot.onGuildMemberUpdate(nil, memberEvent("u-2", &discordgo.Member{}, "R1"))
	env.dispatcher.Close()

	channels, messages := env.discord.requests()
	assert.Equal(t, 1, channels)
	assert.Equal(t, []string{"To enable linked roles, connect here: https://rolelink.example/connect"}, messages)

	results := env.sink.Results()
	require.Len(t, results, 2)
	assert.Equal(t, rolesync.OutcomeNoCredential, results[0].Outcome)
	assert.Equal(t, rolesync.OutcomeNotified, results[1].Outcome)
	assert.Empty(t, env.writer.Conns())
}

func TestBot_RejectedConnectPromptIsReportedNotRaised(t *testing.T) {
	env := newBotEnv(t)
	env.discord.rejectDMs = true

	env.bot.onGuildMemberUpdate(nil, memberEvent("u-2", &discordgo.Member{}, "R1"))
	env.dispatcher.Close()

	channels, messages := env.discord.requests()
	assert.Equal(t, 1, channels)
	assert.Empty(t, messages)

	results := env.sink.Results()
	require.Len(t, results, 2)
	failed := results[1]
	assert.Equal(t, rolesync.OutcomeNotifyFailed, failed.Outcome)
	require.Error(t, failed.Err)
	assert.True(t, rlerr.IsUpstreamFailure(failed.Err), "got: %v", failed.Err)
	assert.Equal(t, "u-2", rlerr.FieldsOf(failed.Err)["user_id"])

	var restErr *discordgo.RESTError
	require.True(t, errors.As(failed.Err, &restErr))
	assert.Equal(t, http.StatusForbidden, restErr.Response.StatusCode)
}

func TestBot_UncachedMemberUpdateIsSkipped(t *testing.T) {
	env := newBotEnv(t)
	env.connect(t, "u-1")

	// A nickname change from an unlinked member holding a mapped role, and
	// a linked member whose prior roles are unknown.
	env.bot.onGuildMemberUpdate(nil, memberEvent("u-2", nil, "R1"))
	env.bot.onGuildMemberUpdate(nil, memberEvent("u-1", nil))
	env.dispatcher.Close()

	channels, _ := env.discord.requests()
	assert.Zero(t, channels)
	assert.Empty(t, env.writer.Conns())
	assert.Empty(t, env.sink.Results())
}
