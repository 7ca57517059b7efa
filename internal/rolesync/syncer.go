// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

// Package rolesync keeps a connected user's role-connection metadata in
// line with the guild roles they hold.
package rolesync

import (
	"context"
	"fmt"

	"github.com/rolelink-dev/rolelink/internal/discordapi"
	"github.com/rolelink-dev/rolelink/internal/store"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// Encoded role-presence values for integer_equal metadata.
const (
	ValueHasRole = "1"
	ValueNoRole  = "0"
)

// MemberUpdate is one observed membership change. Before and After are
// the member's role ids; they are never persisted.
type MemberUpdate struct {
	GuildID  string
	UserID   string
	Username string
	Before   []string
	After    []string
}

// Writer sets a user's role-connection metadata under their own grant.
type Writer interface {
	WriteRoleConnection(ctx context.Context, accessToken string, conn discordapi.RoleConnection) (*discordapi.WriteResult, error)
}

// Notifier prompts a user who has not connected yet.
type Notifier interface {
	NotifyUnlinked(ctx context.Context, userID string) error
}

// SyncerConfig holds the Syncer's collaborators.
type SyncerConfig struct {
	Mappings store.MappingStore
	Tokens   store.TokenStore
	Writer   Writer
	// Notifier may be nil, which disables connect prompts.
	Notifier     Notifier
	Sink         ResultSink
	PlatformName string
}

// Syncer applies role transitions to role-connection metadata.
type Syncer struct {
	mappings     store.MappingStore
	tokens       store.TokenStore
	writer       Writer
	notifier     Notifier
	sink         ResultSink
	platformName string
}

// NewSyncer validates cfg and returns a Syncer.
func NewSyncer(cfg SyncerConfig) (*Syncer, error) {
	if cfg.Mappings == nil || cfg.Tokens == nil || cfg.Writer == nil {
		return nil, rlerr.New(rlerr.CodeSyncEventInvalid, "syncer requires stores and a writer")
	}
	sink := cfg.Sink
	if sink == nil {
		sink = LogSink{}
	}
	return &Syncer{
		mappings:     cfg.Mappings,
		tokens:       cfg.Tokens,
		writer:       cfg.Writer,
		notifier:     cfg.Notifier,
		sink:         sink,
		platformName: cfg.PlatformName,
	}, nil
}

// Sync processes one membership update. Every mapped transition gets its
// own write and its own Result; a failure on one key does not stop the
// others. Sync returns an error only when the event as a whole cannot be
// processed.
func (s *Syncer) Sync(ctx context.Context, u MemberUpdate) error {
	if u.GuildID == "" || u.UserID == "" {
		return rlerr.New(rlerr.CodeSyncEventInvalid, "member update requires guild and user ids",
			rlerr.FieldGuildID(u.GuildID), rlerr.FieldUserID(u.UserID))
	}

	changed := Diff(u.Before, u.After)
	if len(changed) == 0 {
		return nil
	}

	mappings, err := s.mappings.ListByGuild(ctx, u.GuildID)
	if err != nil {
		return rlerr.With(err, rlerr.FieldGuildID(u.GuildID))
	}
	keyByRole := make(map[string]string, len(mappings))
	for _, m := range mappings {
		keyByRole[m.RoleID] = m.MetadataKey
	}

	var (
		cred      *store.Credential
		credErr   error
		credKnown bool
		notified  bool
	)

	for _, roleID := range changed {
		if err := ctx.Err(); err != nil {
			return rlerr.Errorf(rlerr.CodeSyncTimeout, "member update for %s: %w", u.UserID, err)
		}

		key, ok := keyByRole[roleID]
		if !ok {
			continue
		}

		res := Result{
			GuildID:     u.GuildID,
			UserID:      u.UserID,
			RoleID:      roleID,
			MetadataKey: key,
			Value:       ValueNoRole,
		}
		if contains(u.After, roleID) {
			res.Value = ValueHasRole
		}

		if !credKnown {
			cred, credErr = s.tokens.Get(ctx, u.UserID)
			credKnown = true
		}
		switch {
		case credErr != nil && rlerr.IsNotFound(credErr):
			res.Outcome = OutcomeNoCredential
			s.sink.Record(ctx, res)
			if !notified {
				notified = true
				s.notify(ctx, u)
			}
			continue
		case credErr != nil:
			res.Outcome = OutcomeLookupFailed
			res.Err = credErr
			s.sink.Record(ctx, res)
			continue
		}

		s.write(ctx, cred, u.Username, res)
	}
	return nil
}

func (s *Syncer) write(ctx context.Context, cred *store.Credential, username string, res Result) {
	conn := discordapi.RoleConnection{
		PlatformName:     s.platformName,
		PlatformUsername: username,
		Metadata:         map[string]string{res.MetadataKey: res.Value},
	}

	out, err := s.writer.WriteRoleConnection(ctx, cred.AccessToken, conn)
	switch {
	case err != nil:
		res.Outcome = OutcomeWriteError
		res.Err = rlerr.With(err, rlerr.FieldRoleID(res.RoleID), rlerr.FieldMetadataKey(res.MetadataKey))
	case out == nil:
		res.Outcome = OutcomeWriteError
		res.Err = rlerr.New(rlerr.CodeDiscordResponseInvalid, "writer returned no result")
	case out.OK:
		res.Outcome = OutcomeWritten
	default:
		res.Outcome = OutcomeWriteRejected
		res.Status = out.Status
		res.Body = out.Body
	}
	s.sink.Record(ctx, res)
}

func (s *Syncer) notify(ctx context.Context, u MemberUpdate) {
	if s.notifier == nil {
		return
	}

	res := Result{GuildID: u.GuildID, UserID: u.UserID, Outcome: OutcomeNotified}
	if err := safeNotify(ctx, s.notifier, u.UserID); err != nil {
		res.Outcome = OutcomeNotifyFailed
		res.Err = err
	}
	s.sink.Record(ctx, res)
}

func safeNotify(ctx context.Context, n Notifier, userID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	return n.NotifyUnlinked(ctx, userID)
}
