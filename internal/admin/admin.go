// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

// Package admin implements the privileged guild commands that manage the
// metadata schema and role mappings. It is independent of the gateway
// library; the Discord adapter translates interactions into Invocations.
package admin

import (
	"context"
	"log/slog"

	"github.com/rolelink-dev/rolelink/internal/store"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// Command names as registered with Discord.
const (
	CommandRegisterMetadata = "register_metadata"
	CommandMapRole          = "map_role"
	CommandUnmapRole        = "unmap_role"
)

// Reply texts.
const (
	ReplyNeedManageServer   = "You need Manage Server."
	ReplyMetadataRegistered = "Metadata registered (bot). Guilds can now use it in Links."
	ReplyMetadataFailed     = "Failed to register metadata. Check logs."
	ReplyNoMapping          = "No mapping found."
	ReplyUnknownCommand     = "Unknown command."
)

// Role identifies the role option of a command.
type Role struct {
	ID   string
	Name string
}

// Invocation is one admin command call.
type Invocation struct {
	Command string
	GuildID string
	UserID  string
	// CanManageGuild is true when the invoking member holds Manage Server.
	CanManageGuild bool

	// register_metadata
	Definition store.MetadataDefinition

	// map_role, unmap_role
	Role        Role
	MetadataKey string
}

// Reply is the response shown to the invoking admin.
type Reply struct {
	Content   string
	Ephemeral bool
}

// SchemaRegistrar pushes the metadata schema to Discord.
type SchemaRegistrar interface {
	RegisterSchema(ctx context.Context, defs []store.MetadataDefinition) error
}

// HandlerConfig holds the Handler's collaborators.
type HandlerConfig struct {
	Mappings  store.MappingStore
	Schema    store.SchemaStore
	Registrar SchemaRegistrar
	Logger    *slog.Logger
}

// Handler executes admin commands.
type Handler struct {
	mappings  store.MappingStore
	schema    store.SchemaStore
	registrar SchemaRegistrar
	logger    *slog.Logger
}

// NewHandler returns a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Mappings == nil || cfg.Schema == nil || cfg.Registrar == nil {
		return nil, rlerr.New(rlerr.CodeAdminCommandInvalid, "admin handler requires stores and a schema registrar")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		mappings:  cfg.Mappings,
		schema:    cfg.Schema,
		registrar: cfg.Registrar,
		logger:    logger,
	}, nil
}

// Handle runs inv and returns the reply for the invoking admin. Replies
// are always ephemeral.
func (h *Handler) Handle(ctx context.Context, inv Invocation) Reply {
	switch inv.Command {
	case CommandRegisterMetadata, CommandMapRole, CommandUnmapRole:
	default:
		return ephemeral(ReplyUnknownCommand)
	}

	if !inv.CanManageGuild {
		err := rlerr.New(rlerr.CodeAdminPermissionDenied, "manage server permission required",
			rlerr.FieldGuildID(inv.GuildID), rlerr.FieldUserID(inv.UserID))
		h.logger.InfoContext(ctx, "admin command denied",
			"command", inv.Command,
			"guild_id", inv.GuildID,
			"user_id", inv.UserID,
			"code", string(rlerr.CodeOf(err)),
		)
		return ephemeral(ReplyNeedManageServer)
	}

	var (
		reply Reply
		err   error
	)
	switch inv.Command {
	case CommandRegisterMetadata:
		reply, err = h.registerMetadata(ctx, inv)
	case CommandMapRole:
		reply, err = h.mapRole(ctx, inv)
	case CommandUnmapRole:
		reply, err = h.unmapRole(ctx, inv)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "admin command failed",
			"command", inv.Command,
			"guild_id", inv.GuildID,
			"user_id", inv.UserID,
			"code", string(rlerr.CodeOf(err)),
			"error", err,
		)
	}
	return reply
}

// registerMetadata adds or replaces one definition and pushes the whole
// accumulated schema.
func (h *Handler) registerMetadata(ctx context.Context, inv Invocation) (Reply, error) {
	def := inv.Definition
	if err := def.Validate(); err != nil {
		return ephemeral(ReplyMetadataFailed + " " + reason(err)), err
	}

	current, err := h.schema.List(ctx)
	if err != nil {
		return ephemeral(ReplyMetadataFailed), err
	}
	next := mergeDefinition(current, def)
	if len(next) > store.MaxMetadataDefinitions {
		err := rlerr.Errorf(rlerr.CodeAdminSchemaInvalidValue,
			"schema already holds %d definitions", store.MaxMetadataDefinitions)
		return ephemeral(ReplyMetadataFailed + " " + reason(err)), err
	}

	if err := h.registrar.RegisterSchema(ctx, next); err != nil {
		return ephemeral(ReplyMetadataFailed), err
	}
	// Discord accepted the schema; record it so the next push keeps it.
	if err := h.schema.Upsert(ctx, def); err != nil {
		return ephemeral(ReplyMetadataFailed), err
	}

	h.logger.InfoContext(ctx, "metadata registered",
		"guild_id", inv.GuildID, "metadata_key", def.Key, "type", def.Type.String(), "count", len(next))
	return ephemeral(ReplyMetadataRegistered), nil
}

func (h *Handler) mapRole(ctx context.Context, inv Invocation) (Reply, error) {
	m := store.RoleMapping{GuildID: inv.GuildID, RoleID: inv.Role.ID, MetadataKey: inv.MetadataKey}
	if err := h.mappings.Set(ctx, m); err != nil {
		return ephemeral("Failed to map role. " + reason(err)),
			rlerr.With(err, rlerr.FieldRoleID(inv.Role.ID), rlerr.FieldMetadataKey(inv.MetadataKey))
	}

	h.logger.InfoContext(ctx, "role mapped",
		"guild_id", inv.GuildID, "role_id", inv.Role.ID, "metadata_key", inv.MetadataKey)
	return ephemeral("Mapped " + roleLabel(inv.Role) + " -> " + inv.MetadataKey), nil
}

func (h *Handler) unmapRole(ctx context.Context, inv Invocation) (Reply, error) {
	err := h.mappings.Delete(ctx, inv.GuildID, inv.Role.ID)
	switch {
	case rlerr.IsNotFound(err):
		return ephemeral(ReplyNoMapping), nil
	case err != nil:
		return ephemeral("Failed to unmap role. " + reason(err)), err
	}

	h.logger.InfoContext(ctx, "role unmapped", "guild_id", inv.GuildID, "role_id", inv.Role.ID)
	return ephemeral("Unmapped " + roleLabel(inv.Role)), nil
}

// mergeDefinition returns defs with def replacing the entry of the same key,
// or appended when the key is new. defs is not modified.
func mergeDefinition(defs []store.MetadataDefinition, def store.MetadataDefinition) []store.MetadataDefinition {
	out := make([]store.MetadataDefinition, 0, len(defs)+1)
	replaced := false
	for _, d := range defs {
		if d.Key == def.Key {
			out = append(out, def)
			replaced = true
			continue
		}
		out = append(out, d)
	}
	if !replaced {
		out = append(out, def)
	}
	return out
}

func roleLabel(r Role) string {
	if r.Name != "" {
		return r.Name
	}
	return "<@&" + r.ID + ">"
}

// reason returns the user-presentable part of an input validation error.
func reason(err error) string {
	if rlerr.IsInvalidInput(err) {
		return err.Error()
	}
	return "Check logs."
}

func ephemeral(content string) Reply {
	return Reply{Content: content, Ephemeral: true}
}
