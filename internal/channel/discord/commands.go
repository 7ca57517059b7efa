// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/rolelink-dev/rolelink/internal/admin"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// Option names of the admin commands.
const (
	optionKey         = "key"
	optionName        = "name"
	optionDescription = "description"
	optionType        = "type"
	optionSourceRole  = "source_role"
	optionMetadataKey = "metadata_key"
)

// Commands returns the global slash commands of the service. They are
// hidden from members without Manage Server by default.
func Commands() []*discordgo.ApplicationCommand {
	manageServer := int64(discordgo.PermissionManageServer)
	minType, maxType := 1.0, 3.0

	return []*discordgo.ApplicationCommand{
		{
			Name:                     admin.CommandRegisterMetadata,
			Description:              "Register role-connection metadata (bot).",
			DefaultMemberPermissions: &manageServer,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: optionKey, Description: "metadata key", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: optionName, Description: "human name", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: optionDescription, Description: "description", Required: true},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        optionType,
					Description: "type (1=string,2=boolean,3=integer_equal)",
					Required:    true,
					MinValue:    &minType,
					MaxValue:    maxType,
				},
			},
		},
		{
			Name:                     admin.CommandMapRole,
			Description:              "Map a guild role to a metadata key.",
			DefaultMemberPermissions: &manageServer,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionRole, Name: optionSourceRole, Description: "role to watch", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: optionMetadataKey, Description: "metadata key to set", Required: true},
			},
		},
		{
			Name:                     admin.CommandUnmapRole,
			Description:              "Remove mapping for a guild role.",
			DefaultMemberPermissions: &manageServer,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionRole, Name: optionSourceRole, Description: "role to unmap", Required: true},
			},
		},
	}
}

// RegisterCommands replaces the application's global commands with
// Commands().
func RegisterCommands(s *discordgo.Session, applicationID string) error {
	if _, err := s.ApplicationCommandBulkOverwrite(applicationID, "", Commands()); err != nil {
		return rlerr.Errorf(rlerr.CodeDiscordUpstreamFailure, "registering slash commands: %w", err)
	}
	return nil
}
