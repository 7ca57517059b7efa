// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/rolelink-dev/rolelink/internal/admin"
	"github.com/rolelink-dev/rolelink/internal/rolesync"
	"github.com/rolelink-dev/rolelink/internal/store"
)

// memberUpdate converts a gateway event into a rolesync.MemberUpdate. The
// second result is false for events that carry no member, and for members
// missing from the state cache: without BeforeUpdate the prior role set is
// unknown, so no transition can be derived.
func memberUpdate(e *discordgo.GuildMemberUpdate) (rolesync.MemberUpdate, bool) {
	if e == nil || e.Member == nil || e.Member.User == nil || e.BeforeUpdate == nil {
		return rolesync.MemberUpdate{}, false
	}

	return rolesync.MemberUpdate{
		GuildID:  e.GuildID,
		UserID:   e.User.ID,
		Username: e.User.Username,
		Before:   append([]string{}, e.BeforeUpdate.Roles...),
		After:    append([]string{}, e.Roles...),
	}, true
}

// invocation converts a slash-command interaction into an admin.Invocation.
// The second result is false for interactions that are not application
// commands.
func invocation(i *discordgo.InteractionCreate) (admin.Invocation, bool) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return admin.Invocation{}, false
	}

	data := i.ApplicationCommandData()
	inv := admin.Invocation{
		Command: data.Name,
		GuildID: i.GuildID,
	}
	if i.Member != nil {
		inv.CanManageGuild = canManageGuild(i.Member.Permissions)
		if i.Member.User != nil {
			inv.UserID = i.Member.User.ID
		}
	} else if i.User != nil {
		// Direct-message invocations have no guild permissions.
		inv.UserID = i.User.ID
	}

	for _, opt := range data.Options {
		switch opt.Name {
		case optionKey:
			inv.Definition.Key = stringOption(opt)
		case optionName:
			inv.Definition.Name = stringOption(opt)
		case optionDescription:
			inv.Definition.Description = stringOption(opt)
		case optionType:
			if opt.Type == discordgo.ApplicationCommandOptionInteger {
				inv.Definition.Type = store.MetadataType(opt.IntValue())
			}
		case optionMetadataKey:
			inv.MetadataKey = stringOption(opt)
		case optionSourceRole:
			inv.Role = roleOption(opt, data.Resolved)
		}
	}
	return inv, true
}

func canManageGuild(perms int64) bool {
	return perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageServer != 0
}

func stringOption(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	s, _ := opt.Value.(string)
	return s
}

func roleOption(opt *discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) admin.Role {
	id, _ := opt.Value.(string)
	role := admin.Role{ID: id}
	if resolved != nil {
		if r, ok := resolved.Roles[id]; ok && r != nil {
			role.Name = r.Name
		}
	}
	return role
}
