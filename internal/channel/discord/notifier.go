// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// ConnectMessage is the direct message sent to members who hold a mapped
// role but never connected.
func ConnectMessage(baseURL string) string {
	return "To enable linked roles, connect here: " + strings.TrimRight(baseURL, "/") + "/connect"
}

// Notifier delivers connect prompts as direct messages. It implements
// rolesync.Notifier.
type Notifier struct {
	session *discordgo.Session
	message string
}

// NewNotifier returns a Notifier that points users at baseURL.
func NewNotifier(s *discordgo.Session, baseURL string) *Notifier {
	return &Notifier{session: s, message: ConnectMessage(baseURL)}
}

// NotifyUnlinked sends the connect prompt to userID. Delivery fails when
// the user does not accept direct messages from guild members.
func (n *Notifier) NotifyUnlinked(ctx context.Context, userID string) error {
	ch, err := n.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return rlerr.Wrap(err, rlerr.CodeDiscordUpstreamFailure, "opening DM channel", rlerr.FieldUserID(userID))
	}
	if _, err := n.session.ChannelMessageSend(ch.ID, n.message, discordgo.WithContext(ctx)); err != nil {
		return rlerr.Wrap(err, rlerr.CodeDiscordUpstreamFailure, "sending connect prompt", rlerr.FieldUserID(userID))
	}
	return nil
}
