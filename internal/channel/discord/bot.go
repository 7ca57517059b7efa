// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

// Package discord adapts the Discord gateway to rolesync and admin:
// member updates become sync tasks and slash commands become admin
// invocations.
package discord

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/rolelink-dev/rolelink/internal/admin"
	"github.com/rolelink-dev/rolelink/internal/rolesync"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

const interactionTimeout = 10 * time.Second

// Intents are the gateway intents the bot needs. Guild members is a
// privileged intent and must be enabled for the application.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

// BotConfig holds the Bot's collaborators.
type BotConfig struct {
	Session       *discordgo.Session
	ApplicationID string
	Dispatcher    *rolesync.Dispatcher
	Admin         *admin.Handler
	// RegisterCommands overwrites the global slash commands on start.
	RegisterCommands bool
	Logger           *slog.Logger
}

// Bot routes gateway events to the sync dispatcher and admin handler.
type Bot struct {
	session          *discordgo.Session
	applicationID    string
	dispatcher       *rolesync.Dispatcher
	admin            *admin.Handler
	registerCommands bool
	logger           *slog.Logger

	ctx context.Context
}

// NewSession creates a gateway session for botToken with the bot's intents.
func NewSession(botToken string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, rlerr.Errorf(rlerr.CodeDiscordGatewayFailure, "creating discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// NewBot validates cfg and returns a Bot.
func NewBot(cfg BotConfig) (*Bot, error) {
	if cfg.Session == nil || cfg.Dispatcher == nil || cfg.Admin == nil {
		return nil, rlerr.New(rlerr.CodeDiscordGatewayFailure, "bot requires a session, a dispatcher and an admin handler")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		session:          cfg.Session,
		applicationID:    cfg.ApplicationID,
		dispatcher:       cfg.Dispatcher,
		admin:            cfg.Admin,
		registerCommands: cfg.RegisterCommands,
		logger:           logger,
	}, nil
}

// Run connects to the gateway and handles events until ctx is done. In
// flight member updates are drained before Run returns.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx

	removers := []func(){
		b.session.AddHandler(b.onReady),
		b.session.AddHandler(b.onGuildMemberUpdate),
		b.session.AddHandler(b.onInteractionCreate),
	}
	defer func() {
		for _, remove := range removers {
			remove()
		}
	}()

	if err := b.session.Open(); err != nil {
		return rlerr.Errorf(rlerr.CodeDiscordGatewayFailure, "opening discord gateway: %w", err)
	}

	if b.registerCommands {
		if err := RegisterCommands(b.session, b.applicationID); err != nil {
			b.logger.Error("failed to register commands", "error", err)
		} else {
			b.logger.Info("admin commands registered globally")
		}
	}

	<-ctx.Done()

	closeErr := b.session.Close()
	b.dispatcher.Close()
	if closeErr != nil {
		return rlerr.Errorf(rlerr.CodeDiscordGatewayFailure, "closing discord gateway: %w", closeErr)
	}
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User != nil {
		b.logger.Info("bot ready", "user", r.User.Username, "guilds", len(r.Guilds))
	}
}

func (b *Bot) onGuildMemberUpdate(_ *discordgo.Session, e *discordgo.GuildMemberUpdate) {
	u, ok := memberUpdate(e)
	if !ok {
		if e != nil && e.Member != nil && e.Member.User != nil {
			b.logger.Debug("skipping member update without cached roles",
				"guild_id", e.GuildID, "user_id", e.User.ID)
		}
		return
	}
	b.dispatcher.Dispatch(b.ctx, u)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	inv, ok := invocation(i)
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in interaction handler",
				"command", inv.Command, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(b.ctx, interactionTimeout)
	defer cancel()

	reply := b.admin.Handle(ctx, inv)

	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: reply.Content},
	}
	if reply.Ephemeral {
		resp.Data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, resp, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("failed to answer interaction",
			"command", inv.Command, "guild_id", inv.GuildID, "user_id", inv.UserID, "error", err)
	}
}
