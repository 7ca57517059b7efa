// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/rolelink-dev/rolelink/internal/admin"
	"github.com/rolelink-dev/rolelink/internal/channel/discord"
	"github.com/rolelink-dev/rolelink/internal/config"
	"github.com/rolelink-dev/rolelink/internal/discordapi"
	"github.com/rolelink-dev/rolelink/internal/rolesync"
	"github.com/rolelink-dev/rolelink/internal/server"
	"github.com/rolelink-dev/rolelink/internal/store"
	_ "github.com/rolelink-dev/rolelink/internal/store/file"   // register file backend
	_ "github.com/rolelink-dev/rolelink/internal/store/sqlite" // register sqlite backend
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// WireOptions tune wiring for the start command.
type WireOptions struct {
	// RegisterCommands overwrites the global slash commands once the
	// gateway is connected.
	RegisterCommands bool
	Logger           *slog.Logger
}

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Store      store.Store
	Discord    *discordapi.Client
	Session    *discordgo.Session
	Dispatcher *rolesync.Dispatcher
	Admin      *admin.Handler
	Bot        *discord.Bot
	Server     *server.Server
}

// WireApp creates all subsystems and wires them together. Nothing connects
// to Discord until Run.
func WireApp(cfg *config.Config, opts WireOptions) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 1. Store.
	st, err := store.New(&store.StorageConfig{Backend: cfg.Storage.Backend, Path: cfg.StoragePath()})
	if err != nil {
		return nil, rlerr.Wrap(err, rlerr.CodeCLISetupFailure, "opening store")
	}

	app, err := wire(cfg, opts, logger, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return app, nil
}

func wire(cfg *config.Config, opts WireOptions, logger *slog.Logger, st store.Store) (*App, error) {
	// 2. Discord REST client (OAuth, role connections, schema).
	api, err := discordapi.New(discordapi.Config{
		ClientID:       cfg.Discord.ClientID,
		ClientSecret:   cfg.Discord.ClientSecret,
		BotToken:       cfg.Discord.BotToken,
		ApplicationID:  cfg.Discord.ApplicationID,
		RedirectURL:    cfg.RedirectURL(),
		APIBaseURL:     cfg.Discord.APIBaseURL,
		AuthorizeURL:   cfg.Discord.AuthorizeURL,
		TokenURL:       cfg.Discord.TokenURL,
		RequestTimeout: cfg.Discord.RequestTimeout,
		WriteRPS:       cfg.Discord.WriteRPS,
		WriteBurst:     cfg.Discord.WriteBurst,
	})
	if err != nil {
		return nil, rlerr.Wrap(err, rlerr.CodeCLISetupFailure, "creating discord client")
	}

	// 3. Gateway session.
	session, err := discord.NewSession(cfg.Discord.BotToken)
	if err != nil {
		return nil, rlerr.Wrap(err, rlerr.CodeCLISetupFailure, "creating discord session")
	}

	// 4. Sync core. Results are logged and feed /health.
	healthSink, err := rolesync.NewHealthSink(rolesync.LogSink{Logger: logger}, rolesync.DefaultHealthCooldown)
	if err != nil {
		return nil, rlerr.Wrap(err, rlerr.CodeCLISetupFailure, "creating health sink")
	}
	syncCfg := rolesync.SyncerConfig{
		Mappings:     st.Mappings(),
		Tokens:       st.Tokens(),
		Writer:       api,
		Sink:         healthSink,
		PlatformName: cfg.Discord.PlatformName,
	}
	if cfg.Sync.NotifyUnlinked {
		syncCfg.Notifier = discord.NewNotifier(session, cfg.Networking.BaseURL)
	}
	syncer, err := rolesync.NewSyncer(syncCfg)
	if err != nil {
		return nil, rlerr.Wrap(err, rlerr.CodeCLISetupFailure, "creating syncer")
	}
	dispatcher := rolesync.NewDispatcher(syncer, cfg.Sync.Timeout, logger)

	// 5. Admin commands.
	adminHandler, err := admin.NewHandler(admin.HandlerConfig{
		Mappings:  st.Mappings(),
		Schema:    st.Schema(),
		Registrar: api,
		Logger:    logger,
	})
	if err != nil {
		return nil, rlerr.Wrap(err, rlerr.CodeCLISetupFailure, "creating admin handler")
	}

	bot, err := discord.NewBot(discord.BotConfig{
		Session:          session,
		ApplicationID:    cfg.Discord.ApplicationID,
		Dispatcher:       dispatcher,
		Admin:            adminHandler,
		RegisterCommands: opts.RegisterCommands,
		Logger:           logger,
	})
	if err != nil {
		return nil, rlerr.Wrap(err, rlerr.CodeCLISetupFailure, "creating bot")
	}

	// 6. HTTP server.
	if cfg.Networking.APIToken == "" {
		logger.Warn("api token not configured, /api/v1 endpoints are unauthenticated")
	}
	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		BaseURL:     cfg.Networking.BaseURL,
		CORSOrigins: cfg.Networking.CORSOrigins,
		APIToken:    cfg.Networking.APIToken,
		OAuthRateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Networking.RateLimit.RequestsPerSecond,
			Burst:             cfg.Networking.RateLimit.Burst,
		},
		SyncHealth: healthSink,
		Version:    version,
	})
	if err != nil {
		return nil, rlerr.Wrap(err, rlerr.CodeCLISetupFailure, "creating server")
	}

	svc, err := server.NewServices(api, st)
	if err != nil {
		_ = srv.Close()
		return nil, rlerr.Wrap(err, rlerr.CodeCLISetupFailure, "creating server services")
	}
	srv.RegisterServices(svc)

	return &App{
		Store:      st,
		Discord:    api,
		Session:    session,
		Dispatcher: dispatcher,
		Admin:      adminHandler,
		Bot:        bot,
		Server:     srv,
	}, nil
}

// Run runs the bot and the HTTP server until ctx is cancelled or either
// fails, then closes the store.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Bot.Run(gctx) })
	g.Go(func() error { return a.Server.Start(gctx) })

	err := g.Wait()
	if closeErr := a.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close releases the store and server resources.
func (a *App) Close() error {
	_ = a.Server.Close()
	if err := a.Store.Close(); err != nil {
		return rlerr.Wrap(err, rlerr.CodeStoreDatabaseFailure, "closing store")
	}
	return nil
}
