// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bot and the OAuth front-end",
		Long:  "Load configuration, connect to the Discord gateway and serve /connect, /callback and the JSON API until interrupted.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	cmd.Flags().Bool("skip-command-registration", false, "do not overwrite the global slash commands on start")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Networking.Listen = listen
		if errs := cfg.Validate(); len(errs) > 0 {
			return rlerr.Errorf(rlerr.CodeCLIInputInvalid, "--listen: %w", errs[0])
		}
	}
	skip, _ := cmd.Flags().GetBool("skip-command-registration")

	app, err := WireApp(cfg, WireOptions{RegisterCommands: !skip, Logger: slog.Default()})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting rolelink",
		"listen", cfg.Networking.Listen,
		"base_url", cfg.Networking.BaseURL,
		"storage", cfg.Storage.Backend,
		"version", version,
	)
	return app.Run(ctx)
}
