// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rolelink-dev/rolelink/internal/config"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// NewRootCmd creates the root rolelink command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rolelink",
		Short: "Discord linked roles from server roles",
		Long: "rolelink mirrors Discord server role changes into linked-role metadata, " +
			"so roles granted in one server can gate roles in others.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd)
			return nil
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newCommandsCmd(),
		newMappingsCmd(),
		newSecretCmd(),
		newVersionCmd(),
	)

	return root
}

func setupLogging(cmd *cobra.Command) {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
}

// loadConfig loads the config named by --config, or the first rolelink.yaml
// in the search path. When none exists a commented default is written to
// ~/.config/rolelink so the operator has something to edit.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" && config.Discover() == "" {
		config.BootstrapConfig()
	}

	cfg, err := config.Load(path, secretStoreFactory())
	if err != nil {
		return nil, rlerr.Wrap(err, rlerr.CodeCLISetupFailure, "loading config")
	}
	config.WarnInsecurePermissions(cfg)
	return cfg, nil
}
