// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rolelink-dev/rolelink/internal/channel/discord"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

func newCommandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Manage the admin slash commands",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show the slash commands rolelink registers",
			RunE:  runCommandsList,
		},
		&cobra.Command{
			Use:   "register",
			Short: "Overwrite the application's global slash commands",
			RunE:  runCommandsRegister,
		},
	)

	return cmd
}

func runCommandsList(cmd *cobra.Command, _ []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "COMMAND\tOPTIONS\tDESCRIPTION")
	for _, c := range discord.Commands() {
		_, _ = fmt.Fprintf(tw, "/%s\t%d\t%s\n", c.Name, len(c.Options), c.Description)
	}
	return tw.Flush()
}

func runCommandsRegister(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	session, err := discord.NewSession(cfg.Discord.BotToken)
	if err != nil {
		return err
	}
	if err := discord.RegisterCommands(session, cfg.Discord.ApplicationID); err != nil {
		return rlerr.Wrap(err, rlerr.CodeCLIRequestFailure, "registering commands")
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered %d commands for application %s\n", len(discord.Commands()), cfg.Discord.ApplicationID)
	return nil
}
