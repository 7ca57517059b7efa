// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rolelink-dev/rolelink/internal/secrets"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// secretStoreFactory creates a secrets.Store. Tests substitute an
// in-memory implementation.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage Discord credentials stored in the OS keyring",
		Long: "Store, list and delete the client secret, bot token and API token under the " +
			"rolelink keyring service. Names are config keys (discord.bot_token) or their " +
			"legacy env names (BOT_TOKEN). Reference a stored secret from the config as " +
			"keyring://rolelink/<key>.",
	}

	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretListCmd(),
		newSecretDeleteCmd(),
	)

	return cmd
}

func newSecretSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretSet,
	}
}

func newSecretListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show which credentials are stored",
		RunE:  runSecretList,
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a secret by name",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretDelete,
	}
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	key, err := credentialArg(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(out, "Value for %s: ", key)
	value, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	value = strings.TrimRight(value, "\r\n")
	if err != nil && value == "" {
		return rlerr.Errorf(rlerr.CodeCLIInputInvalid, "reading secret value: %w", err)
	}
	if value == "" {
		return rlerr.New(rlerr.CodeCLIInputInvalid, "secret value must not be empty")
	}

	if err := secretStoreFactory().Store(secrets.DefaultService, key, value); err != nil {
		return rlerr.Wrapf(err, rlerr.CodeSecretStoreFailure, "storing %s", key)
	}

	_, _ = fmt.Fprintf(out, "\nStored %s\nIn rolelink.yaml set %s: %s\n", key, key, secrets.URI(secrets.DefaultService, key))
	return nil
}

func runSecretList(cmd *cobra.Command, _ []string) error {
	keys, err := secretStoreFactory().List(secrets.DefaultService)
	if err != nil {
		return rlerr.Errorf(rlerr.CodeSecretListFailure, "listing secrets: %w", err)
	}
	stored := make(map[string]bool, len(keys))
	for _, k := range keys {
		stored[k] = true
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tSTORED\tLEGACY ENV")
	for _, c := range secrets.Credentials {
		state := "no"
		if stored[c.Key] {
			state = "yes"
		}
		env := c.Env
		if env == "" {
			env = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Key, state, env)
	}
	return w.Flush()
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	key, err := credentialArg(args[0])
	if err != nil {
		return err
	}

	if err := secretStoreFactory().Delete(secrets.DefaultService, key); err != nil {
		if rlerr.HasCode(err, rlerr.CodeSecretNotFound) {
			return rlerr.Errorf(rlerr.CodeSecretNotFound, "%s is not stored", key)
		}
		return rlerr.Errorf(rlerr.CodeSecretDeleteFailure, "deleting %s: %w", key, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", key)
	return nil
}

func credentialArg(name string) (string, error) {
	key, err := secrets.CredentialKey(name)
	if err != nil {
		return "", rlerr.Errorf(rlerr.CodeCLIInputInvalid, "%s", err.Error())
	}
	return key, nil
}
