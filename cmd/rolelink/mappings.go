// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

type mappingRow struct {
	RoleID      string `json:"role_id" yaml:"role_id"`
	MetadataKey string `json:"metadata_key" yaml:"metadata_key"`
}

type mappingList struct {
	GuildID  string       `json:"guild_id" yaml:"guild_id"`
	Mappings []mappingRow `json:"mappings" yaml:"mappings"`
}

type metadataRow struct {
	Key         string `json:"key" yaml:"key"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Type        int    `json:"type" yaml:"type"`
}

type metadataList struct {
	Metadata []metadataRow `json:"metadata" yaml:"metadata"`
}

func addServiceFlags(cmd *cobra.Command) {
	cmd.Flags().String("address", defaultAddress, "service address")
	cmd.Flags().String("token", "", "API bearer token (networking.api_token)")
	cmd.Flags().StringP("output", "o", "table", "output format: table, json or yaml")
}

func serviceFromFlags(cmd *cobra.Command) (*serviceClient, string, error) {
	addr, _ := cmd.Flags().GetString("address")
	token, _ := cmd.Flags().GetString("token")
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "table", "json", "yaml":
	default:
		return nil, "", rlerr.Errorf(rlerr.CodeCLIInputInvalid, "--output must be one of table, json, yaml, got %q", format)
	}
	return newServiceClient(addr, token), format, nil
}

func newMappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect role mappings",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the role mappings of a guild",
		RunE:  runMappingsList,
	}
	list.Flags().StringP("guild", "g", "", "guild id")
	addServiceFlags(list)

	cmd.AddCommand(list, newMetadataListCmd())
	return cmd
}

func newMetadataListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "List the registered metadata definitions",
		RunE:  runMetadataList,
	}
	addServiceFlags(cmd)
	return cmd
}

func runMappingsList(cmd *cobra.Command, _ []string) error {
	guild, _ := cmd.Flags().GetString("guild")
	if guild == "" {
		return rlerr.New(rlerr.CodeCLIInputInvalid, "--guild flag is required")
	}
	client, format, err := serviceFromFlags(cmd)
	if err != nil {
		return err
	}

	var body mappingList
	if err := client.getJSON("/api/v1/guilds/"+url.PathEscape(guild)+"/mappings", &body); err != nil {
		return rlerr.Wrap(err, rlerr.CodeCLIRequestFailure, "listing mappings")
	}

	out := cmd.OutOrStdout()
	if format != "table" {
		return encode(out, format, body)
	}
	if len(body.Mappings) == 0 {
		_, _ = fmt.Fprintln(out, "No mappings found")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ROLE\tMETADATA KEY")
	for _, m := range body.Mappings {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", m.RoleID, m.MetadataKey)
	}
	return tw.Flush()
}

func runMetadataList(cmd *cobra.Command, _ []string) error {
	client, format, err := serviceFromFlags(cmd)
	if err != nil {
		return err
	}

	var body metadataList
	if err := client.getJSON("/api/v1/metadata", &body); err != nil {
		return rlerr.Wrap(err, rlerr.CodeCLIRequestFailure, "listing metadata")
	}

	out := cmd.OutOrStdout()
	if format != "table" {
		return encode(out, format, body)
	}
	if len(body.Metadata) == 0 {
		_, _ = fmt.Fprintln(out, "No metadata registered")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tTYPE\tNAME\tDESCRIPTION")
	for _, d := range body.Metadata {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", d.Key, d.Type, d.Name, d.Description)
	}
	return tw.Flush()
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
}
