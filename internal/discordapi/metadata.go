// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package discordapi

import (
	"context"
	"net/http"

	"github.com/rolelink-dev/rolelink/internal/store"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// RoleConnection is the body of a role-connection upsert.
type RoleConnection struct {
	PlatformName     string            `json:"platform_name"`
	PlatformUsername string            `json:"platform_username,omitempty"`
	Metadata         map[string]string `json:"metadata"`
}

// WriteResult reports the outcome of a role-connection write. Status and
// Body are set only when OK is false.
type WriteResult struct {
	OK     bool
	Status int
	Body   string
}

// WriteRoleConnection upserts the role connection of the user owning
// accessToken. Non-2xx responses are reported in the result; an error is
// returned only when no response was received.
func (c *Client) WriteRoleConnection(ctx context.Context, accessToken string, conn RoleConnection) (*WriteResult, error) {
	if conn.Metadata == nil {
		conn.Metadata = map[string]string{}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, rlerr.Errorf(rlerr.CodeDiscordUpstreamFailure, "waiting for write slot: %w", err)
	}

	path := "/users/@me/applications/" + c.cfg.ApplicationID + "/role-connection"
	resp, err := c.do(ctx, http.MethodPut, path, conn, bearerAuth(accessToken))
	if err != nil {
		return nil, err
	}
	if resp.ok() {
		return &WriteResult{OK: true}, nil
	}
	return &WriteResult{Status: resp.status, Body: string(resp.body)}, nil
}

type schemaRecord struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        int    `json:"type"`
}

// RegisterSchema replaces the application's role-connection metadata
// records with defs, using the bot credential.
func (c *Client) RegisterSchema(ctx context.Context, defs []store.MetadataDefinition) error {
	if len(defs) > store.MaxMetadataDefinitions {
		return rlerr.Errorf(rlerr.CodeDiscordRequestInvalid,
			"at most %d metadata records are allowed, got %d", store.MaxMetadataDefinitions, len(defs))
	}

	records := make([]schemaRecord, 0, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return err
		}
		records = append(records, schemaRecord{Key: d.Key, Name: d.Name, Description: d.Description, Type: int(d.Type)})
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return rlerr.Errorf(rlerr.CodeDiscordUpstreamFailure, "waiting for write slot: %w", err)
	}

	path := "/applications/" + c.cfg.ApplicationID + "/role-connections/metadata"
	resp, err := c.do(ctx, http.MethodPut, path, records, c.botAuth)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return statusError("metadata schema registration", resp)
	}
	return nil
}
