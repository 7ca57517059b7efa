// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-guild-mappings",
		Method:      http.MethodGet,
		Path:        "/api/v1/guilds/{guildID}/mappings",
		Summary:     "List role mappings of a guild",
		Tags:        []string{"mappings"},
	}, s.handleListMappings)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-metadata",
		Method:      http.MethodGet,
		Path:        "/api/v1/metadata",
		Summary:     "List registered metadata definitions",
		Tags:        []string{"metadata"},
	}, s.handleListMetadata)
}

// --- Request/Response types for huma ---

// MappingSummary is one role mapping in API responses.
type MappingSummary struct {
	RoleID      string `json:"role_id" doc:"Guild role id"`
	MetadataKey string `json:"metadata_key" doc:"Metadata key set from the role"`
}

type listMappingsInput struct {
	GuildID string `path:"guildID" minLength:"1" maxLength:"32"`
}

type listMappingsOutput struct {
	Body struct {
		GuildID  string           `json:"guild_id"`
		Mappings []MappingSummary `json:"mappings"`
	}
}

// MetadataSummary is one registered metadata definition.
type MetadataSummary struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        int    `json:"type" enum:"1,2,3" doc:"1=string, 2=boolean, 3=integer_equal"`
}

type listMetadataOutput struct {
	Body struct {
		Metadata []MetadataSummary `json:"metadata"`
	}
}

// --- Handlers ---

func (s *Server) handleListMappings(ctx context.Context, input *listMappingsInput) (*listMappingsOutput, error) {
	mappings, err := s.services.mappings.ListByGuild(ctx, input.GuildID)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing mappings", err)
	}

	out := &listMappingsOutput{}
	out.Body.GuildID = input.GuildID
	out.Body.Mappings = make([]MappingSummary, 0, len(mappings))
	for _, m := range mappings {
		out.Body.Mappings = append(out.Body.Mappings, MappingSummary{RoleID: m.RoleID, MetadataKey: m.MetadataKey})
	}
	return out, nil
}

func (s *Server) handleListMetadata(ctx context.Context, _ *struct{}) (*listMetadataOutput, error) {
	defs, err := s.services.schema.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing metadata", err)
	}

	out := &listMetadataOutput{}
	out.Body.Metadata = make([]MetadataSummary, 0, len(defs))
	for _, d := range defs {
		out.Body.Metadata = append(out.Body.Metadata, MetadataSummary{
			Key: d.Key, Name: d.Name, Description: d.Description, Type: int(d.Type),
		})
	}
	return out, nil
}
