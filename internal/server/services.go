// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package server

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"

	"github.com/rolelink-dev/rolelink/internal/store"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// OAuthClient runs the Discord side of the connect flow.
type OAuthClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	CurrentUser(ctx context.Context, accessToken string) (*discordgo.User, error)
}

// Services holds dependencies injected into route handlers.
// Use NewServices constructor to ensure all required services are provided.
type Services struct {
	oauth    OAuthClient
	tokens   store.TokenStore
	mappings store.MappingStore
	schema   store.SchemaStore
	now      func() time.Time
}

// NewServices creates a Services instance with validation.
// Returns an error if any required service is nil.
func NewServices(oauth OAuthClient, st store.Store) (*Services, error) {
	if oauth == nil {
		return nil, rlerr.New(rlerr.CodeServerConfigInvalid, "oauth client is required")
	}
	if st == nil {
		return nil, rlerr.New(rlerr.CodeServerConfigInvalid, "store is required")
	}
	return &Services{
		oauth:    oauth,
		tokens:   st.Tokens(),
		mappings: st.Mappings(),
		schema:   st.Schema(),
		now:      time.Now,
	}, nil
}

// RegisterServices sets the service dependencies and registers the OAuth
// and REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerOAuthRoutes()
	s.registerRoutes()
}
