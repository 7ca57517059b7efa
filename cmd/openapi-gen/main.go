// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"

	"github.com/rolelink-dev/rolelink/internal/server"
	"github.com/rolelink-dev/rolelink/internal/store"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec creates a server with all routes registered and extracts the
// OpenAPI spec that huma generates from the Go type annotations.
func generateSpec() ([]byte, error) {
	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		BaseURL:    "http://localhost:3000",
	})
	if err != nil {
		return nil, rlerr.Errorf(rlerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	svc, err := server.NewServices(stubOAuth{}, stubStore{})
	if err != nil {
		return nil, rlerr.Errorf(rlerr.CodeCLISetupFailure, "creating services: %w", err)
	}
	srv.RegisterServices(svc)

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// Stubs for spec generation. Handlers are never invoked.

type stubOAuth struct{}

func (stubOAuth) AuthCodeURL(string) string { return "" }

func (stubOAuth) Exchange(context.Context, string) (*oauth2.Token, error) { return nil, nil }

func (stubOAuth) CurrentUser(context.Context, string) (*discordgo.User, error) { return nil, nil }

type stubStore struct{}

func (stubStore) Tokens() store.TokenStore     { return nil }
func (stubStore) Mappings() store.MappingStore { return nil }
func (stubStore) Schema() store.SchemaStore    { return nil }
func (stubStore) Close() error                 { return nil }
