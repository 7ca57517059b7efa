// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package discordapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"

	"github.com/rolelink-dev/rolelink/internal/store"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// AuthCodeURL returns the consent page URL for the connect flow.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token set.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, rlerr.New(rlerr.CodeDiscordRequestInvalid, "authorization code is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, rlerr.New(rlerr.CodeDiscordUpstreamFailure, "token exchange failed",
				rlerr.Field("status", retrieveErr.Response.StatusCode),
				rlerr.Field("body", truncate(string(retrieveErr.Body), 512)),
			)
		}
		return nil, rlerr.Errorf(rlerr.CodeDiscordUpstreamFailure, "token exchange: %w", err)
	}
	return tok, nil
}

// CurrentUser returns the identity that owns accessToken.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*discordgo.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users/@me", nil, bearerAuth(accessToken))
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, statusError("identity lookup", resp)
	}

	var user discordgo.User
	if err := json.Unmarshal(resp.body, &user); err != nil {
		return nil, rlerr.Errorf(rlerr.CodeDiscordResponseInvalid, "decoding identity: %w", err)
	}
	if user.ID == "" {
		return nil, rlerr.New(rlerr.CodeDiscordResponseInvalid, "identity response has no user id")
	}
	return &user, nil
}

// CredentialFromToken converts an exchanged token into the stored form.
func CredentialFromToken(userID string, tok *oauth2.Token, now time.Time) *store.Credential {
	cred := &store.Credential{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
		ObtainedAt:   now,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		cred.Scope = scope
	}
	return cred
}
