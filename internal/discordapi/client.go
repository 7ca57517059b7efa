// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

// Package discordapi talks to the Discord REST API: the OAuth2 code flow,
// identity lookup, per-user role-connection writes, and application
// metadata schema registration.
package discordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// Default endpoints.
const (
	DefaultAPIBaseURL   = "https://discord.com/api/v10"
	DefaultAuthorizeURL = "https://discord.com/oauth2/authorize"
	DefaultTokenURL     = "https://discord.com/api/oauth2/token"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxResponseBody       = 1 << 20
)

// Scopes are the OAuth2 scopes requested by the connect flow.
var Scopes = []string{"identify", "role_connections.write"}

// Config holds the application credentials and endpoints.
type Config struct {
	ClientID      string
	ClientSecret  string
	BotToken      string
	ApplicationID string
	RedirectURL   string

	APIBaseURL   string
	AuthorizeURL string
	TokenURL     string

	RequestTimeout time.Duration
	// WriteRPS and WriteBurst pace role-connection and schema writes.
	// A non-positive WriteRPS disables pacing.
	WriteRPS   float64
	WriteBurst int

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client is a Discord REST client scoped to one application.
type Client struct {
	cfg     Config
	http    *http.Client
	oauth   *oauth2.Config
	limiter *rate.Limiter
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ApplicationID == "" {
		return nil, rlerr.New(rlerr.CodeDiscordRequestInvalid, "discord client requires client id and application id")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = DefaultAuthorizeURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limit := rate.Inf
	burst := cfg.WriteBurst
	if cfg.WriteRPS > 0 {
		limit = rate.Limit(cfg.WriteRPS)
	}
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		cfg:  cfg,
		http: httpClient,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// ApplicationID returns the application the client acts for.
func (c *Client) ApplicationID() string { return c.cfg.ApplicationID }

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool { return r.status >= 200 && r.status < 300 }

// do performs one request against the API base URL. Only transport-level
// failures are returned as errors; any HTTP status is reported in response.
func (c *Client) do(ctx context.Context, method, path string, payload any, authorize func(*http.Request)) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, rlerr.Errorf(rlerr.CodeDiscordRequestInvalid, "encoding %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIBaseURL+path, body)
	if err != nil {
		return nil, rlerr.Errorf(rlerr.CodeDiscordRequestInvalid, "building %s %s request: %w", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if authorize != nil {
		authorize(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, rlerr.Errorf(rlerr.CodeDiscordUpstreamFailure, "%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, rlerr.Errorf(rlerr.CodeDiscordUpstreamFailure, "reading %s %s response: %w", method, path, err)
	}
	return &response{status: resp.StatusCode, body: raw}, nil
}

// botAuth authorizes a request with the application's bot token.
func (c *Client) botAuth(req *http.Request) {
	req.Header.Set("Authorization", "Bot "+c.cfg.BotToken)
}

// bearerAuth authorizes a request with a user's access token.
func bearerAuth(accessToken string) func(*http.Request) {
	tok := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	return tok.SetAuthHeader
}

// statusError classifies a non-2xx response.
func statusError(op string, resp *response) error {
	code := rlerr.CodeDiscordUpstreamFailure
	if resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden {
		code = rlerr.CodeDiscordAuthUnauthorized
	}
	return rlerr.New(code, op+" failed",
		rlerr.Field("status", resp.status),
		rlerr.Field("body", truncate(string(resp.body), 512)),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
