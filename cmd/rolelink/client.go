// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

const defaultAddress = "127.0.0.1:3000"

// serviceHTTPClient is shared by the commands that talk to a running
// service. Tests swap it for an httptest client.
var serviceHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// serviceClient provides HTTP access to a running rolelink service.
type serviceClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// newServiceClient targets addr, which is host:port or a full URL.
func newServiceClient(addr, token string) *serviceClient {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &serviceClient{
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
		http:    serviceHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
// A refused connection is reported with rlerr.CodeCLIServiceNotRunning.
func (c *serviceClient) getJSON(path string, dest any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return rlerr.Errorf(rlerr.CodeCLIRequestFailure, "building request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isDialError(err) {
			return rlerr.New(rlerr.CodeCLIServiceNotRunning, "service is not running (connection refused)")
		}
		return rlerr.Errorf(rlerr.CodeCLIRequestFailure, "request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return rlerr.Errorf(rlerr.CodeCLIRequestFailure, "service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return rlerr.Errorf(rlerr.CodeCLIRequestFailure, "invalid response: %w", err)
	}
	return nil
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
