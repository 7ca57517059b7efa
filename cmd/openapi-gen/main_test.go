// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSpec(t *testing.T) {
	spec, err := generateSpec()
	require.NoError(t, err)

	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(spec, &doc))
	assert.Contains(t, doc.OpenAPI, "3.1")
	assert.Contains(t, doc.Paths, "/health")
	assert.Contains(t, doc.Paths, "/api/v1/guilds/{guildID}/mappings")
	assert.Contains(t, doc.Paths, "/api/v1/metadata")

	// The OAuth front-end is plain chi routes, not part of the JSON API.
	assert.NotContains(t, doc.Paths, "/connect")
	assert.NotContains(t, doc.Paths, "/callback")
}
