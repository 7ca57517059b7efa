// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package store

import "time"

// Credential is the OAuth token set a user granted through the connect flow.
// It is overwritten on re-authorization and never deleted automatically.
// ExpiresAt is recorded but not enforced: stale tokens are used until
// Discord rejects them.
type Credential struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	Scope        string
	TokenType    string
	ExpiresAt    time.Time
	ObtainedAt   time.Time
}

// RoleMapping associates a guild role with an application metadata key.
// A role maps to at most one key; the last write wins.
type RoleMapping struct {
	GuildID     string
	RoleID      string
	MetadataKey string
}

// MetadataType is the value type of a registered metadata key.
type MetadataType int

const (
	MetadataTypeString       MetadataType = 1
	MetadataTypeBoolean      MetadataType = 2
	MetadataTypeIntegerEqual MetadataType = 3
)

// MetadataDefinition describes one schema-registered metadata key.
type MetadataDefinition struct {
	Key         string
	Name        string
	Description string
	Type        MetadataType
}
