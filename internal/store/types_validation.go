// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package store

import (
	"regexp"
	"unicode/utf8"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// MaxMetadataDefinitions is the number of metadata records Discord accepts
// per application.
const MaxMetadataDefinitions = 5

var metadataKeyPattern = regexp.MustCompile(`^[a-z0-9_]{1,50}$`)

// Valid reports whether t is one of the supported metadata value types.
func (t MetadataType) Valid() bool {
	switch t {
	case MetadataTypeString, MetadataTypeBoolean, MetadataTypeIntegerEqual:
		return true
	default:
		return false
	}
}

// String returns the lower-case schema name of the type.
func (t MetadataType) String() string {
	switch t {
	case MetadataTypeString:
		return "string"
	case MetadataTypeBoolean:
		return "boolean"
	case MetadataTypeIntegerEqual:
		return "integer_equal"
	default:
		return "unknown"
	}
}

// Validate checks that the Credential can be persisted.
func (c Credential) Validate() error {
	if c.UserID == "" {
		return rlerr.New(rlerr.CodeStoreInvalidInput, "credential: UserID is required")
	}
	if c.AccessToken == "" {
		return rlerr.New(rlerr.CodeStoreInvalidInput, "credential: AccessToken is required",
			rlerr.FieldUserID(c.UserID))
	}
	return nil
}

// Validate checks that the RoleMapping has all identifiers set.
func (m RoleMapping) Validate() error {
	if m.GuildID == "" {
		return rlerr.New(rlerr.CodeStoreInvalidInput, "role mapping: GuildID is required")
	}
	if m.RoleID == "" {
		return rlerr.New(rlerr.CodeStoreInvalidInput, "role mapping: RoleID is required",
			rlerr.FieldGuildID(m.GuildID))
	}
	if m.MetadataKey == "" {
		return rlerr.New(rlerr.CodeStoreInvalidInput, "role mapping: MetadataKey is required",
			rlerr.FieldGuildID(m.GuildID), rlerr.FieldRoleID(m.RoleID))
	}
	return nil
}

// Validate checks a definition against the limits Discord applies to
// role-connection metadata records.
func (d MetadataDefinition) Validate() error {
	if !metadataKeyPattern.MatchString(d.Key) {
		return rlerr.Errorf(rlerr.CodeStoreInvalidInput,
			"metadata definition: key must match [a-z0-9_]{1,50}, got %q", d.Key)
	}
	if n := utf8.RuneCountInString(d.Name); n < 1 || n > 100 {
		return rlerr.Errorf(rlerr.CodeStoreInvalidInput,
			"metadata definition %q: name must be 1-100 characters, got %d", d.Key, n)
	}
	if n := utf8.RuneCountInString(d.Description); n < 1 || n > 200 {
		return rlerr.Errorf(rlerr.CodeStoreInvalidInput,
			"metadata definition %q: description must be 1-200 characters, got %d", d.Key, n)
	}
	if !d.Type.Valid() {
		return rlerr.Errorf(rlerr.CodeStoreInvalidInput,
			"metadata definition %q: type must be 1 (string), 2 (boolean) or 3 (integer_equal), got %d", d.Key, int(d.Type))
	}
	return nil
}
