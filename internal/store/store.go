// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package store

import "context"

// Store groups the durable state of the service. Backends are registered
// with RegisterBackend and opened through New.
type Store interface {
	Tokens() TokenStore
	Mappings() MappingStore
	Schema() SchemaStore
	Close() error
}

// TokenStore maps external user ids to OAuth credentials.
type TokenStore interface {
	// Get returns the credential for userID, or an error classified by
	// rlerr.IsNotFound when the user never connected.
	Get(ctx context.Context, userID string) (*Credential, error)
	// Put creates or overwrites the credential for cred.UserID.
	Put(ctx context.Context, cred *Credential) error
}

// MappingStore maps (guild, role) pairs to metadata keys.
type MappingStore interface {
	Set(ctx context.Context, mapping RoleMapping) error
	Get(ctx context.Context, guildID, roleID string) (*RoleMapping, error)
	ListByGuild(ctx context.Context, guildID string) ([]RoleMapping, error)
	// Delete removes a mapping; it returns a not-found error when the pair
	// was not mapped.
	Delete(ctx context.Context, guildID, roleID string) error
}

// SchemaStore keeps the metadata definitions pushed to Discord so that
// registering one key does not drop the others.
type SchemaStore interface {
	Upsert(ctx context.Context, def MetadataDefinition) error
	List(ctx context.Context) ([]MetadataDefinition, error)
}
