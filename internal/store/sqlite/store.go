// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rolelink-dev/rolelink/internal/store"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// Compile-time interface checks.
var (
	_ store.Store        = (*Store)(nil)
	_ store.TokenStore   = (*tokenStore)(nil)
	_ store.MappingStore = (*mappingStore)(nil)
	_ store.SchemaStore  = (*schemaStore)(nil)
)

// Store implements store.Store backed by a single SQLite database.
type Store struct {
	db       *sql.DB
	tokens   *tokenStore
	mappings *mappingStore
	schema   *schemaStore
}

// Open opens (or creates) a SQLite database at dbPath and initialises the
// credentials, role_mappings, and metadata_schema tables.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "opening store db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "pinging store db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "migrating store db: %w", err)
	}

	return &Store{
		db:       db,
		tokens:   &tokenStore{db: db},
		mappings: &mappingStore{db: db},
		schema:   &schemaStore{db: db},
	}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS credentials (
	user_id       TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	scope         TEXT NOT NULL DEFAULT '',
	token_type    TEXT NOT NULL DEFAULT '',
	expires_at    TEXT NOT NULL DEFAULT '',
	obtained_at   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS role_mappings (
	guild_id     TEXT NOT NULL,
	role_id      TEXT NOT NULL,
	metadata_key TEXT NOT NULL,
	PRIMARY KEY (guild_id, role_id)
);

CREATE TABLE IF NOT EXISTS metadata_schema (
	key         TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL,
	type        INTEGER NOT NULL,
	position    INTEGER NOT NULL
);
`
	_, err := db.Exec(ddl)
	return err
}

// Tokens returns the TokenStore sub-store.
func (s *Store) Tokens() store.TokenStore { return s.tokens }

// Mappings returns the MappingStore sub-store.
func (s *Store) Mappings() store.MappingStore { return s.mappings }

// Schema returns the SchemaStore sub-store.
func (s *Store) Schema() store.SchemaStore { return s.schema }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// ---------- tokenStore ----------

type tokenStore struct {
	db *sql.DB
}

func (t *tokenStore) Get(ctx context.Context, userID string) (*store.Credential, error) {
	const q = `SELECT access_token, refresh_token, scope, token_type, expires_at, obtained_at
FROM credentials WHERE user_id = ?`

	c := store.Credential{UserID: userID}
	var expiresAt, obtainedAt string
	err := t.db.QueryRowContext(ctx, q, userID).Scan(
		&c.AccessToken, &c.RefreshToken, &c.Scope, &c.TokenType, &expiresAt, &obtainedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rlerr.Wrap(store.ErrNotFound, rlerr.CodeStoreCredentialGetNotFound,
			"credential for user "+userID, rlerr.FieldUserID(userID))
	}
	if err != nil {
		return nil, rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "getting credential for user %s: %w", userID, err)
	}
	c.ExpiresAt = parseTime(expiresAt)
	c.ObtainedAt = parseTime(obtainedAt)
	return &c, nil
}

func (t *tokenStore) Put(ctx context.Context, cred *store.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	const q = `INSERT INTO credentials (user_id, access_token, refresh_token, scope, token_type, expires_at, obtained_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	access_token = excluded.access_token,
	refresh_token = excluded.refresh_token,
	scope = excluded.scope,
	token_type = excluded.token_type,
	expires_at = excluded.expires_at,
	obtained_at = excluded.obtained_at`

	_, err := t.db.ExecContext(ctx, q,
		cred.UserID, cred.AccessToken, cred.RefreshToken, cred.Scope, cred.TokenType,
		formatTime(cred.ExpiresAt), formatTime(cred.ObtainedAt),
	)
	if err != nil {
		return rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "storing credential for user %s: %w", cred.UserID, err)
	}
	return nil
}

// ---------- mappingStore ----------

type mappingStore struct {
	db *sql.DB
}

func (m *mappingStore) Set(ctx context.Context, mapping store.RoleMapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}

	const q = `INSERT INTO role_mappings (guild_id, role_id, metadata_key) VALUES (?, ?, ?)
ON CONFLICT(guild_id, role_id) DO UPDATE SET metadata_key = excluded.metadata_key`

	if _, err := m.db.ExecContext(ctx, q, mapping.GuildID, mapping.RoleID, mapping.MetadataKey); err != nil {
		return rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "mapping role %s/%s: %w", mapping.GuildID, mapping.RoleID, err)
	}
	return nil
}

func (m *mappingStore) Get(ctx context.Context, guildID, roleID string) (*store.RoleMapping, error) {
	const q = `SELECT metadata_key FROM role_mappings WHERE guild_id = ? AND role_id = ?`

	out := store.RoleMapping{GuildID: guildID, RoleID: roleID}
	err := m.db.QueryRowContext(ctx, q, guildID, roleID).Scan(&out.MetadataKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notMapped(guildID, roleID)
	}
	if err != nil {
		return nil, rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "getting mapping %s/%s: %w", guildID, roleID, err)
	}
	return &out, nil
}

func (m *mappingStore) ListByGuild(ctx context.Context, guildID string) ([]store.RoleMapping, error) {
	const q = `SELECT role_id, metadata_key FROM role_mappings WHERE guild_id = ? ORDER BY role_id ASC`

	rows, err := m.db.QueryContext(ctx, q, guildID)
	if err != nil {
		return nil, rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "listing mappings for guild %s: %w", guildID, err)
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	out := []store.RoleMapping{}
	for rows.Next() {
		rm := store.RoleMapping{GuildID: guildID}
		if err := rows.Scan(&rm.RoleID, &rm.MetadataKey); err != nil {
			return nil, rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "scanning mapping row: %w", err)
		}
		out = append(out, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "iterating mapping rows: %w", err)
	}
	return out, nil
}

func (m *mappingStore) Delete(ctx context.Context, guildID, roleID string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM role_mappings WHERE guild_id = ? AND role_id = ?`, guildID, roleID)
	if err != nil {
		return rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "deleting mapping %s/%s: %w", guildID, roleID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "checking rows for mapping %s/%s: %w", guildID, roleID, err)
	}
	if rows == 0 {
		return notMapped(guildID, roleID)
	}
	return nil
}

func notMapped(guildID, roleID string) error {
	return rlerr.Wrap(store.ErrNotFound, rlerr.CodeStoreMappingGetNotFound,
		"mapping for role "+roleID, rlerr.FieldGuildID(guildID), rlerr.FieldRoleID(roleID))
}

// ---------- schemaStore ----------

type schemaStore struct {
	db *sql.DB
}

func (sc *schemaStore) Upsert(ctx context.Context, def store.MetadataDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	tx, err := sc.db.BeginTx(ctx, nil)
	if err != nil {
		return rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "beginning tx for schema %s: %w", def.Key, err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE metadata_schema SET name = ?, description = ?, type = ? WHERE key = ?`
	result, err := tx.ExecContext(ctx, update, def.Name, def.Description, int(def.Type), def.Key)
	if err != nil {
		return rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "updating schema %s: %w", def.Key, err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "checking rows for schema %s: %w", def.Key, err)
	} else if rows > 0 {
		return tx.Commit()
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM metadata_schema`).Scan(&count); err != nil {
		return rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "counting schema: %w", err)
	}
	if count >= store.MaxMetadataDefinitions {
		return rlerr.Errorf(rlerr.CodeStoreInvalidInput, "schema already holds %d definitions", store.MaxMetadataDefinitions)
	}

	const insert = `INSERT INTO metadata_schema (key, name, description, type, position) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, def.Key, def.Name, def.Description, int(def.Type), count); err != nil {
		return rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "inserting schema %s: %w", def.Key, err)
	}
	return tx.Commit()
}

func (sc *schemaStore) List(ctx context.Context) ([]store.MetadataDefinition, error) {
	rows, err := sc.db.QueryContext(ctx, `SELECT key, name, description, type FROM metadata_schema ORDER BY position ASC`)
	if err != nil {
		return nil, rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "listing schema: %w", err)
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	out := []store.MetadataDefinition{}
	for rows.Next() {
		var d store.MetadataDefinition
		var typ int
		if err := rows.Scan(&d.Key, &d.Name, &d.Description, &typ); err != nil {
			return nil, rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "scanning schema row: %w", err)
		}
		d.Type = store.MetadataType(typ)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, rlerr.Errorf(rlerr.CodeStoreDatabaseFailure, "iterating schema rows: %w", err)
	}
	return out, nil
}

// formatTime serialises a time.Time to RFC3339 with nanosecond precision.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
