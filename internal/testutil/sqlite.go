// Package testutil holds helpers shared by package tests.
package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

const SQLiteSchema = `
CREATE TABLE users (
	id                 TEXT PRIMARY KEY,
	email              TEXT NOT NULL UNIQUE,
	password_hash      TEXT NOT NULL,
	created_at         TIMESTAMP NOT NULL,
	refresh_token      TEXT UNIQUE,
	refresh_expires_at TIMESTAMP,
	refresh_revoked    BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE tasks (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date    DATE,
	priority    TEXT NOT NULL DEFAULT 'low',
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);`

// OpenSQLite opens an in-memory SQLite database with the same tables as migrations/.
func OpenSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and private to this test
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(SQLiteSchema)
	require.NoError(t, err)
	return db
}
