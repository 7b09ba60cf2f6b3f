package auth

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// canonicalSchema mirrors the greenfield migration: users plus a joined
// credential table.
const canonicalSchema = `
	CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		country TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	) STRICT;

	CREATE UNIQUE INDEX idx_users_email ON users(lower(email));

	CREATE TABLE user_credentials (
		user_id TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT 'password',
		password_hash TEXT NOT NULL,
		algorithm TEXT NOT NULL DEFAULT 'argon2',
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		PRIMARY KEY (user_id, provider),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) STRICT;

	CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) STRICT;
`

// hashColumnSchema is the older layout with the hash directly on users.
const hashColumnSchema = `
	CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		country TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		password_hash TEXT
	) STRICT;

	CREATE UNIQUE INDEX idx_users_email ON users(lower(email));

	CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	) STRICT;
`

// passwordColumnSchema is the oldest layout: a bare password column and a
// full_name column instead of name.
const passwordColumnSchema = `
	CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		full_name TEXT NOT NULL,
		country TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		password TEXT
	) STRICT;

	CREATE UNIQUE INDEX idx_users_email ON users(lower(email));

	CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	) STRICT;
`

// testDB creates a temporary SQLite database with the canonical schema.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	return testDBWithSchema(t, canonicalSchema)
}

// testDBWithSchema creates a temporary SQLite database with an arbitrary
// schema variant applied.
func testDBWithSchema(t *testing.T, schema string) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying test schema: %v", err)
	}

	return db
}

// testService wires a complete auth service over the given database.
func testService(t *testing.T, db *sql.DB, allowPlaintext bool) *Service {
	t.Helper()

	logger := slog.Default()
	return NewService(
		NewCredentialStore(db, logger),
		NewSessionStore(db),
		NewVerifier(allowPlaintext, logger),
		NewIssuer("test-secret-at-least-32-characters!!", "tradegate-test", "trade-platform-test", 15*time.Minute),
		7*24*time.Hour,
		logger,
	)
}

// seedBareUser inserts a user row without credentials, for tests that only
// need a valid foreign key target.
func seedBareUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()

	if _, err := db.Exec(`INSERT INTO users (id, email, name) VALUES (?, ?, ?)`,
		id, id+"@example.com", "Test User"); err != nil {
		t.Fatalf("seeding bare user %s: %v", id, err)
	}
}

// seedTestUser inserts a user with an Argon2id credential into a canonical
// schema database and returns the user id.
func seedTestUser(t *testing.T, db *sql.DB, email, password string, role Role) string {
	t.Helper()

	logger := slog.Default()
	store := NewCredentialStore(db, logger)

	userID, err := store.CreateUser(context.Background(), email, "Test User", "GBR")
	if err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}

	if role != RoleUser {
		if _, err := db.Exec(`UPDATE users SET role = ? WHERE id = ?`, string(role), userID); err != nil {
			t.Fatalf("setting test user role: %v", err)
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}
	if err := store.PersistPasswordHash(context.Background(), userID, hash); err != nil {
		t.Fatalf("persisting test credential: %v", err)
	}

	return userID
}
