package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// sessionIDBytes is the entropy of an opaque refresh session identifier (256-bit).
const sessionIDBytes = 32

// SessionStore defines the interface for refresh session persistence.
//
// The store exposes create/lookup/delete primitives; the Service sequences
// them into the single-use rotation flow. Delete-then-create during rotation
// is deliberately ordered rather than transactional: a crash mid-rotation
// orphans the consumed session instead of resurrecting it (fail closed).
type SessionStore interface {
	Create(ctx context.Context, userID string, role Role, ttl time.Duration) (string, error)
	Lookup(ctx context.Context, rawID string) (*Session, error)
	Delete(ctx context.Context, rawID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteSessionStore implements SessionStore using SQLite.
type SQLiteSessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a new SQLite-backed session store.
func NewSessionStore(db *sql.DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

// newSessionID generates a cryptographically random opaque identifier.
func newSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// hashSessionID computes the SHA-256 of a raw session identifier for storage.
// Raw identifiers are never stored, only their hashes.
func hashSessionID(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// Create persists a new session and returns the raw opaque identifier.
// The role is stored on the row so rotation can re-mint an access token
// without a user lookup.
func (s *SQLiteSessionStore) Create(ctx context.Context, userID string, role Role, ttl time.Duration) (string, error) {
	raw, err := newSessionID()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, role, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		hashSessionID(raw), userID, string(role),
		now.Add(ttl).Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	return raw, nil
}

// Lookup retrieves a session by its raw identifier.
//
// Expiry is not checked here: the caller detects elapsed sessions and
// deletes them lazily, so an expired row yields "Session expired" rather
// than "Session not found" on first use.
func (s *SQLiteSessionStore) Lookup(ctx context.Context, rawID string) (*Session, error) {
	var sess Session
	var role string
	var expiresAt, createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, role, expires_at, created_at FROM sessions WHERE id = ?`,
		hashSessionID(rawID),
	).Scan(&sess.UserID, &role, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	sess.Role = Role(role)
	sess.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &sess, nil
}

// Delete removes a session by its raw identifier. Deleting an absent
// session is not an error (idempotent).
func (s *SQLiteSessionStore) Delete(ctx context.Context, rawID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE id = ?", hashSessionID(rawID),
	); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry, freeing storage.
// Returns the number of deleted rows.
func (s *SQLiteSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}
