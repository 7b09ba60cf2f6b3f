package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionStore_CreateAndLookup(t *testing.T) {
	db := testDB(t)
	seedBareUser(t, db, "usr-abc123")
	store := NewSessionStore(db)
	ctx := context.Background()

	raw, err := store.Create(ctx, "usr-abc123", RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(raw) != sessionIDBytes*2 {
		t.Errorf("session id length = %d, want %d hex chars", len(raw), sessionIDBytes*2)
	}

	session, err := store.Lookup(ctx, raw)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if session.UserID != "usr-abc123" {
		t.Errorf("UserID = %q, want %q", session.UserID, "usr-abc123")
	}
	if session.Role != RoleUser {
		t.Errorf("Role = %q, want %q", session.Role, RoleUser)
	}
	if session.Expired(time.Now().UTC()) {
		t.Error("fresh session should not be expired")
	}
}

func TestSessionStore_RawIDNeverStored(t *testing.T) {
	db := testDB(t)
	seedBareUser(t, db, "usr-abc123")
	store := NewSessionStore(db)

	raw, err := store.Create(context.Background(), "usr-abc123", RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, raw).Scan(&count); err != nil {
		t.Fatalf("querying sessions: %v", err)
	}
	if count != 0 {
		t.Error("raw session id must not appear in storage, only its hash")
	}
}

func TestSessionStore_LookupUnknown(t *testing.T) {
	store := NewSessionStore(testDB(t))

	if _, err := store.Lookup(context.Background(), "not-a-real-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Lookup() of unknown id error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_LookupReturnsExpiredRows(t *testing.T) {
	db := testDB(t)
	seedBareUser(t, db, "usr-abc123")
	store := NewSessionStore(db)
	ctx := context.Background()

	raw, err := store.Create(ctx, "usr-abc123", RoleUser, -time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Expiry is the caller's check; the store still returns the row so the
	// caller can distinguish "expired" from "not found".
	session, err := store.Lookup(ctx, raw)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !session.Expired(time.Now().UTC()) {
		t.Error("session created with negative TTL should report expired")
	}
}

func TestSessionStore_DeleteIdempotent(t *testing.T) {
	db := testDB(t)
	seedBareUser(t, db, "usr-abc123")
	store := NewSessionStore(db)
	ctx := context.Background()

	raw, err := store.Create(ctx, "usr-abc123", RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, raw); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, raw); err != nil {
		t.Errorf("second Delete() of same id error = %v, want nil", err)
	}
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete() of absent id error = %v, want nil", err)
	}

	if _, err := store.Lookup(ctx, raw); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Lookup() after delete error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	db := testDB(t)
	seedBareUser(t, db, "usr-abc123")
	seedBareUser(t, db, "usr-def456")
	store := NewSessionStore(db)
	ctx := context.Background()

	live, err := store.Create(ctx, "usr-abc123", RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, "usr-abc123", RoleUser, -time.Hour); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, "usr-def456", RoleAdmin, -time.Minute); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deleted, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteExpired() = %d, want 2", deleted)
	}

	if _, err := store.Lookup(ctx, live); err != nil {
		t.Errorf("live session should survive the sweep, Lookup() error = %v", err)
	}
}

func TestSessionStore_UniqueIDs(t *testing.T) {
	db := testDB(t)
	seedBareUser(t, db, "usr-abc123")
	store := NewSessionStore(db)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		raw, err := store.Create(ctx, "usr-abc123", RoleUser, time.Hour)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if seen[raw] {
			t.Fatal("duplicate session id generated")
		}
		seen[raw] = true
	}
}
