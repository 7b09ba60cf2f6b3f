package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed admin password.
const seedPasswordBytes = 16

const seedAdminEmail = "admin@tradegate.local"

// SeedAdmin creates the initial admin account on first boot if no users exist.
// The generated password is logged and must be changed immediately.
// Returns the generated password (empty string if seeding was skipped).
//
// Role promotion bypasses the credential store on purpose: accounts created
// through the normal path always get the default role, and seeding is the
// one privileged process allowed to change that.
func SeedAdmin(ctx context.Context, db *sql.DB, store CredentialStore, logger *slog.Logger) (string, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Info("users exist, skipping admin seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil {
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	userID, err := store.CreateUser(ctx, seedAdminEmail, "Platform Admin", "GBR")
	if err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	if _, err := db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(RoleAdmin), userID); err != nil {
		return "", fmt.Errorf("promoting seed admin: %w", err)
	}

	if err := store.PersistPasswordHash(ctx, userID, hash); err != nil {
		return "", fmt.Errorf("storing seed admin credential: %w", err)
	}

	logger.Warn("seed admin account created",
		"email", seedAdminEmail,
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
