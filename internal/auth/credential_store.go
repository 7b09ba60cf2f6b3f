package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CredentialStore resolves and persists user and credential records across
// the physical schema shapes accumulated by past deployments.
//
// No single layout is assumed: each operation walks an ordered list of
// schema variants, advancing past shapes the connected database doesn't
// have and short-circuiting on the first that answers. The probing happens
// per request; the platform runs one binary against databases with
// different vintages, so capability cannot be detected once at startup.
type CredentialStore interface {
	Resolve(ctx context.Context, email string) (*Credentials, error)
	ResolveByID(ctx context.Context, userID string) (*Credentials, error)
	CreateUser(ctx context.Context, email, name, country string) (string, error)
	PersistPasswordHash(ctx context.Context, userID, hash string) error
}

// errVariantNotApplicable marks a schema variant whose tables or columns are
// absent from the connected database. The adapter advances to the next
// variant; it is never surfaced to callers.
var errVariantNotApplicable = errors.New("schema variant not applicable")

// resolveVariant is one probe in the ordered credential resolution chain.
type resolveVariant struct {
	name    string
	byEmail string
	byID    string

	// hasAlgo marks variants whose layout stores an explicit algorithm tag;
	// the others leave the hint empty (unknown).
	hasAlgo bool
}

// resolveVariants is the ordered probe list: the joined credential table
// first (greenfield schema), then the column-on-users shapes older
// deployments carry.
var resolveVariants = []resolveVariant{
	{
		name: "credentials_join",
		byEmail: `SELECT u.id, u.role, c.password_hash, c.algorithm
			 FROM user_credentials c
			 JOIN users u ON u.id = c.user_id
			 WHERE lower(u.email) = ? AND c.provider = 'password'`,
		byID: `SELECT u.id, u.role, c.password_hash, c.algorithm
			 FROM user_credentials c
			 JOIN users u ON u.id = c.user_id
			 WHERE u.id = ? AND c.provider = 'password'`,
		hasAlgo: true,
	},
	{
		name:    "password_hash_column",
		byEmail: `SELECT id, role, password_hash FROM users WHERE lower(email) = ?`,
		byID:    `SELECT id, role, password_hash FROM users WHERE id = ?`,
	},
	{
		name:    "legacy_password_column",
		byEmail: `SELECT id, role, password FROM users WHERE lower(email) = ?`,
		byID:    `SELECT id, role, password FROM users WHERE id = ?`,
	},
}

// SQLCredentialStore implements CredentialStore over a generic SQL connection.
type SQLCredentialStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCredentialStore creates a credential store adapter.
func NewCredentialStore(db *sql.DB, logger *slog.Logger) *SQLCredentialStore {
	return &SQLCredentialStore{db: db, logger: logger}
}

// Resolve finds the credential record for an email address.
// Matching is case-insensitive. Returns ErrUserNotFound only after every
// schema variant has been exhausted; a genuine store fault stops the probe
// chain and surfaces as ErrStoreUnavailable.
func (s *SQLCredentialStore) Resolve(ctx context.Context, email string) (*Credentials, error) {
	return s.resolve(ctx, func(v resolveVariant) (string, string) {
		return v.byEmail, NormalizeEmail(email)
	})
}

// ResolveByID finds the credential record for a user id, walking the same
// variant chain as Resolve.
func (s *SQLCredentialStore) ResolveByID(ctx context.Context, userID string) (*Credentials, error) {
	return s.resolve(ctx, func(v resolveVariant) (string, string) {
		return v.byID, userID
	})
}

func (s *SQLCredentialStore) resolve(ctx context.Context, pick func(resolveVariant) (string, string)) (*Credentials, error) {
	for _, v := range resolveVariants {
		query, arg := pick(v)
		creds, err := s.probeResolve(ctx, query, arg, v.hasAlgo)
		switch {
		case err == nil:
			return creds, nil
		case errors.Is(err, errVariantNotApplicable):
			s.logger.Debug("credential schema variant not applicable", "variant", v.name)
			continue
		case errors.Is(err, sql.ErrNoRows):
			// Layout present, record absent; the next variant may hold it.
			continue
		default:
			return nil, fmt.Errorf("%w: variant %s: %w", ErrStoreUnavailable, v.name, err)
		}
	}
	return nil, ErrUserNotFound
}

// probeResolve runs a single variant query. The outcome is exactly one of:
// a credential record, sql.ErrNoRows, errVariantNotApplicable, or a store fault.
func (s *SQLCredentialStore) probeResolve(ctx context.Context, query, arg string, hasAlgo bool) (*Credentials, error) {
	var creds Credentials
	var role, hash, algo sql.NullString

	dest := []any{&creds.UserID, &role, &hash}
	if hasAlgo {
		dest = append(dest, &algo)
	}

	if err := s.db.QueryRowContext(ctx, query, arg).Scan(dest...); err != nil {
		if isMissingSchema(err) {
			return nil, errVariantNotApplicable
		}
		return nil, err
	}

	creds.Role = RoleUser
	if role.Valid && role.String != "" {
		creds.Role = Role(role.String)
	}
	if hash.Valid {
		creds.PasswordHash = hash.String
	}
	if algo.Valid {
		creds.AlgorithmHint = algo.String
	}

	return &creds, nil
}

// createVariant is one probe in the ordered user-creation chain.
type createVariant struct {
	name string
	stmt string
	args func(id, email, name, country, role, now string) []any
}

var createVariants = []createVariant{
	{
		name: "full",
		stmt: `INSERT INTO users (id, email, name, country, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		args: func(id, email, name, country, role, now string) []any {
			return []any{id, email, name, country, role, now}
		},
	},
	{
		name: "no_timestamps",
		stmt: `INSERT INTO users (id, email, name, country, role) VALUES (?, ?, ?, ?, ?)`,
		args: func(id, email, name, country, role, _ string) []any {
			return []any{id, email, name, country, role}
		},
	},
	{
		name: "legacy_full_name",
		stmt: `INSERT INTO users (id, email, full_name, country, role) VALUES (?, ?, ?, ?, ?)`,
		args: func(id, email, name, country, role, _ string) []any {
			return []any{id, email, name, country, role}
		},
	},
}

// CreateUser inserts a new user row with the default role, trying each
// known users layout in order. Unlike PersistPasswordHash this is fatal
// when no layout matches: without a user row nothing else can proceed.
func (s *SQLCredentialStore) CreateUser(ctx context.Context, email, name, country string) (string, error) {
	id := "usr-" + uuid.NewString()[:8]
	now := time.Now().UTC().Format(time.RFC3339)
	normalized := NormalizeEmail(email)

	for _, v := range createVariants {
		_, err := s.db.ExecContext(ctx, v.stmt, v.args(id, normalized, name, country, string(RoleUser), now)...)
		switch {
		case err == nil:
			return id, nil
		case isUniqueViolation(err):
			return "", ErrEmailExists
		case isMissingSchema(err):
			s.logger.Debug("user insert schema variant not applicable", "variant", v.name)
			continue
		default:
			return "", fmt.Errorf("%w: variant %s: %w", ErrStoreUnavailable, v.name, err)
		}
	}

	return "", fmt.Errorf("%w: no usable users layout", ErrStoreUnavailable)
}

// persistVariant is one probe in the ordered hash-persistence chain.
type persistVariant struct {
	name string
	stmt string
}

var persistVariants = []persistVariant{
	{
		name: "credentials_upsert",
		stmt: `INSERT INTO user_credentials (user_id, provider, password_hash, algorithm, updated_at)
			 VALUES (?, 'password', ?, 'argon2', ?)
			 ON CONFLICT (user_id, provider)
			 DO UPDATE SET password_hash = excluded.password_hash,
			               algorithm = excluded.algorithm,
			               updated_at = excluded.updated_at`,
	},
	{
		name: "password_hash_column",
		stmt: `UPDATE users SET password_hash = ? WHERE id = ?`,
	},
	{
		name: "legacy_password_column",
		stmt: `UPDATE users SET password = ? WHERE id = ?`,
	},
}

// PersistPasswordHash writes a credential hash for an existing user, trying
// each known layout in order. Callers on the signup path treat failure as
// non-fatal; only resolution of a usable layout for the user row itself is
// load-bearing there.
func (s *SQLCredentialStore) PersistPasswordHash(ctx context.Context, userID, hash string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	for _, v := range persistVariants {
		var result sql.Result
		var err error
		if v.name == "credentials_upsert" {
			result, err = s.db.ExecContext(ctx, v.stmt, userID, hash, now)
		} else {
			result, err = s.db.ExecContext(ctx, v.stmt, hash, userID)
		}

		switch {
		case err == nil:
			rows, _ := result.RowsAffected()
			if rows == 0 {
				// Column exists but the user row lives elsewhere; keep probing.
				continue
			}
			return nil
		case isMissingSchema(err):
			s.logger.Debug("hash persist schema variant not applicable", "variant", v.name)
			continue
		default:
			return fmt.Errorf("%w: variant %s: %w", ErrStoreUnavailable, v.name, err)
		}
	}

	return fmt.Errorf("persisting password hash: no usable layout for user %s", userID)
}

// isMissingSchema reports whether an error means the probed table or column
// does not exist in the connected database. Matched by message because
// database/sql exposes no portable error codes across drivers.
func isMissingSchema(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") || // sqlite
		strings.Contains(msg, "no such column") || // sqlite SELECT/UPDATE
		strings.Contains(msg, "no column named") || // sqlite INSERT
		strings.Contains(msg, "does not exist") || // postgres
		strings.Contains(msg, "unknown column") // mysql
}

// isUniqueViolation reports whether an error is a unique-constraint failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
