package auth

import (
	"errors"
	"strings"
	"time"
)

// Role represents an authorisation tier on the platform.
type Role string

const (
	// RoleUser is the default role assigned at signup.
	RoleUser Role = "user"

	// RoleAdmin can manage tariff datasets, news, and other users.
	// Role promotion happens through a privileged operational process,
	// never through the auth core itself.
	RoleAdmin Role = "admin"
)

// Algorithm hints stored alongside password hashes. An empty or unrecognised
// hint means the producing algorithm is unknown and the verifier probes all
// supported schemes in order.
const (
	AlgoArgon2 = "argon2"
	AlgoBcrypt = "bcrypt"
)

// User represents a registered platform account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials is a resolved credential record: the identity joined with
// whatever password material the backing schema holds for it.
type Credentials struct {
	UserID        string
	Role          Role
	PasswordHash  string
	AlgorithmHint string
}

// Session is a stored refresh session. The opaque identifier handed to the
// client is not part of the record; only its hash is persisted.
type Session struct {
	UserID    string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session's lifetime has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Identity is the verified output of access-token parsing, consumed by the
// platform's request-authentication middleware.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// TokenPair is the result of a successful login or refresh: a short-lived
// signed access token plus a fresh single-use refresh session identifier.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
	Role         Role
}

// Sentinel errors for auth operations. The Unauthorized-family messages are
// deliberately generic so responses never reveal whether an email is
// registered or which step of verification failed.
var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrSessionNotFound    = errors.New("Session not found")
	ErrSessionExpired     = errors.New("Session expired")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrMissingFields      = errors.New("missing required fields")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// NormalizeEmail canonicalises an email address for storage and comparison:
// surrounding whitespace stripped, lowercased. Uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
