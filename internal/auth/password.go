package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2id parameters per current OWASP guidance.
const (
	argonTime    = 3         // iterations
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 1         // parallelism
	argonKeyLen  = 32        // output hash length
	argonSaltLen = 16        // salt length
)

// HashPassword hashes a plaintext password using Argon2id and returns it
// in PHC string format: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
//
// All newly written credentials use Argon2id; bcrypt and plaintext exist
// only on the read path for legacy rows.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verifier dispatches plaintext-vs-hash comparison across the hashing
// algorithms that have accumulated in deployed credential stores.
//
// Dispatch order: a recognised hint or hash prefix selects Argon2id or
// bcrypt directly; otherwise every scheme is tried in order, ending with a
// plaintext equality check only when AllowPlaintext is set. Malformed or
// truncated hashes are verification failures, never errors.
type Verifier struct {
	// AllowPlaintext enables the legacy equality fallback for rows whose
	// stored value matches no known hash format. Development only; every
	// attempt is logged as a security warning.
	AllowPlaintext bool

	logger *slog.Logger
}

// NewVerifier creates a password verifier. The logger is used for the
// plaintext-fallback security warning and must not be nil.
func NewVerifier(allowPlaintext bool, logger *slog.Logger) *Verifier {
	return &Verifier{
		AllowPlaintext: allowPlaintext,
		logger:         logger,
	}
}

// Verify reports whether the plaintext matches the stored hash, using the
// algorithm hint (or the hash's own prefix) to pick the comparison scheme.
func (v *Verifier) Verify(plaintext, storedHash, hint string) bool {
	if storedHash == "" {
		return false
	}

	switch {
	case hint == AlgoArgon2 || strings.HasPrefix(storedHash, "$argon2"):
		return verifyArgon2(plaintext, storedHash)
	case hint == AlgoBcrypt || isBcryptHash(storedHash):
		return verifyBcrypt(plaintext, storedHash)
	}

	// Unknown algorithm: probe every scheme in order.
	if verifyArgon2(plaintext, storedHash) {
		return true
	}
	if verifyBcrypt(plaintext, storedHash) {
		return true
	}

	if v.AllowPlaintext {
		v.logger.Warn("falling back to plaintext password comparison",
			"hint", hint,
			"action_required", "re-hash this credential; disable allow_plaintext outside development",
		)
		return subtle.ConstantTimeCompare([]byte(plaintext), []byte(storedHash)) == 1
	}

	return false
}

// isBcryptHash reports whether the stored value carries a bcrypt version
// prefix. All forms accepted by bcrypt.CompareHashAndPassword count,
// including the legacy $2$ and $2x$ variants.
func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2$") ||
		strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2x$") ||
		strings.HasPrefix(hash, "$2y$")
}

// verifyArgon2 checks a plaintext password against an Argon2id PHC hash.
// Any decode failure is a verification failure.
func verifyArgon2(password, encodedHash string) bool {
	salt, hash, params, err := decodePHC(encodedHash)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(hash))) //nolint:gosec // G115: hash length always fits uint32

	return subtle.ConstantTimeCompare(hash, candidate) == 1
}

// verifyBcrypt checks a plaintext password against a bcrypt hash.
// Any parse failure is a verification failure.
func verifyBcrypt(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

// decodePHC parses an Argon2id PHC string format into its components.
func decodePHC(encoded string) (salt, hash []byte, params argonParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return nil, nil, params, fmt.Errorf("invalid PHC hash format")
	}

	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing version: %w", err)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing parameters: %w", err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}

	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding hash: %w", err)
	}

	return salt, hash, params, nil
}
