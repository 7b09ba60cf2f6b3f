package auth

import (
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testVerifier(allowPlaintext bool) *Verifier {
	return NewVerifier(allowPlaintext, slog.Default())
}

func TestHashPassword_RoundTrip(t *testing.T) {
	password := "correct-horse-battery-staple"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash should start with $argon2id$, got %q", hash)
	}

	if !testVerifier(false).Verify(password, hash, AlgoArgon2) {
		t.Error("Verify() should return true for correct password")
	}
}

func TestHashPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("correct-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if testVerifier(false).Verify("wrong-password", hash, AlgoArgon2) {
		t.Error("Verify() should return false for wrong password")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	password := "same-password"

	hash1, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if hash1 == hash2 {
		t.Error("two hashes of the same password should have different salts")
	}
}

func TestVerify_BcryptHint(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("generating bcrypt hash: %v", err)
	}

	v := testVerifier(false)

	if !v.Verify("legacy-password", string(hash), AlgoBcrypt) {
		t.Error("Verify() should accept correct password with bcrypt hint")
	}
	if v.Verify("wrong-password", string(hash), AlgoBcrypt) {
		t.Error("Verify() should reject wrong password with bcrypt hint")
	}
}

func TestVerify_BcryptPrefixDetection(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("generating bcrypt hash: %v", err)
	}

	// No hint: prefix alone should select bcrypt.
	if !testVerifier(false).Verify("legacy-password", string(hash), "") {
		t.Error("Verify() should detect bcrypt from the $2a$/$2b$ prefix")
	}
}

func TestVerify_UnknownHintProbesAllSchemes(t *testing.T) {
	argonHash, err := HashPassword("probe-me")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte("probe-me"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("generating bcrypt hash: %v", err)
	}

	v := testVerifier(false)

	if !v.Verify("probe-me", argonHash, "mystery") {
		t.Error("unknown hint should still verify an Argon2 hash")
	}
	if !v.Verify("probe-me", string(bcryptHash), "mystery") {
		t.Error("unknown hint should still verify a bcrypt hash")
	}
}

func TestVerify_PlaintextGated(t *testing.T) {
	// Stored value is the raw password with no recognisable hash format.
	stored := "raw-password"

	if testVerifier(false).Verify("raw-password", stored, "") {
		t.Error("plaintext equality must not authenticate when the fallback is disabled")
	}

	v := testVerifier(true)
	if !v.Verify("raw-password", stored, "") {
		t.Error("plaintext equality should authenticate when the fallback is enabled")
	}
	if v.Verify("other-password", stored, "") {
		t.Error("wrong plaintext should fail even with the fallback enabled")
	}
}

func TestVerify_MalformedHashes(t *testing.T) {
	v := testVerifier(false)

	malformed := []string{
		"",
		"$argon2id$",
		"$argon2id$v=19$m=65536,t=3,p=1$short",
		"$argon2id$v=19$m=bad,t=3,p=1$c2FsdA$aGFzaA",
		"$argon2i$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=1$!!!$aGFzaA",
		"$2a$xx$not-a-real-bcrypt-hash",
	}

	for _, hash := range malformed {
		if v.Verify("any-password", hash, "") {
			t.Errorf("Verify() should fail for malformed hash %q", hash)
		}
	}
}

func TestDecodePHC_RoundTrip(t *testing.T) {
	hash, err := HashPassword("decode-me")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	salt, digest, params, err := decodePHC(hash)
	if err != nil {
		t.Fatalf("decodePHC() error = %v", err)
	}

	if len(salt) != argonSaltLen {
		t.Errorf("salt length = %d, want %d", len(salt), argonSaltLen)
	}
	if len(digest) != argonKeyLen {
		t.Errorf("digest length = %d, want %d", len(digest), argonKeyLen)
	}
	if params.time != argonTime || params.memory != argonMemory || params.threads != argonThreads {
		t.Errorf("params = %+v, want t=%d m=%d p=%d", params, argonTime, argonMemory, argonThreads)
	}
}

func TestIsBcryptHash(t *testing.T) {
	cases := []struct {
		hash string
		want bool
	}{
		{"$2$10$abcdefghijklmnopqrstuv", true},
		{"$2a$10$abcdefghijklmnopqrstuv", true},
		{"$2b$12$abcdefghijklmnopqrstuv", true},
		{"$2x$10$abcdefghijklmnopqrstuv", true},
		{"$2y$10$abcdefghijklmnopqrstuv", true},
		{"$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA", false},
		{"plaintext-password", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := isBcryptHash(tc.hash); got != tc.want {
			t.Errorf("isBcryptHash(%q) = %v, want %v", tc.hash, got, tc.want)
		}
	}
}

func TestVerify_BcryptLegacyPrefix(t *testing.T) {
	verifier := testVerifier(false)

	hash, err := bcrypt.GenerateFromPassword([]byte("Secret1!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("generating bcrypt hash: %v", err)
	}
	// Hashes minted by PHP's crypt() carry the $2y$ marker but are
	// otherwise identical.
	legacy := "$2y$" + strings.TrimPrefix(string(hash), "$2a$")

	if !verifier.Verify("Secret1!", legacy, "") {
		t.Error("Verify() should accept a $2y$ prefixed bcrypt hash")
	}
	if verifier.Verify("WrongPassword", legacy, "") {
		t.Error("Verify() should reject the wrong password against a $2y$ hash")
	}
}
