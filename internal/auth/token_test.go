package auth

import (
	"errors"
	"testing"
	"time"
)

func testIssuer(ttl time.Duration) *Issuer {
	return NewIssuer("test-secret-at-least-32-characters!!", "tradegate-test", "trade-platform-test", ttl)
}

func TestIssueParse_RoundTrip(t *testing.T) {
	issuer := testIssuer(15 * time.Minute)

	token, err := issuer.Issue("usr-abc123", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	identity, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if identity.UserID != "usr-abc123" {
		t.Errorf("UserID = %q, want %q", identity.UserID, "usr-abc123")
	}
	if identity.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", identity.Role, RoleAdmin)
	}
}

func TestParse_BearerPrefix(t *testing.T) {
	issuer := testIssuer(15 * time.Minute)

	token, err := issuer.Issue("usr-abc123", RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	identity, err := issuer.Parse("Bearer " + token)
	if err != nil {
		t.Fatalf("Parse() with Bearer prefix error = %v", err)
	}
	if identity.UserID != "usr-abc123" {
		t.Errorf("UserID = %q, want %q", identity.UserID, "usr-abc123")
	}
}

func TestParse_Expired(t *testing.T) {
	issuer := testIssuer(-1 * time.Minute)

	token, err := issuer.Issue("usr-abc123", RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := issuer.Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Parse() of expired token error = %v, want ErrTokenInvalid", err)
	}
}

func TestParse_BlankInput(t *testing.T) {
	issuer := testIssuer(15 * time.Minute)

	for _, raw := range []string{"", "   ", "Bearer ", "Bearer   "} {
		if _, err := issuer.Parse(raw); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Parse(%q) error = %v, want ErrTokenInvalid", raw, err)
		}
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := testIssuer(15*time.Minute).Issue("usr-abc123", RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewIssuer("a-different-secret-also-32-chars!!!!", "tradegate-test", "trade-platform-test", 15*time.Minute)
	if _, err := other.Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Parse() with wrong secret error = %v, want ErrTokenInvalid", err)
	}
}

func TestParse_Tampered(t *testing.T) {
	issuer := testIssuer(15 * time.Minute)

	token, err := issuer.Issue("usr-abc123", RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := issuer.Parse(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Parse() of tampered token error = %v, want ErrTokenInvalid", err)
	}
}

func TestIsUnauthorized(t *testing.T) {
	for _, err := range []error{ErrInvalidCredentials, ErrSessionNotFound, ErrSessionExpired, ErrTokenInvalid} {
		if !IsUnauthorized(err) {
			t.Errorf("IsUnauthorized(%v) = false, want true", err)
		}
	}

	if IsUnauthorized(ErrStoreUnavailable) {
		t.Error("IsUnauthorized(ErrStoreUnavailable) = true, want false")
	}
	if IsUnauthorized(nil) {
		t.Error("IsUnauthorized(nil) = true, want false")
	}
}
