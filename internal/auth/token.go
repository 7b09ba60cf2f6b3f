package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// bearerPrefix is the optional Authorization-header scheme stripped by Parse.
const bearerPrefix = "Bearer "

// Claims extends JWT registered claims with the tradegate identity fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// Issuer mints and validates stateless access tokens. Validity is proven
// purely by signature and expiry; no storage lookup is ever involved.
//
// Issuer is built once from process configuration and is immutable and safe
// for concurrent use.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewIssuer creates a token issuer with the configured signing secret,
// issuer/audience identifiers, and access token lifetime.
func NewIssuer(secret, issuer, audience string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
	}
}

// Issue creates a signed HS256 access token for the given identity.
func (i *Issuer) Issue(userID string, role Role) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		UserID: userID,
		Role:   role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// Parse validates a raw access token and returns the identity it carries.
//
// An optional "Bearer " prefix is stripped, so the value of an Authorization
// header can be passed directly. Blank input, a bad signature, an elapsed
// expiry, or a missing userId claim all fail with ErrTokenInvalid. A missing
// role claim defaults to RoleUser.
func (i *Issuer) Parse(raw string) (*Identity, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), bearerPrefix))
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(_ *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId", ErrTokenInvalid)
	}

	role := claims.Role
	if role == "" {
		role = RoleUser
	}

	return &Identity{UserID: claims.UserID, Role: role}, nil
}

// IsUnauthorized reports whether an error belongs to the Unauthorized family:
// bad credentials, an invalid or expired token, or a missing/expired session.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionExpired)
}
