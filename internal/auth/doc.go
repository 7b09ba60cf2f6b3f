// Package auth is the credential, token, and session core of tradegate.
//
// It implements:
//   - Credential resolution across several legacy schema shapes, probed in a
//     fixed order at query time (no single physical layout is assumed)
//   - Password verification across Argon2id and bcrypt, with a config-gated
//     plaintext fallback for development databases
//   - Argon2id hashing for all newly written credentials
//   - Stateless HS256 access tokens (signature + expiry proves validity,
//     never a storage lookup)
//   - Store-backed refresh sessions with single-use rotation
//
// The Service type composes these into the signup/login/refresh/logout/
// change-password flows. The HTTP layer, cookie handling, and authorization
// beyond role attachment live outside this package; they consume the
// verified user id and role this package produces.
package auth
