package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Recorder receives audit entries for auth activity. Recording is
// best-effort; implementations must not block the calling request.
type Recorder interface {
	Record(ctx context.Context, action, entityID, userID, details string)
}

// EventSink receives auth lifecycle events for external consumers.
// Publishing is best-effort and must never fail the calling request.
type EventSink interface {
	Publish(event string, payload map[string]any)
}

// Service orchestrates signup, login, refresh, logout and password change
// over the credential store, password verifier, token issuer and session
// store. It holds no mutable state of its own; every dependency is fixed
// at construction.
type Service struct {
	store    CredentialStore
	sessions SessionStore
	verifier *Verifier
	issuer   *Issuer

	recorder Recorder
	events   EventSink

	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewService creates the auth orchestrator. recorder and events may be nil.
func NewService(store CredentialStore, sessions SessionStore, verifier *Verifier, issuer *Issuer, refreshTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		sessions:   sessions,
		verifier:   verifier,
		issuer:     issuer,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// WithRecorder attaches an audit recorder.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// WithEvents attaches an event sink.
func (s *Service) WithEvents(e EventSink) *Service {
	s.events = e
	return s
}

// Signup registers a new user with the default role and stores an Argon2id
// hash of the password. Email uniqueness is case-insensitive, checked
// before the insert and again enforced by the store itself.
func (s *Service) Signup(ctx context.Context, name, email, country, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	country = strings.TrimSpace(country)
	if name == "" || email == "" || country == "" || password == "" {
		return "", ErrMissingFields
	}

	if _, err := s.store.Resolve(ctx, email); err == nil {
		return "", ErrEmailExists
	} else if !isNotFound(err) {
		return "", err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	userID, err := s.store.CreateUser(ctx, email, name, country)
	if err != nil {
		return "", err
	}

	// Hash persistence is best-effort: the user row is the load-bearing
	// part, a missing credential layout only means this account cannot
	// log in until the schema catches up.
	if err := s.store.PersistPasswordHash(ctx, userID, hash); err != nil {
		s.logger.Warn("password hash not persisted at signup", "user_id", userID, "error", err)
	}

	s.record(ctx, "user.signup", userID, userID, email)
	s.publish("signup", map[string]any{"user_id": userID})

	return userID, nil
}

// Login verifies a password against the resolved credential and returns a
// fresh token pair. Unknown email, blank stored hash and wrong password all
// produce the same error so callers cannot enumerate accounts.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	creds, err := s.store.Resolve(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if creds.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if !s.verifier.Verify(password, creds.PasswordHash, creds.AlgorithmHint) {
		s.record(ctx, "user.login_failed", creds.UserID, creds.UserID, email)
		s.publish("login_failed", map[string]any{"user_id": creds.UserID})
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, creds.UserID, creds.Role, "")
	if err != nil {
		return nil, err
	}

	s.record(ctx, "user.login", creds.UserID, creds.UserID, email)
	s.publish("login", map[string]any{"user_id": creds.UserID, "role": string(creds.Role)})

	return pair, nil
}

// Refresh rotates a refresh session and mints a new access token. The
// presented session id is consumed whether or not rotation succeeds: a
// second refresh with the same id fails with ErrSessionNotFound.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessions.Lookup(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now().UTC()) {
		if err := s.sessions.Delete(ctx, refreshToken); err != nil {
			s.logger.Warn("expired session not deleted", "error", err)
		}
		return nil, ErrSessionExpired
	}

	pair, err := s.issueTokens(ctx, session.UserID, session.Role, refreshToken)
	if err != nil {
		return nil, err
	}

	s.record(ctx, "user.refresh", session.UserID, session.UserID, "")
	s.publish("refresh", map[string]any{"user_id": session.UserID})

	return pair, nil
}

// issueTokens is the shared rotation and mint primitive behind both Login
// and Refresh. Delete-then-create is ordered but deliberately not wrapped
// in a transaction: a crash between the two steps loses a session instead
// of resurrecting a consumed one.
func (s *Service) issueTokens(ctx context.Context, userID string, role Role, oldRefreshToken string) (*TokenPair, error) {
	if oldRefreshToken != "" {
		if err := s.sessions.Delete(ctx, oldRefreshToken); err != nil {
			return nil, err
		}
	}

	refreshToken, err := s.sessions.Create(ctx, userID, role, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.issuer.Issue(userID, role)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		RefreshTTL:   s.refreshTTL,
		Role:         role,
	}, nil
}

// Logout deletes the refresh session if one is presented. Always succeeds:
// logging out with an absent or already-consumed session id is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	// Look the session up first so the audit row can carry the user id.
	userID := ""
	if session, err := s.sessions.Lookup(ctx, refreshToken); err == nil {
		userID = session.UserID
	}

	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		s.logger.Warn("session not deleted at logout", "error", err)
	}

	s.record(ctx, "user.logout", userID, userID, "")
	s.publish("logout", map[string]any{"user_id": userID})
	return nil
}

// ParseToken validates an access token, accepting either a raw token or a
// full Authorization header value.
func (s *Service) ParseToken(raw string) (*Identity, error) {
	return s.issuer.Parse(raw)
}

// ChangePassword verifies the current password and overwrites the stored
// credential with a fresh Argon2id hash. Unlike signup, persistence failure
// here is fatal: the caller asked for exactly this effect.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if userID == "" || current == "" || next == "" {
		return ErrMissingFields
	}

	creds, err := s.store.ResolveByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrInvalidCredentials
		}
		return err
	}
	if creds.PasswordHash == "" || !s.verifier.Verify(current, creds.PasswordHash, creds.AlgorithmHint) {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.store.PersistPasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	s.record(ctx, "user.password_changed", userID, userID, "")
	s.publish("password_changed", map[string]any{"user_id": userID})

	return nil
}

func (s *Service) record(ctx context.Context, action, entityID, userID, details string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, action, entityID, userID, details)
}

func (s *Service) publish(event string, payload map[string]any) {
	if s.events == nil {
		return
	}
	s.events.Publish(event, payload)
}
